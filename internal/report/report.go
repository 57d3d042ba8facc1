// Package report renders analysis results as styled terminal text, JSON
// or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/prism/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json, yaml (and yml), case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
}

// Encode writes v as JSON or YAML. Text is not an encoding.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("format %q has no encoder", f)
}

// Analysis writes res in format f.
func Analysis(w io.Writer, f Format, res *model.AnalysisResult) error {
	if f == FormatText {
		_, err := io.WriteString(w, RenderAnalysis(res))
		return err
	}
	return Encode(w, f, res)
}

// ClusterView is a stored cluster with its member articles.
type ClusterView struct {
	Cluster  *model.Cluster  `json:"cluster" yaml:"cluster"`
	Articles []model.Article `json:"articles" yaml:"articles"`
}

// Cluster writes a stored cluster and its members in format f.
func Cluster(w io.Writer, f Format, v ClusterView) error {
	if f == FormatText {
		_, err := io.WriteString(w, RenderCluster(v))
		return err
	}
	return Encode(w, f, v)
}

// Article writes one stored article in format f.
func Article(w io.Writer, f Format, a *model.Article) error {
	if f == FormatText {
		_, err := io.WriteString(w, RenderArticle(a))
		return err
	}
	return Encode(w, f, a)
}

// Clusters writes a cluster listing in format f.
func Clusters(w io.Writer, f Format, list []model.Cluster) error {
	if f == FormatText {
		_, err := io.WriteString(w, RenderClusters(list))
		return err
	}
	return Encode(w, f, list)
}
