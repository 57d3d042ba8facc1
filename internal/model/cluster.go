package model

import "time"

// FactStatus is the verification outcome of a Fact.
type FactStatus string

const (
	FactSupported    FactStatus = "supported"
	FactContradicted FactStatus = "contradicted"
	FactUnverified   FactStatus = "unverified"
)

// Fact is a cross-source verified statement.
type Fact struct {
	Statement     string     `json:"statement" yaml:"statement"`
	Sources       []string   `json:"sources" yaml:"sources"`
	Quotes        []string   `json:"quotes" yaml:"quotes"`
	Status        FactStatus `json:"status" yaml:"status"`
	Justification string     `json:"justification,omitempty" yaml:"justification,omitempty"`
}

// LoadedPhrase is a sentence flagged for loaded language.
type LoadedPhrase struct {
	Phrase      string `json:"phrase" yaml:"phrase"`
	Type        string `json:"type" yaml:"type"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// FrameSummary aggregates how one source framed a cluster.
type FrameSummary struct {
	Source        string         `json:"source" yaml:"source"`
	Tone          float64        `json:"tone" yaml:"tone"`
	BiasIndex     float64        `json:"bias_index" yaml:"bias_index"`
	Transparency  float64        `json:"transparency_score" yaml:"transparency_score"`
	LoadedPhrases []LoadedPhrase `json:"top_loaded_phrases" yaml:"top_loaded_phrases"`
}

// Cluster is a group of articles covering the same narrative.
type Cluster struct {
	ID                 string         `json:"id" yaml:"id"`
	Query              string         `json:"query" yaml:"query"`
	CreatedAt          time.Time      `json:"created_at" yaml:"created_at"`
	CanonicalArticleID string         `json:"canonical_article_id,omitempty" yaml:"canonical_article_id,omitempty"`
	FactSummary        string         `json:"fact_summary,omitempty" yaml:"fact_summary,omitempty"`
	FrameSummaries     []FrameSummary `json:"frame_summary,omitempty" yaml:"frame_summary,omitempty"`
	Facts              []Fact         `json:"facts,omitempty" yaml:"facts,omitempty"`
}
