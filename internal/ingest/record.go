// Package ingest discovers articles for a query, scrapes their full text
// and stores them, reusing articles already known by URL.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Request narrows an article search.
type Request struct {
	Query   string
	From    *time.Time
	To      *time.Time
	Sources []string
	Limit   int
}

// Record is one search hit, resolved from the provider payload. Source
// and Title are never empty.
type Record struct {
	URL         string
	Source      string
	Title       string
	Author      string
	Description string
	Content     string
	PublishedAt *time.Time
}

// Searcher finds candidate articles.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Record, error)
}

const (
	unknownSource = "Unknown"
	untitled      = "Untitled"
)

// recordFromMap resolves a loosely typed article object. Missing fields
// take defaults; an unparsable date is left unset.
func recordFromMap(m map[string]any) Record {
	r := Record{
		URL:         strings.TrimSpace(cast.ToString(m["url"])),
		Source:      cast.ToString(cast.ToStringMap(m["source"])["name"]),
		Title:       strings.TrimSpace(cast.ToString(m["title"])),
		Author:      strings.TrimSpace(cast.ToString(m["author"])),
		Description: cast.ToString(m["description"]),
		Content:     cast.ToString(m["content"]),
		PublishedAt: parseTime(cast.ToString(m["publishedAt"])),
	}
	if r.Source == "" {
		r.Source = unknownSource
	}
	if r.Title == "" {
		r.Title = untitled
	}
	return r
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
