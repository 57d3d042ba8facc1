// Package model defines Prism's domain records: articles and their chunks,
// narrative clusters, verified facts and the per-article bias results
// produced by an analysis run.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Article is one ingested news article. URL is the unique key.
type Article struct {
	ID          string     `json:"id" yaml:"id"`
	Source      string     `json:"source" yaml:"source"`
	URL         string     `json:"url" yaml:"url"`
	Title       string     `json:"title" yaml:"title"`
	Author      string     `json:"author,omitempty" yaml:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Text        string     `json:"text" yaml:"text"`
	Language    string     `json:"language" yaml:"language"`
	RawHTML     string     `json:"-" yaml:"-"`
	ScrapedAt   time.Time  `json:"scraped_at" yaml:"scraped_at"`
	Chunks      []Chunk    `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Scores      *Scores    `json:"scores,omitempty" yaml:"scores,omitempty"`
	ClusterID   string     `json:"cluster_id,omitempty" yaml:"cluster_id,omitempty"`
}

// Scores are the bias measurements persisted onto an article.
type Scores struct {
	Tone        float64 `json:"tone" yaml:"tone"`
	LexicalBias float64 `json:"lexical_bias" yaml:"lexical_bias"`
	Omission    float64 `json:"omission" yaml:"omission"`
	Consistency float64 `json:"consistency" yaml:"consistency"`
	BiasIndex   float64 `json:"bias_index" yaml:"bias_index"`
}

// Chunk is a bounded word window of an article's text. Embedding is kept
// in memory and in the similarity index; it is not persisted.
type Chunk struct {
	ID        string    `json:"chunk_id" yaml:"chunk_id"`
	Text      string    `json:"text" yaml:"text"`
	StartWord int       `json:"start_word" yaml:"start_word"`
	EndWord   int       `json:"end_word" yaml:"end_word"`
	Embedding []float32 `json:"-" yaml:"-"`
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// HasAuthor reports whether the article carries an author.
func (a *Article) HasAuthor() bool {
	return a.Author != ""
}

// HasTimestamp reports whether the publication time is known.
func (a *Article) HasTimestamp() bool {
	return a.PublishedAt != nil && !a.PublishedAt.IsZero()
}

// VectorID is the index key for one of the article's chunks.
func VectorID(articleID, chunkID string) string {
	return articleID + "_" + chunkID
}
