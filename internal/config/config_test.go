package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Fatalf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"weights over one", func(c *Config) { c.Bias.ToneWeight = 0.9 }, "sum to <= 1"},
		{"negative weight", func(c *Config) { c.Bias.LexicalWeight = -0.1 }, "lexical_weight must be >= 0"},
		{"zero eps", func(c *Config) { c.Clustering.Eps = 0 }, "clustering.eps"},
		{"min samples", func(c *Config) { c.Clustering.MinSamples = 0 }, "min_samples"},
		{"overlap >= size", func(c *Config) { c.Embedding.ChunkOverlap = 512 }, "chunk_overlap"},
		{"bad tone mode", func(c *Config) { c.Bias.ToneMeanMode = "median" }, "tone_mean_mode"},
		{"no articles", func(c *Config) { c.Pipeline.MaxArticles = 0 }, "max_articles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			errs := c.Validate()
			if len(errs) == 0 {
				t.Fatal("Validate() returned no errors")
			}
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.wantSub) {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want an error containing %q", errs, tt.wantSub)
			}
		})
	}
}

func TestValidateOrder(t *testing.T) {
	c := Default()
	c.Bias.ToneWeight = -1
	c.Bias.LexicalWeight = -1
	c.Bias.OmissionWeight = -1
	c.Bias.ConsistencyWeight = -1
	c.Clustering.Eps = 0

	want := []string{"bias.tone_weight", "bias.lexical_weight", "bias.omission_weight", "bias.consistency_weight", "clustering.eps"}
	for run := 0; run < 20; run++ {
		errs := c.Validate()
		if len(errs) != len(want) {
			t.Fatalf("Validate() = %v, want %d errors", errs, len(want))
		}
		for i, sub := range want {
			if !strings.HasPrefix(errs[i].Error(), sub) {
				t.Fatalf("run %d: errs[%d] = %q, want prefix %q", run, i, errs[i], sub)
			}
		}
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prism.yaml")
	body := "clustering:\n  eps: 0.35\nbias:\n  tone_mean_mode: cluster\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRISM_CLUSTERING_MIN_SAMPLES", "3")
	t.Setenv("NEWSAPI_KEY", "news-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Clustering.Eps != 0.35 {
		t.Errorf("Eps = %v, want 0.35", cfg.Clustering.Eps)
	}
	if cfg.Clustering.MinSamples != 3 {
		t.Errorf("MinSamples = %d, want 3 from env", cfg.Clustering.MinSamples)
	}
	if cfg.Bias.ToneMeanMode != ToneMeanCluster {
		t.Errorf("ToneMeanMode = %q, want %q", cfg.Bias.ToneMeanMode, ToneMeanCluster)
	}
	if cfg.Ingest.NewsAPIKey != "news-key" {
		t.Errorf("NewsAPIKey = %q, want fallback from NEWSAPI_KEY", cfg.Ingest.NewsAPIKey)
	}
	if cfg.Embedding.ChunkSize != 512 {
		t.Errorf("ChunkSize = %d, want default 512", cfg.Embedding.ChunkSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() of missing file returned nil error")
	}
}
