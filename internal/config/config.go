// Package config loads Prism's runtime configuration from defaults, an
// optional config file, a .env file and PRISM_* environment variables.
package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. PRISM_CLUSTERING_EPS.
const EnvPrefix = "PRISM"

// Tone mean modes for bias scoring.
const (
	ToneMeanRunning = "running"
	ToneMeanCluster = "cluster"
)

// Config is the full runtime configuration.
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Bias       BiasConfig       `yaml:"bias"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Reasoning  ReasoningConfig  `yaml:"reasoning"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

// EmbeddingConfig selects the embedding backend and chunking window.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"` // "jina" or "ollama"
	Model        string `yaml:"model"`    // empty picks the provider default
	Endpoint     string `yaml:"endpoint"` // empty picks the provider default
	APIKey       string `yaml:"api_key"`
	Dimension    int    `yaml:"dimension"` // requested width, jina only
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// ClusteringConfig holds DBSCAN parameters.
type ClusteringConfig struct {
	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
}

// BiasConfig holds Bias Index weights and scoring knobs.
type BiasConfig struct {
	ToneWeight        float64 `yaml:"tone_weight"`
	LexicalWeight     float64 `yaml:"lexical_weight"`
	OmissionWeight    float64 `yaml:"omission_weight"`
	ConsistencyWeight float64 `yaml:"consistency_weight"`

	// ConsistencyPlaceholder stands in for a consistency measure that is
	// not computed yet.
	ConsistencyPlaceholder float64 `yaml:"consistency_placeholder"`
	ToneMeanMode           string  `yaml:"tone_mean_mode"`
}

// PipelineConfig bounds a single analysis run.
type PipelineConfig struct {
	MaxArticles int    `yaml:"max_articles"`
	UpsertBatch int    `yaml:"upsert_batch"`
	TraceFile   string `yaml:"trace_file"`
}

// ReasoningConfig configures the two chat-completion endpoints.
type ReasoningConfig struct {
	VerifyEndpoint  string `yaml:"verify_endpoint"`
	VerifyModel     string `yaml:"verify_model"`
	VerifyAPIKey    string `yaml:"verify_api_key"`
	SummaryEndpoint string `yaml:"summary_endpoint"`
	SummaryModel    string `yaml:"summary_model"`
	SummaryAPIKey   string `yaml:"summary_api_key"`
	RequestsPerMin  int    `yaml:"requests_per_min"`

	// LocalModel enables an Ollama fallback for both roles.
	LocalEndpoint string `yaml:"local_endpoint"`
	LocalModel    string `yaml:"local_model"`
}

// IngestConfig configures article discovery.
type IngestConfig struct {
	Provider      string `yaml:"provider"` // "newsapi" or "rss"
	NewsAPIURL    string `yaml:"newsapi_url"`
	NewsAPIKey    string `yaml:"newsapi_key"`
	RSSTemplate   string `yaml:"rss_template"`
	ScrapeWorkers int    `yaml:"scrape_workers"`
	UserAgent     string `yaml:"user_agent"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the text logger.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // empty means stderr
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:     "jina",
			Dimension:    384,
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Clustering: ClusteringConfig{
			Eps:        0.5,
			MinSamples: 2,
		},
		Bias: BiasConfig{
			ToneWeight:             0.4,
			LexicalWeight:          0.25,
			OmissionWeight:         0.2,
			ConsistencyWeight:      0.15,
			ConsistencyPlaceholder: 0.1,
			ToneMeanMode:           ToneMeanRunning,
		},
		Pipeline: PipelineConfig{
			MaxArticles: 50,
			UpsertBatch: 100,
		},
		Reasoning: ReasoningConfig{
			VerifyEndpoint:  "https://api.groq.com/openai/v1/chat/completions",
			VerifyModel:     "llama-3.3-70b-versatile",
			SummaryEndpoint: "https://api.x.ai/v1/chat/completions",
			SummaryModel:    "grok-beta",
			RequestsPerMin:  30,
		},
		Ingest: IngestConfig{
			Provider:      "newsapi",
			NewsAPIURL:    "https://newsapi.org/v2/everything",
			RSSTemplate:   "https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en",
			ScrapeWorkers: 4,
			UserAgent:     "Mozilla/5.0 (compatible; prism/0.1)",
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "prism.db"
	}
	return filepath.Join(home, ".prism", "prism.db")
}

// Load builds a Config from defaults, the optional file at path, .env and
// the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	cfg := Default()
	registerDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	applyKeyFallbacks(cfg)
	return cfg, nil
}

// registerDefaults makes every key known to viper so env overrides reach
// Unmarshal even when no config file sets them.
func registerDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"embedding.provider":           cfg.Embedding.Provider,
		"embedding.model":              cfg.Embedding.Model,
		"embedding.endpoint":           cfg.Embedding.Endpoint,
		"embedding.api_key":            cfg.Embedding.APIKey,
		"embedding.dimension":          cfg.Embedding.Dimension,
		"embedding.chunk_size":         cfg.Embedding.ChunkSize,
		"embedding.chunk_overlap":      cfg.Embedding.ChunkOverlap,
		"clustering.eps":               cfg.Clustering.Eps,
		"clustering.min_samples":       cfg.Clustering.MinSamples,
		"bias.tone_weight":             cfg.Bias.ToneWeight,
		"bias.lexical_weight":          cfg.Bias.LexicalWeight,
		"bias.omission_weight":         cfg.Bias.OmissionWeight,
		"bias.consistency_weight":      cfg.Bias.ConsistencyWeight,
		"bias.consistency_placeholder": cfg.Bias.ConsistencyPlaceholder,
		"bias.tone_mean_mode":          cfg.Bias.ToneMeanMode,
		"pipeline.max_articles":        cfg.Pipeline.MaxArticles,
		"pipeline.upsert_batch":        cfg.Pipeline.UpsertBatch,
		"pipeline.trace_file":          cfg.Pipeline.TraceFile,
		"reasoning.verify_endpoint":    cfg.Reasoning.VerifyEndpoint,
		"reasoning.verify_model":       cfg.Reasoning.VerifyModel,
		"reasoning.verify_api_key":     cfg.Reasoning.VerifyAPIKey,
		"reasoning.summary_endpoint":   cfg.Reasoning.SummaryEndpoint,
		"reasoning.summary_model":      cfg.Reasoning.SummaryModel,
		"reasoning.summary_api_key":    cfg.Reasoning.SummaryAPIKey,
		"reasoning.requests_per_min":   cfg.Reasoning.RequestsPerMin,
		"reasoning.local_endpoint":     cfg.Reasoning.LocalEndpoint,
		"reasoning.local_model":        cfg.Reasoning.LocalModel,
		"ingest.provider":              cfg.Ingest.Provider,
		"ingest.newsapi_url":           cfg.Ingest.NewsAPIURL,
		"ingest.newsapi_key":           cfg.Ingest.NewsAPIKey,
		"ingest.rss_template":          cfg.Ingest.RSSTemplate,
		"ingest.scrape_workers":        cfg.Ingest.ScrapeWorkers,
		"ingest.user_agent":            cfg.Ingest.UserAgent,
		"store.path":                   cfg.Store.Path,
		"log.level":                    cfg.Log.Level,
		"log.dir":                      cfg.Log.Dir,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// applyKeyFallbacks fills API keys from the conventional provider env vars
// when the PRISM_* form is not set.
func applyKeyFallbacks(cfg *Config) {
	if cfg.Ingest.NewsAPIKey == "" {
		cfg.Ingest.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("JINA_API_KEY")
	}
	if cfg.Reasoning.VerifyAPIKey == "" {
		cfg.Reasoning.VerifyAPIKey = firstEnv("GROQ_API_KEY", "OPENAI_API_KEY")
	}
	if cfg.Reasoning.SummaryAPIKey == "" {
		cfg.Reasoning.SummaryAPIKey = firstEnv("GROK_API_KEY", "XAI_API_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() []error {
	errs := make([]error, 0)

	b := c.Bias
	weights := []struct {
		name string
		w    float64
	}{
		{"tone_weight", b.ToneWeight},
		{"lexical_weight", b.LexicalWeight},
		{"omission_weight", b.OmissionWeight},
		{"consistency_weight", b.ConsistencyWeight},
	}
	for _, wt := range weights {
		if wt.w < 0 || math.IsNaN(wt.w) {
			errs = append(errs, errors.Errorf("bias.%s must be >= 0, got %v", wt.name, wt.w))
		}
	}
	// small epsilon so 0.4+0.25+0.2+0.15 is not rejected by rounding
	if sum := b.ToneWeight + b.LexicalWeight + b.OmissionWeight + b.ConsistencyWeight; sum > 1+1e-9 {
		errs = append(errs, errors.Errorf("bias weights must sum to <= 1, got %.4f", sum))
	}
	if b.ConsistencyPlaceholder < 0 || b.ConsistencyPlaceholder > 1 {
		errs = append(errs, errors.Errorf("bias.consistency_placeholder must be in [0,1], got %v", b.ConsistencyPlaceholder))
	}
	if b.ToneMeanMode != ToneMeanRunning && b.ToneMeanMode != ToneMeanCluster {
		errs = append(errs, errors.Errorf("bias.tone_mean_mode must be %q or %q, got %q", ToneMeanRunning, ToneMeanCluster, b.ToneMeanMode))
	}

	if c.Clustering.Eps <= 0 {
		errs = append(errs, errors.Errorf("clustering.eps must be > 0, got %v", c.Clustering.Eps))
	}
	if c.Clustering.MinSamples < 1 {
		errs = append(errs, errors.Errorf("clustering.min_samples must be >= 1, got %d", c.Clustering.MinSamples))
	}

	if c.Embedding.ChunkSize <= 0 {
		errs = append(errs, errors.Errorf("embedding.chunk_size must be > 0, got %d", c.Embedding.ChunkSize))
	}
	if c.Embedding.ChunkOverlap < 0 || c.Embedding.ChunkOverlap >= c.Embedding.ChunkSize {
		errs = append(errs, errors.Errorf("embedding.chunk_overlap must be in [0, chunk_size), got %d", c.Embedding.ChunkOverlap))
	}

	if c.Pipeline.MaxArticles <= 0 {
		errs = append(errs, errors.Errorf("pipeline.max_articles must be > 0, got %d", c.Pipeline.MaxArticles))
	}
	if c.Pipeline.UpsertBatch <= 0 {
		errs = append(errs, errors.Errorf("pipeline.upsert_batch must be > 0, got %d", c.Pipeline.UpsertBatch))
	}
	if c.Ingest.ScrapeWorkers <= 0 {
		errs = append(errs, errors.Errorf("ingest.scrape_workers must be > 0, got %d", c.Ingest.ScrapeWorkers))
	}
	return errs
}
