package main

import (
	"fmt"
	"os"

	"github.com/abelbrown/prism/internal/brain"
	"github.com/abelbrown/prism/internal/config"
	"github.com/abelbrown/prism/internal/embed"
	"github.com/abelbrown/prism/internal/index"
	"github.com/abelbrown/prism/internal/ingest"
	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/otel"
	"github.com/abelbrown/prism/internal/pipeline"
	"github.com/abelbrown/prism/internal/store"
)

// openStore opens the configured database, creating its directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := dataDir(cfg); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// buildDeps wires every process-scoped handle for an analysis run. The
// returned cleanup closes the store and the trace. needTrace forces a
// trace logger even when no trace file is configured.
func buildDeps(cfg *config.Config, tracePath string, needTrace bool) (pipeline.Deps, func(), error) {
	st, err := openStore(cfg)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	var trace *otel.Logger
	if tracePath == "" {
		tracePath = firstNonEmpty(os.Getenv(otel.EnvTrace), cfg.Pipeline.TraceFile)
	}
	if tracePath != "" {
		trace, err = otel.OpenFile(tracePath)
		if err != nil {
			st.Close()
			return pipeline.Deps{}, nil, err
		}
		logging.Info("tracing pipeline", "file", tracePath, "run", trace.RunID())
	} else if needTrace {
		trace = otel.NewNullLogger()
	}

	cleanup := func() {
		trace.Close()
		if err := st.Close(); err != nil {
			logging.Warn("close database", "err", err)
		}
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		cleanup()
		return pipeline.Deps{}, nil, err
	}
	searcher, err := newSearcher(cfg.Ingest)
	if err != nil {
		cleanup()
		return pipeline.Deps{}, nil, err
	}
	verifier, summarizer := newReasoners(cfg.Reasoning)

	d := pipeline.Deps{
		Store:      st,
		Index:      index.New(indexDimension(cfg.Embedding)),
		Embedder:   embedder,
		Ingest:     ingest.NewService(searcher, ingest.NewScraper(cfg.Ingest.UserAgent), st, cfg.Ingest.ScrapeWorkers),
		Verifier:   verifier,
		Summarizer: summarizer,
		Trace:      trace,
		Config:     cfg,
	}
	return d, cleanup, nil
}

func newEmbedder(c config.EmbeddingConfig) (embed.Embedder, error) {
	switch c.Provider {
	case "jina":
		if c.APIKey == "" {
			return nil, fmt.Errorf("embedding provider jina needs JINA_API_KEY")
		}
		return embed.NewJinaEmbedder(c.APIKey, c.Model, c.Endpoint, c.Dimension), nil
	case "ollama":
		return embed.NewOllamaEmbedder(c.Endpoint, c.Model), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", c.Provider)
}

// indexDimension is the vector width the index should enforce. Only
// Jina honours a requested width; other backends return their model's
// native width, which the index takes from the first vector.
func indexDimension(c config.EmbeddingConfig) int {
	if c.Provider == "jina" {
		return c.Dimension
	}
	return 0
}

func newSearcher(c config.IngestConfig) (ingest.Searcher, error) {
	switch c.Provider {
	case "newsapi":
		return ingest.NewNewsAPI(c.NewsAPIURL, c.NewsAPIKey), nil
	case "rss":
		return ingest.NewRSSSearch(c.RSSTemplate, c.UserAgent), nil
	}
	return nil, fmt.Errorf("unknown ingest provider %q", c.Provider)
}

// newReasoners returns the verification and summary providers. Each
// prefers its own endpoint, then the other one, then the local model.
func newReasoners(c config.ReasoningConfig) (verifier, summarizer brain.Provider) {
	vc := brain.GroqConfig(c.VerifyAPIKey, c.VerifyModel)
	if c.VerifyEndpoint != "" {
		vc.Endpoint = c.VerifyEndpoint
	}
	sc := brain.GrokConfig(c.SummaryAPIKey, c.SummaryModel)
	if c.SummaryEndpoint != "" {
		sc.Endpoint = c.SummaryEndpoint
	}
	verify := brain.NewHTTPProvider(vc, c.RequestsPerMin)
	summary := brain.NewHTTPProvider(sc, c.RequestsPerMin)

	verifiers := []brain.Provider{verify, summary}
	summarizers := []brain.Provider{summary, verify}
	if c.LocalModel != "" {
		local := brain.NewHTTPProvider(brain.OllamaConfig(c.LocalEndpoint, c.LocalModel), 0)
		verifiers = append(verifiers, local)
		summarizers = append(summarizers, local)
	} else if !verify.Available() && !summary.Available() {
		logging.Warn("no reasoning API key set, facts stay unverified and summaries fail")
	}
	return brain.NewProviderManager(verifiers...), brain.NewProviderManager(summarizers...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
