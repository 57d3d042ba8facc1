// Package pipeline runs a full cross-source analysis for a query: ingest,
// embed, cluster, extract facts, score every article and persist the
// cluster reports.
package pipeline

import (
	"context"
	"errors"

	"github.com/abelbrown/prism/internal/bias"
	"github.com/abelbrown/prism/internal/brain"
	"github.com/abelbrown/prism/internal/config"
	"github.com/abelbrown/prism/internal/embed"
	"github.com/abelbrown/prism/internal/facts"
	"github.com/abelbrown/prism/internal/index"
	"github.com/abelbrown/prism/internal/ingest"
	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/otel"
)

// Ingester finds and stores the articles for a request.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) ([]model.Article, error)
}

// VectorIndex stores chunk vectors and answers similarity queries.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []index.Vector) error
	DeleteWhere(ctx context.Context, filter index.Filter) (int, error)
	Query(ctx context.Context, vec []float32, topK int, filter index.Filter) ([]index.Match, error)
}

// Store persists what a run produces.
type Store interface {
	UpdateArticleChunks(id string, chunks []model.Chunk) error
	UpdateArticleScores(id string, sc model.Scores, clusterID string) error
	CreateCluster(c *model.Cluster) error
	UpdateCluster(c *model.Cluster) error
}

// Deps are the process-scoped collaborators of an Orchestrator. Store,
// Index, Embedder and Ingest are required. Verifier and Summarizer may be
// nil, which leaves facts unverified and summaries failed. Recognizer,
// Classifier and Tagger fall back to the heuristic defaults when nil.
// Trace may be nil.
type Deps struct {
	Store      Store
	Index      VectorIndex
	Embedder   embed.Embedder
	Ingest     Ingester
	Verifier   brain.Provider
	Summarizer brain.Provider
	Recognizer facts.Recognizer
	Classifier bias.SentimentClassifier
	Tagger     bias.Tagger
	Trace      *otel.Logger
	Config     *config.Config
}

func (d Deps) validate() error {
	var errs []error
	if d.Store == nil {
		errs = append(errs, errors.New("pipeline: Store is required"))
	}
	if d.Index == nil {
		errs = append(errs, errors.New("pipeline: Index is required"))
	}
	if d.Embedder == nil {
		errs = append(errs, errors.New("pipeline: Embedder is required"))
	}
	if d.Ingest == nil {
		errs = append(errs, errors.New("pipeline: Ingest is required"))
	}
	return errors.Join(errs...)
}
