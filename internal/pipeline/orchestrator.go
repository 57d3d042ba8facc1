package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/abelbrown/prism/internal/bias"
	"github.com/abelbrown/prism/internal/cluster"
	"github.com/abelbrown/prism/internal/config"
	"github.com/abelbrown/prism/internal/embed"
	"github.com/abelbrown/prism/internal/entities"
	"github.com/abelbrown/prism/internal/facts"
	"github.com/abelbrown/prism/internal/index"
	"github.com/abelbrown/prism/internal/ingest"
	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/omission"
	"github.com/abelbrown/prism/internal/otel"
)

const (
	maxMetadataText  = 500 // chunk text kept in index metadata
	maxFramePhrases  = 5
	minClusterMember = 2
)

// Query is one analysis request.
type Query struct {
	Text    string
	From    *time.Time
	To      *time.Time
	Sources []string
}

// Orchestrator sequences a run. One Analyze call at a time per
// Orchestrator; stages within a run are sequential.
type Orchestrator struct {
	deps      Deps
	cfg       *config.Config
	clusterer *cluster.Engine
	facts     *facts.Engine
	analyzer  *bias.Analyzer
	omissions *omission.Detector
	weights   bias.Weights
}

// New builds an Orchestrator from d. A nil Config selects config.Default.
func New(d Deps) (*Orchestrator, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("pipeline: invalid config: %w", errors.Join(errs...))
	}
	if d.Recognizer == nil {
		d.Recognizer = entities.New()
	}
	if d.Tagger == nil {
		d.Tagger = bias.ProseTagger{}
	}

	w := bias.Weights{
		Tone:        cfg.Bias.ToneWeight,
		Lexical:     cfg.Bias.LexicalWeight,
		Omission:    cfg.Bias.OmissionWeight,
		Consistency: cfg.Bias.ConsistencyWeight,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	return &Orchestrator{
		deps:      d,
		cfg:       cfg,
		clusterer: cluster.NewEngine(d.Embedder, d.Index, cfg.Clustering.Eps, cfg.Clustering.MinSamples),
		facts:     facts.NewEngine(d.Recognizer, d.Verifier),
		analyzer:  bias.NewAnalyzer(d.Classifier, d.Tagger),
		omissions: omission.New(),
		weights:   w,
	}, nil
}

// Analyze runs the whole pipeline for q. Per-article problems are logged
// and the article skipped; a failure inside a cluster aborts the run.
func (o *Orchestrator) Analyze(ctx context.Context, q Query) (*model.AnalysisResult, error) {
	trace := o.deps.Trace
	runStart := time.Now()
	trace.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindRunStart, Comp: "pipeline", Query: q.Text})

	res, err := o.analyze(ctx, q)
	if err != nil {
		trace.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindRunError, Comp: "pipeline", Query: q.Text, Dur: time.Since(runStart), Err: err.Error()})
		return nil, err
	}
	kind := otel.KindRunComplete
	if res.NoArticles {
		kind = otel.KindRunEmpty
	}
	trace.Emit(otel.Event{Level: otel.LevelInfo, Kind: kind, Comp: "pipeline", Query: q.Text, Dur: time.Since(runStart), Count: len(res.Clusters)})
	return res, nil
}

func (o *Orchestrator) analyze(ctx context.Context, q Query) (*model.AnalysisResult, error) {
	trace := o.deps.Trace

	start := time.Now()
	articles, err := o.deps.Ingest.Ingest(ctx, ingest.Request{
		Query:   q.Text,
		From:    q.From,
		To:      q.To,
		Sources: q.Sources,
		Limit:   o.cfg.Pipeline.MaxArticles,
	})
	trace.Stage(otel.KindIngest, "ingest", start, len(articles), err)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if len(articles) > o.cfg.Pipeline.MaxArticles {
		articles = articles[:o.cfg.Pipeline.MaxArticles]
	}
	if len(articles) == 0 {
		logging.Info("no articles found", "query", q.Text)
		return &model.AnalysisResult{Query: q.Text, NoArticles: true, Message: model.NoArticlesMessage}, nil
	}

	o.embedArticles(ctx, articles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, len(articles))
	for i := range articles {
		ids[i] = articles[i].ID
	}

	start = time.Now()
	groups, err := o.clusterer.Cluster(ctx, q.Text, ids)
	trace.Stage(otel.KindCluster, "cluster", start, len(groups), err)
	if err != nil {
		return nil, fmt.Errorf("cluster articles: %w", err)
	}

	labels := make([]string, 0, len(groups))
	for label, members := range groups {
		if len(members) >= minClusterMember {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	result := &model.AnalysisResult{
		Query:         q.Text,
		TotalArticles: len(articles),
		Clusters:      []model.ClusterResult{},
	}
	for _, label := range labels {
		cr, err := o.processCluster(ctx, q.Text, membersOf(articles, groups[label]))
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", label, err)
		}
		result.Clusters = append(result.Clusters, *cr)
	}
	logging.Info("analysis complete", "query", q.Text, "articles", len(articles), "clusters", len(result.Clusters))
	return result, nil
}

// embedArticles chunks and embeds each article, records the chunks on
// the article and in the store, and upserts the vectors in batches.
// Failures skip the article or batch.
func (o *Orchestrator) embedArticles(ctx context.Context, articles []model.Article) {
	trace := o.deps.Trace
	var vectors []index.Vector
	var embedded []string

	for i := range articles {
		a := &articles[i]
		if ctx.Err() != nil {
			return
		}
		chunks := embed.Chunk(a.Text, o.cfg.Embedding.ChunkSize, o.cfg.Embedding.ChunkOverlap)
		if len(chunks) == 0 {
			logging.Debug("article has no text to embed", "article", a.ID)
			continue
		}

		start := time.Now()
		texts := make([]string, len(chunks))
		for j, c := range chunks {
			texts[j] = c.Text
		}
		vecs, err := embed.Batch(ctx, o.deps.Embedder, texts)
		if err == nil && len(vecs) != len(chunks) {
			err = fmt.Errorf("got %d vectors for %d chunks", len(vecs), len(chunks))
		}
		if err != nil {
			logging.Warn("embedding failed, skipping article", "article", a.ID, "err", err)
			trace.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindEmbedError, Comp: "embed", Article: a.ID, Err: err.Error()})
			continue
		}

		for j := range chunks {
			chunks[j].Embedding = vecs[j]
		}
		if err := o.deps.Store.UpdateArticleChunks(a.ID, chunks); err != nil {
			logging.Warn("saving chunks failed, skipping article", "article", a.ID, "err", err)
			trace.Error(otel.KindStoreError, "store", err)
			continue
		}
		a.Chunks = chunks
		embedded = append(embedded, a.ID)
		trace.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindEmbedArticle, Comp: "embed", Article: a.ID, Count: len(chunks), Dur: time.Since(start)})

		for _, c := range chunks {
			vectors = append(vectors, index.Vector{
				ID:     model.VectorID(a.ID, c.ID),
				Values: c.Embedding,
				Metadata: index.Metadata{
					ArticleID:   a.ID,
					ChunkID:     c.ID,
					Text:        truncate(c.Text, maxMetadataText),
					Source:      a.Source,
					PublishedAt: a.PublishedAt,
				},
			})
		}
	}

	if len(embedded) > 0 {
		// drop chunks left over from an earlier chunking of the same articles
		if n, err := o.deps.Index.DeleteWhere(ctx, index.ArticleFilter(embedded)); err != nil {
			logging.Warn("index cleanup failed", "err", err)
			trace.Warn(otel.KindIndexError, "index", "stale vector cleanup: "+err.Error())
		} else if n > 0 {
			logging.Debug("replaced stale chunk vectors", "count", n)
		}
	}

	batch := o.cfg.Pipeline.UpsertBatch
	for lo := 0; lo < len(vectors); lo += batch {
		hi := min(lo+batch, len(vectors))
		start := time.Now()
		if err := o.deps.Index.Upsert(ctx, vectors[lo:hi]); err != nil {
			logging.Warn("index upsert failed", "batch_start", lo, "size", hi-lo, "err", err)
			trace.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindIndexError, Comp: "index", Dur: time.Since(start), Count: hi - lo, Err: err.Error()})
			continue
		}
		trace.Stage(otel.KindIndexUpsert, "index", start, hi-lo, nil)
	}
}

// membersOf returns the articles whose IDs are in ids, in ingestion order.
func membersOf(articles []model.Article, ids []string) []model.Article {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Article
	for _, a := range articles {
		if want[a.ID] {
			out = append(out, a)
			delete(want, a.ID)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
