package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/prism/internal/bias"
	"github.com/abelbrown/prism/internal/cluster"
	"github.com/abelbrown/prism/internal/config"
	"github.com/abelbrown/prism/internal/facts"
	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/otel"
)

// scored is one article that made it through analysis.
type scored struct {
	article  *model.Article
	analysis bias.Analysis
}

// processCluster persists a new cluster for members, builds its fact
// ledger, scores every member against it and writes the summaries back.
func (o *Orchestrator) processCluster(ctx context.Context, query string, members []model.Article) (*model.ClusterResult, error) {
	trace := o.deps.Trace

	c := &model.Cluster{
		ID:        model.NewID(),
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.deps.Store.CreateCluster(c); err != nil {
		trace.Error(otel.KindStoreError, "store", err)
		return nil, fmt.Errorf("create cluster: %w", err)
	}
	log := logging.WithPrefix("cluster " + c.ID[:8])

	start := time.Now()
	sources := make([]facts.Source, len(members))
	for i, a := range members {
		sources[i] = facts.Source{ID: a.ID, Text: a.Text, URL: a.URL, Name: a.Source}
	}
	ledger, err := o.facts.Extract(ctx, sources)
	trace.Emit(stageEvent(otel.KindFacts, "facts", c.ID, start, len(ledger), err))
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}
	c.Facts = ledger

	analyzed, err := o.analyzeMembers(ctx, c.ID, members)
	if err != nil {
		return nil, err
	}

	results := make([]model.BiasResult, 0, len(analyzed))
	var toneSum float64
	clusterMean := meanTone(analyzed)
	for i, s := range analyzed {
		a := s.article
		om := o.omissions.Detect(ledger, a.Text)
		consistency := o.cfg.Bias.ConsistencyPlaceholder

		toneSum += s.analysis.Tone
		mean := toneSum / float64(i+1)
		if o.cfg.Bias.ToneMeanMode == config.ToneMeanCluster {
			mean = clusterMean
		}

		index := bias.BiasIndex(o.weights, s.analysis.Tone, mean, s.analysis.LexicalBias, om.Score, consistency)
		transparency := bias.TransparencyScore(om.Score, consistency, s.analysis.LexicalBias)

		sc := model.Scores{
			Tone:        s.analysis.Tone,
			LexicalBias: s.analysis.LexicalBias,
			Omission:    om.Score,
			Consistency: consistency,
			BiasIndex:   index,
		}
		if err := o.deps.Store.UpdateArticleScores(a.ID, sc, c.ID); err != nil {
			trace.Error(otel.KindStoreError, "store", err)
			return nil, fmt.Errorf("save scores for %s: %w", a.ID, err)
		}
		trace.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindBiasArticle, Comp: "bias", Cluster: c.ID, Article: a.ID,
			Extra: map[string]any{"bias_index": index, "transparency": transparency, "missing_facts": len(om.Missing)}})

		results = append(results, model.BiasResult{
			ArticleID:     a.ID,
			Source:        a.Source,
			Title:         a.Title,
			Tone:          s.analysis.Tone,
			LexicalBias:   s.analysis.LexicalBias,
			Subjectivity:  s.analysis.Subjectivity,
			Omission:      om.Score,
			Consistency:   consistency,
			BiasIndex:     index,
			Transparency:  transparency,
			LoadedPhrases: s.analysis.LoadedPhrases,
			MissingFacts:  len(om.Missing),
		})
	}

	start = time.Now()
	out := facts.Summarize(ctx, o.deps.Summarizer, ledger)
	if out.OK() {
		trace.Emit(stageEvent(otel.KindSummary, "summary", c.ID, start, len(ledger), nil))
	} else {
		log.Warn("fact summary failed", "err", out.Err)
		trace.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindSummaryError, Comp: "summary", Cluster: c.ID, Dur: time.Since(start), Err: out.Err.Error()})
	}
	c.FactSummary = out.Or(facts.SummaryFailed)
	c.FrameSummaries = FrameSummaries(results)
	c.CanonicalArticleID = cluster.Canonical(members)

	start = time.Now()
	err = o.deps.Store.UpdateCluster(c)
	trace.Emit(stageEvent(otel.KindPersist, "store", c.ID, start, len(results), err))
	if err != nil {
		return nil, fmt.Errorf("update cluster: %w", err)
	}

	log.Info("cluster processed", "articles", len(members), "scored", len(results), "facts", len(ledger))
	return &model.ClusterResult{
		ClusterID:     c.ID,
		ArticlesCount: len(members),
		FactsCount:    len(ledger),
		BiasResults:   results,
	}, nil
}

// analyzeMembers scores the text of every member, in order. An article
// that fails is skipped unless ctx is done.
func (o *Orchestrator) analyzeMembers(ctx context.Context, clusterID string, members []model.Article) ([]scored, error) {
	out := make([]scored, 0, len(members))
	for i := range members {
		a := &members[i]
		an, err := o.analyzer.Analyze(ctx, a.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logging.Warn("bias analysis failed, skipping article", "article", a.ID, "err", err)
			o.deps.Trace.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindBiasSkip, Comp: "bias", Cluster: clusterID, Article: a.ID, Err: err.Error()})
			continue
		}
		out = append(out, scored{article: a, analysis: an})
	}
	return out, nil
}

func meanTone(analyzed []scored) float64 {
	if len(analyzed) == 0 {
		return 0
	}
	var sum float64
	for _, s := range analyzed {
		sum += s.analysis.Tone
	}
	return sum / float64(len(analyzed))
}

// FrameSummaries derives one frame summary per bias result, keeping the
// first five loaded phrases.
func FrameSummaries(results []model.BiasResult) []model.FrameSummary {
	out := make([]model.FrameSummary, len(results))
	for i, r := range results {
		phrases := r.LoadedPhrases
		if len(phrases) > maxFramePhrases {
			phrases = phrases[:maxFramePhrases]
		}
		out[i] = model.FrameSummary{
			Source:        r.Source,
			Tone:          r.Tone,
			BiasIndex:     r.BiasIndex,
			Transparency:  r.Transparency,
			LoadedPhrases: phrases,
		}
	}
	return out
}

func stageEvent(kind otel.EventKind, comp, clusterID string, start time.Time, count int, err error) otel.Event {
	e := otel.Event{Level: otel.LevelInfo, Kind: kind, Comp: comp, Cluster: clusterID, Dur: time.Since(start), Count: count}
	if err != nil {
		e.Level = otel.LevelError
		e.Err = err.Error()
	}
	return e
}
