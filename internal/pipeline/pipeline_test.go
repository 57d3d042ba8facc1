package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/abelbrown/prism/internal/bias"
	"github.com/abelbrown/prism/internal/brain"
	"github.com/abelbrown/prism/internal/config"
	"github.com/abelbrown/prism/internal/facts"
	"github.com/abelbrown/prism/internal/index"
	"github.com/abelbrown/prism/internal/ingest"
	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/otel"
	"github.com/abelbrown/prism/internal/store"
)

// keywordEmbedder maps a text to the vector of the first keyword it
// contains. Texts with no keyword get the query vector.
type keywordEmbedder struct {
	vectors map[string][]float32
	fail    string
}

func (e keywordEmbedder) Available() bool { return true }
func (e keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("embedding backend down")
	}
	for _, kw := range []string{"hurricane", "election", "recipe"} {
		if strings.Contains(strings.ToLower(text), kw) {
			return e.vectors[kw], nil
		}
	}
	return []float32{0.6, 0.6, 0.2}, nil
}

var testVectors = map[string][]float32{
	"hurricane": {1, 0.1, 0},
	"election":  {0.1, 1, 0},
	"recipe":    {0, 0, 1},
}

type savingIngester struct {
	st       *store.Store
	articles []model.Article
	reqs     []ingest.Request
}

func (s *savingIngester) Ingest(_ context.Context, req ingest.Request) ([]model.Article, error) {
	s.reqs = append(s.reqs, req)
	out := make([]model.Article, len(s.articles))
	for i, a := range s.articles {
		if _, err := s.st.SaveArticle(&a); err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

type stubProvider struct {
	reply string
	err   error
}

func (s stubProvider) Name() string    { return "stub" }
func (s stubProvider) Available() bool { return true }
func (s stubProvider) Generate(context.Context, brain.Request) (brain.Response, error) {
	if s.err != nil {
		return brain.Response{}, s.err
	}
	return brain.Response{Content: s.reply}, nil
}

// failingStore fails UpdateCluster.
type failingStore struct {
	*store.Store
}

func (failingStore) UpdateCluster(*model.Cluster) error { return errors.New("disk full") }

func testArticles() []model.Article {
	return []model.Article{
		{Source: "Alpha News", URL: "https://alpha.example/storm", Title: "Hurricane Delta hits Miami", Author: "Sam Reed",
			Text: "Hurricane Delta struck Miami on Monday. Officials in Florida said the hurricane caused devastating damage to thousands of homes. The outrageous response from Washington was criticized."},
		{Source: "Beta Wire", URL: "https://beta.example/election", Title: "Election results delayed",
			Text: "Election officials in Georgia delayed the count on Tuesday. Governor Kemp said the election process remains secure and transparent."},
		{Source: "Gamma Daily", URL: "https://gamma.example/storm", Title: "Miami recovers after hurricane",
			Text: "Hurricane Delta struck Miami on Monday night. Residents in Florida began cleanup after the hurricane damaged homes across the city."},
		{Source: "Delta Post", URL: "https://delta.example/recipe", Title: "Soup recipe",
			Text: "This recipe for winter soup takes about an hour to make and serves four people comfortably."},
		{Source: "Epsilon Times", URL: "https://epsilon.example/election", Title: "Georgia count resumes",
			Text: "Election workers in Georgia resumed the count on Wednesday. Governor Kemp said the election would be certified this week."},
	}
}

func newTestOrchestrator(t *testing.T, mutate func(*Deps)) (*Orchestrator, *store.Store, *index.HNSW) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	idx := index.New(3)
	d := Deps{
		Store:      st,
		Index:      idx,
		Embedder:   keywordEmbedder{vectors: testVectors},
		Ingest:     &savingIngester{st: st, articles: testArticles()},
		Summarizer: stubProvider{reply: "Delta struck Miami."},
	}
	if mutate != nil {
		mutate(&d)
	}
	o, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, st, idx
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error for missing deps")
	} else {
		for _, name := range []string{"Store", "Index", "Embedder", "Ingest"} {
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error %q does not name %s", err, name)
			}
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	cfg := config.Default()
	cfg.Bias.ToneWeight = 0.9
	_, err = New(Deps{Store: st, Index: index.New(3), Embedder: keywordEmbedder{}, Ingest: &savingIngester{st: st}, Config: cfg})
	if err == nil {
		t.Error("expected error for weights that do not sum to 1")
	}
}

func TestAnalyzeNoArticles(t *testing.T) {
	o, st, _ := newTestOrchestrator(t, func(d *Deps) {
		d.Ingest = &savingIngester{st: d.Store.(*store.Store)}
	})

	res, err := o.Analyze(context.Background(), Query{Text: "nothing here"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.NoArticles || res.Message != model.NoArticlesMessage {
		t.Errorf("result = %+v, want no-articles result", res)
	}
	if len(res.Clusters) != 0 {
		t.Errorf("clusters = %d, want 0", len(res.Clusters))
	}
	clusters, err := st.ListClusters("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 0 {
		t.Errorf("stored clusters = %d, want 0", len(clusters))
	}
}

func TestAnalyzeClusters(t *testing.T) {
	ing := (*savingIngester)(nil)
	o, st, idx := newTestOrchestrator(t, func(d *Deps) {
		ing = d.Ingest.(*savingIngester)
	})

	res, err := o.Analyze(context.Background(), Query{Text: "news", Sources: []string{"alpha"}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(ing.reqs) != 1 || ing.reqs[0].Limit != 50 || ing.reqs[0].Query != "news" || len(ing.reqs[0].Sources) != 1 {
		t.Errorf("ingest requests = %+v", ing.reqs)
	}
	if res.TotalArticles != 5 {
		t.Errorf("TotalArticles = %d, want 5", res.TotalArticles)
	}
	if idx.Len() != 5 {
		t.Errorf("indexed vectors = %d, want 5", idx.Len())
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("clusters = %d, want 2 (recipe article is noise)", len(res.Clusters))
	}

	wantSources := [][]string{{"Alpha News", "Gamma Daily"}, {"Beta Wire", "Epsilon Times"}}
	for i, cr := range res.Clusters {
		if cr.ArticlesCount != 2 || len(cr.BiasResults) != 2 {
			t.Fatalf("cluster %d: articles=%d results=%d", i, cr.ArticlesCount, len(cr.BiasResults))
		}
		for j, br := range cr.BiasResults {
			if br.Source != wantSources[i][j] {
				t.Errorf("cluster %d result %d source = %q, want %q", i, j, br.Source, wantSources[i][j])
			}
			if br.BiasIndex < 0 || br.BiasIndex > 100 || br.Transparency < 0 || br.Transparency > 100 {
				t.Errorf("scores out of range: %+v", br)
			}
			if br.Consistency != 0.1 {
				t.Errorf("consistency = %v, want placeholder 0.1", br.Consistency)
			}
		}

		c, err := st.Cluster(cr.ClusterID)
		if err != nil {
			t.Fatalf("stored cluster %s: %v", cr.ClusterID, err)
		}
		if c.Query != "news" {
			t.Errorf("cluster query = %q", c.Query)
		}
		if c.FactSummary != "Delta struck Miami." {
			t.Errorf("FactSummary = %q", c.FactSummary)
		}
		if len(c.Facts) != cr.FactsCount {
			t.Errorf("stored facts = %d, FactsCount = %d", len(c.Facts), cr.FactsCount)
		}
		if len(c.FrameSummaries) != 2 {
			t.Errorf("frame summaries = %d, want 2", len(c.FrameSummaries))
		}
		if c.CanonicalArticleID != cr.BiasResults[0].ArticleID && c.CanonicalArticleID != cr.BiasResults[1].ArticleID {
			t.Errorf("canonical %s is not a member", c.CanonicalArticleID)
		}

		members, err := st.ArticlesByCluster(cr.ClusterID)
		if err != nil {
			t.Fatal(err)
		}
		if len(members) != 2 {
			t.Errorf("articles assigned to cluster = %d, want 2", len(members))
		}
		for _, m := range members {
			if m.Scores == nil || len(m.Chunks) == 0 {
				t.Errorf("article %s missing scores or chunks", m.ID)
			}
		}
	}
}

func TestAnalyzeSummaryFailure(t *testing.T) {
	o, st, _ := newTestOrchestrator(t, func(d *Deps) {
		d.Summarizer = stubProvider{err: errors.New("rate limited")}
	})

	res, err := o.Analyze(context.Background(), Query{Text: "news"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for _, cr := range res.Clusters {
		c, err := st.Cluster(cr.ClusterID)
		if err != nil {
			t.Fatal(err)
		}
		if c.FactSummary != facts.SummaryFailed {
			t.Errorf("FactSummary = %q, want %q", c.FactSummary, facts.SummaryFailed)
		}
	}
}

func TestAnalyzeStoreFailureAborts(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, func(d *Deps) {
		d.Store = failingStore{d.Store.(*store.Store)}
	})

	_, err := o.Analyze(context.Background(), Query{Text: "news"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cluster cluster_0") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error = %v", err)
	}
}

func TestAnalyzeEmbedFailureSkipsArticle(t *testing.T) {
	o, _, idx := newTestOrchestrator(t, func(d *Deps) {
		d.Embedder = keywordEmbedder{vectors: testVectors, fail: "Governor Kemp said the election would"}
	})

	res, err := o.Analyze(context.Background(), Query{Text: "news"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("indexed vectors = %d, want 4", idx.Len())
	}
	// the lone election article with a vector is now noise
	if len(res.Clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(res.Clusters))
	}
	if res.Clusters[0].BiasResults[0].Source != "Alpha News" {
		t.Errorf("remaining cluster = %+v", res.Clusters[0])
	}
}

// pickyTagger fails on texts containing fail.
type pickyTagger struct{ fail string }

func (p pickyTagger) Tag(text string) ([]bias.Token, error) {
	if strings.Contains(text, p.fail) {
		return nil, errors.New("tagger crashed")
	}
	return bias.ProseTagger{}.Tag(text)
}

func TestAnalyzeBiasFailureSkipsArticle(t *testing.T) {
	var buf bytes.Buffer
	trace := otel.NewLogger(&buf)
	o, st, _ := newTestOrchestrator(t, func(d *Deps) {
		d.Tagger = pickyTagger{fail: "began cleanup"}
		d.Trace = trace
	})

	res, err := o.Analyze(context.Background(), Query{Text: "news"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	trace.Close()

	storm := res.Clusters[0]
	if storm.ArticlesCount != 2 || len(storm.BiasResults) != 1 || storm.BiasResults[0].Source != "Alpha News" {
		t.Fatalf("storm cluster = %+v", storm)
	}
	if !strings.Contains(buf.String(), `"kind":"`+string(otel.KindBiasSkip)+`"`) {
		t.Error("trace missing bias.skip")
	}

	gamma, err := st.ArticleByURL("https://gamma.example/storm")
	if err != nil {
		t.Fatal(err)
	}
	if gamma.ClusterID != "" {
		t.Errorf("skipped article was assigned to cluster %s", gamma.ClusterID)
	}
}

// brokenIndex rejects every upsert and cleanup.
type brokenIndex struct {
	*index.HNSW
}

func (brokenIndex) Upsert(context.Context, []index.Vector) error {
	return errors.New("index full")
}

func (brokenIndex) DeleteWhere(context.Context, index.Filter) (int, error) {
	return 0, errors.New("index locked")
}

func TestAnalyzeIndexFailureTraced(t *testing.T) {
	var buf bytes.Buffer
	trace := otel.NewLogger(&buf)
	o, _, _ := newTestOrchestrator(t, func(d *Deps) {
		d.Index = brokenIndex{index.New(3)}
		d.Trace = trace
	})

	if _, err := o.Analyze(context.Background(), Query{Text: "news"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	trace.Close()

	out := buf.String()
	for _, want := range []string{`"kind":"index.error"`, "index full", "stale vector cleanup: index locked"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q", want)
		}
	}
	if strings.Contains(out, `"kind":"`+string(otel.KindIndexUpsert)+`"`) {
		t.Error("failed upsert traced as index.upsert")
	}
}

func TestToneMeanModes(t *testing.T) {
	w := bias.DefaultWeights

	running, _, _ := newTestOrchestrator(t, nil)
	res, err := running.Analyze(context.Background(), Query{Text: "news"})
	if err != nil {
		t.Fatal(err)
	}
	rs := res.Clusters[0].BiasResults
	first := rs[0]
	if want := bias.BiasIndex(w, first.Tone, first.Tone, first.LexicalBias, first.Omission, first.Consistency); !approxEqual(first.BiasIndex, want) {
		t.Errorf("running first BiasIndex = %v, want %v", first.BiasIndex, want)
	}
	mean := (rs[0].Tone + rs[1].Tone) / 2
	second := rs[1]
	if want := bias.BiasIndex(w, second.Tone, mean, second.LexicalBias, second.Omission, second.Consistency); !approxEqual(second.BiasIndex, want) {
		t.Errorf("running second BiasIndex = %v, want %v", second.BiasIndex, want)
	}

	clusterMode, _, _ := newTestOrchestrator(t, func(d *Deps) {
		cfg := config.Default()
		cfg.Bias.ToneMeanMode = config.ToneMeanCluster
		d.Config = cfg
	})
	res, err = clusterMode.Analyze(context.Background(), Query{Text: "news"})
	if err != nil {
		t.Fatal(err)
	}
	rs = res.Clusters[0].BiasResults
	mean = (rs[0].Tone + rs[1].Tone) / 2
	for _, r := range rs {
		if want := bias.BiasIndex(w, r.Tone, mean, r.LexicalBias, r.Omission, r.Consistency); !approxEqual(r.BiasIndex, want) {
			t.Errorf("cluster-mode BiasIndex = %v, want %v", r.BiasIndex, want)
		}
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Analyze(ctx, Query{Text: "news"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAnalyzeTrace(t *testing.T) {
	var buf bytes.Buffer
	trace := otel.NewLogger(&buf)
	o, _, _ := newTestOrchestrator(t, func(d *Deps) { d.Trace = trace })

	if _, err := o.Analyze(context.Background(), Query{Text: "news"}); err != nil {
		t.Fatal(err)
	}
	trace.Close()

	out := buf.String()
	for _, kind := range []otel.EventKind{
		otel.KindRunStart, otel.KindIngest, otel.KindEmbedArticle, otel.KindIndexUpsert,
		otel.KindCluster, otel.KindFacts, otel.KindBiasArticle, otel.KindSummary,
		otel.KindPersist, otel.KindRunComplete,
	} {
		if !strings.Contains(out, `"kind":"`+string(kind)+`"`) {
			t.Errorf("trace missing %s", kind)
		}
	}
	if !strings.Contains(out, trace.RunID()) {
		t.Error("trace events missing run id")
	}
}

func TestFrameSummaries(t *testing.T) {
	phrases := make([]model.LoadedPhrase, 7)
	for i := range phrases {
		phrases[i] = model.LoadedPhrase{Phrase: string(rune('a' + i)), Type: "emotional"}
	}
	got := FrameSummaries([]model.BiasResult{
		{Source: "A", Tone: 0.5, BiasIndex: 30, Transparency: 70, LoadedPhrases: phrases},
		{Source: "B"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if len(got[0].LoadedPhrases) != 5 || got[0].LoadedPhrases[4].Phrase != "e" {
		t.Errorf("phrases = %+v", got[0].LoadedPhrases)
	}
	if got[0].Source != "A" || got[0].BiasIndex != 30 || got[0].Transparency != 70 {
		t.Errorf("summary = %+v", got[0])
	}
	if len(got[1].LoadedPhrases) != 0 {
		t.Errorf("empty phrases = %+v", got[1].LoadedPhrases)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeRerunReplacesVectors(t *testing.T) {
	o, _, idx := newTestOrchestrator(t, nil)

	for i := 0; i < 2; i++ {
		if _, err := o.Analyze(context.Background(), Query{Text: "news"}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if idx.Len() != 5 {
		t.Errorf("indexed vectors after rerun = %d, want 5", idx.Len())
	}
}
