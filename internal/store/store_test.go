package store

import (
	"testing"
	"time"

	"github.com/abelbrown/prism/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := openTest(t)

	for _, table := range []string{"articles", "clusters"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("%s table not created: %v", table, err)
		}
	}
}

func TestOpenMemoryIsolated(t *testing.T) {
	a := openTest(t)
	b := openTest(t)

	if _, err := a.SaveArticle(&model.Article{Source: "A", URL: "https://a.example/1", Title: "t", Text: "x"}); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}
	if _, err := b.ArticleByURL("https://a.example/1"); !IsNotFound(err) {
		t.Errorf("second in-memory store sees first store's data: err = %v", err)
	}
}

func TestSaveArticleDedupByURL(t *testing.T) {
	st := openTest(t)
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &model.Article{
		Source:      "Reuters",
		URL:         "https://example.com/story",
		Title:       "Story",
		Author:      "Jane Doe",
		PublishedAt: &published,
		Text:        "Body text.",
	}
	inserted, err := st.SaveArticle(first)
	if err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}
	if !inserted {
		t.Fatal("first save reported not inserted")
	}
	if first.ID == "" {
		t.Fatal("SaveArticle did not assign an ID")
	}

	dup := &model.Article{Source: "Other", URL: first.URL, Title: "Dup", Text: "x"}
	inserted, err = st.SaveArticle(dup)
	if err != nil {
		t.Fatalf("SaveArticle dup: %v", err)
	}
	if inserted {
		t.Error("duplicate URL was inserted")
	}

	got, err := st.ArticleByURL(first.URL)
	if err != nil {
		t.Fatalf("ArticleByURL: %v", err)
	}
	if got.ID != first.ID || got.Source != "Reuters" {
		t.Errorf("ArticleByURL = %+v, want original article", got)
	}
	if got.Language != "en" {
		t.Errorf("Language = %q, want default en", got.Language)
	}
	if !got.HasTimestamp() || !got.PublishedAt.Equal(published) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, published)
	}
}

func TestArticleNotFound(t *testing.T) {
	st := openTest(t)
	if _, err := st.Article("missing"); !IsNotFound(err) {
		t.Errorf("Article(missing) err = %v, want ErrNotFound", err)
	}
	if err := st.UpdateArticleChunks("missing", nil); !IsNotFound(err) {
		t.Errorf("UpdateArticleChunks(missing) err = %v, want ErrNotFound", err)
	}
}

func TestChunksAndScores(t *testing.T) {
	st := openTest(t)
	a := &model.Article{Source: "S", URL: "https://x/a", Title: "A", Text: "one two three"}
	if _, err := st.SaveArticle(a); err != nil {
		t.Fatal(err)
	}

	chunks := []model.Chunk{
		{ID: "chunk_0", Text: "one two", StartWord: 0, EndWord: 2, Embedding: []float32{1, 2}},
		{ID: "chunk_1", Text: "three", StartWord: 2, EndWord: 3},
	}
	if err := st.UpdateArticleChunks(a.ID, chunks); err != nil {
		t.Fatalf("UpdateArticleChunks: %v", err)
	}

	cl := &model.Cluster{Query: "q"}
	if err := st.CreateCluster(cl); err != nil {
		t.Fatal(err)
	}
	scores := model.Scores{Tone: -0.2, LexicalBias: 0.1, Omission: 0.5, Consistency: 0.1, BiasIndex: 12.5}
	if err := st.UpdateArticleScores(a.ID, scores, cl.ID); err != nil {
		t.Fatalf("UpdateArticleScores: %v", err)
	}

	got, err := st.Article(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != 2 || got.Chunks[1].ID != "chunk_1" || got.Chunks[1].StartWord != 2 {
		t.Errorf("Chunks = %+v", got.Chunks)
	}
	if got.Chunks[0].Embedding != nil {
		t.Error("chunk embeddings should not be persisted")
	}
	if got.Scores == nil || *got.Scores != scores {
		t.Errorf("Scores = %+v, want %+v", got.Scores, scores)
	}
	if got.ClusterID != cl.ID {
		t.Errorf("ClusterID = %q, want %q", got.ClusterID, cl.ID)
	}

	members, err := st.ArticlesByCluster(cl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].ID != a.ID {
		t.Errorf("ArticlesByCluster = %v", members)
	}
}

func TestClusterRoundTrip(t *testing.T) {
	st := openTest(t)

	c := &model.Cluster{Query: "election"}
	if err := st.CreateCluster(c); err != nil {
		t.Fatalf("CreateCluster: %v", err)
	}

	c.CanonicalArticleID = "a1"
	c.FactSummary = "Summary."
	c.Facts = []model.Fact{{
		Statement: "The vote was held on Sunday.",
		Sources:   []string{"https://x/1"},
		Quotes:    []string{"held on Sunday"},
		Status:    model.FactSupported,
	}}
	c.FrameSummaries = []model.FrameSummary{{Source: "S", Tone: 0.2, BiasIndex: 10, Transparency: 80}}
	if err := st.UpdateCluster(c); err != nil {
		t.Fatalf("UpdateCluster: %v", err)
	}

	got, err := st.Cluster(c.ID)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if got.CanonicalArticleID != "a1" || got.FactSummary != "Summary." {
		t.Errorf("Cluster = %+v", got)
	}
	if len(got.Facts) != 1 || got.Facts[0].Status != model.FactSupported {
		t.Errorf("Facts = %+v", got.Facts)
	}
	if len(got.FrameSummaries) != 1 || got.FrameSummaries[0].Transparency != 80 {
		t.Errorf("FrameSummaries = %+v", got.FrameSummaries)
	}

	list, err := st.ListClusters("election", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("ListClusters(election) = %d, want 1", len(list))
	}
	list, err = st.ListClusters("other", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("ListClusters(other) = %d, want 0", len(list))
	}

	if err := st.UpdateCluster(&model.Cluster{ID: "nope"}); !IsNotFound(err) {
		t.Errorf("UpdateCluster(nope) err = %v, want ErrNotFound", err)
	}
}
