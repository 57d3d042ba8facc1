package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/store"
)

func TestRecordFromMap(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want Record
	}{
		{
			name: "complete",
			in: map[string]any{
				"source":      map[string]any{"id": "bbc-news", "name": "BBC News"},
				"author":      "Jane Roe",
				"title":       "Rates rise",
				"description": "The central bank acted.",
				"url":         "https://bbc.example/rates",
				"publishedAt": "2024-01-15T12:00:00Z",
				"content":     "Full text [+200 chars]",
			},
			want: Record{
				URL: "https://bbc.example/rates", Source: "BBC News", Title: "Rates rise",
				Author: "Jane Roe", Description: "The central bank acted.", Content: "Full text [+200 chars]",
			},
		},
		{
			name: "defaults",
			in: map[string]any{
				"source":      nil,
				"author":      nil,
				"title":       nil,
				"url":         "https://x.example/a",
				"publishedAt": "yesterday",
			},
			want: Record{URL: "https://x.example/a", Source: "Unknown", Title: "Untitled"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recordFromMap(tt.in)
			pub := got.PublishedAt
			got.PublishedAt = nil
			if got != tt.want {
				t.Errorf("recordFromMap() = %+v, want %+v", got, tt.want)
			}
			if tt.name == "complete" {
				want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
				if pub == nil || !pub.Equal(want) {
					t.Errorf("PublishedAt = %v, want %v", pub, want)
				}
			} else if pub != nil {
				t.Errorf("PublishedAt = %v, want nil for unparsable date", pub)
			}
		})
	}
}

func TestNewsAPISearch(t *testing.T) {
	var gotQuery map[string]string
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"totalResults": 2,
			"articles": [
				{"source": {"id": null, "name": "Alpha"}, "title": "One", "url": "https://a.example/1", "publishedAt": "2024-03-01T08:00:00Z"},
				"not an object",
				{"source": {}, "title": "", "url": "https://b.example/2"}
			]
		}`))
	}))
	defer server.Close()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	n := NewNewsAPI(server.URL, "secret")
	recs, err := n.Search(context.Background(), Request{
		Query: "central bank", From: &from, To: &to, Sources: []string{"bbc-news", "cnn"}, Limit: 50,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	wantParams := map[string]string{
		"q": "central bank", "language": "en", "pageSize": "50", "sortBy": "publishedAt",
		"searchIn": "title,description", "from": "2024-03-01", "to": "2024-03-02", "sources": "bbc-news,cnn",
	}
	for k, v := range wantParams {
		if gotQuery[k] != v {
			t.Errorf("param %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Source != "Alpha" || recs[0].PublishedAt == nil {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Source != "Unknown" || recs[1].Title != "Untitled" {
		t.Errorf("second record = %+v", recs[1])
	}
}

func TestNewsAPISearchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status": "error", "code": "apiKeyInvalid", "message": "Your API key is invalid."}`))
	}))
	defer server.Close()

	_, err := NewNewsAPI(server.URL, "bad").Search(context.Background(), Request{Query: "x"})
	if err == nil || !strings.Contains(err.Error(), "Your API key is invalid.") {
		t.Errorf("expected provider message in error, got %v", err)
	}

	if _, err := NewNewsAPI(server.URL, "").Search(context.Background(), Request{Query: "x"}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestRSSSearch(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Wire</title>
    <item>
      <title>Old story</title>
      <link>http://example.com/old</link>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Fresh story</title>
      <link>http://example.com/fresh</link>
      <description>Something happened</description>
      <pubDate>Fri, 01 Mar 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No link</title>
      <pubDate>Fri, 01 Mar 2024 13:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss))
	}))
	defer server.Close()

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := NewRSSSearch(server.URL+"/search?q={query}", "prism-test")
	recs, err := s.Search(context.Background(), Request{Query: "rate hike", From: &from})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotPath != "q=rate+hike" {
		t.Errorf("query = %q, want q=rate+hike", gotPath)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(recs), recs)
	}
	if recs[0].URL != "http://example.com/fresh" || recs[0].Source != "Example Wire" || recs[0].Description != "Something happened" {
		t.Errorf("record = %+v", recs[0])
	}

	recs, _ = s.Search(context.Background(), Request{Query: "x", Sources: []string{"other wire"}})
	if len(recs) != 0 {
		t.Errorf("source filter kept %d records", len(recs))
	}
}

func TestRSSSearch404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := NewRSSSearch(server.URL+"?q={query}", "").Search(context.Background(), Request{Query: "x"}); err == nil {
		t.Error("expected error for 404")
	}
}

func TestParsePage(t *testing.T) {
	html := `<html><head>
<title> Rates rise again </title>
<meta name="author" content="Meta Author">
<meta property="article:published_time" content="2024-03-01T08:30:00Z">
<script>var x = "ignore me";</script>
</head><body>
<nav>Home | World</nav>
<div class="post-content"><p>Second choice.</p></div>
<article><p>The central bank raised rates.</p>
<p>Markets   reacted.</p></article>
<span class="author">Jane Roe</span>
</body></html>`

	p, err := ParsePage([]byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Rates rise again" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Text != "The central bank raised rates. Markets reacted." {
		t.Errorf("Text = %q", p.Text)
	}
	if p.Author != "Jane Roe" {
		t.Errorf("Author = %q", p.Author)
	}
	if p.PublishedAt == nil || p.PublishedAt.Hour() != 8 {
		t.Errorf("PublishedAt = %v", p.PublishedAt)
	}
	if !strings.Contains(p.RawHTML, "<article>") {
		t.Error("RawHTML not kept")
	}
}

func TestParsePageFallbacks(t *testing.T) {
	html := `<html><body><h1>Headline</h1><p>Only body text here.</p>
<meta name="author" content="Meta Author">
<time datetime="not a date">March</time></body></html>`

	p, err := ParsePage([]byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Headline" {
		t.Errorf("Title = %q, want h1 fallback", p.Title)
	}
	if !strings.Contains(p.Text, "Only body text here.") {
		t.Errorf("Text = %q, want body fallback", p.Text)
	}
	if p.Author != "Meta Author" {
		t.Errorf("Author = %q, want meta content", p.Author)
	}
	if p.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil", p.PublishedAt)
	}
}

func TestScraperScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") != "prism-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`<html><body><main>Main text</main></body></html>`))
	}))
	defer server.Close()

	s := NewScraper("prism-test")
	p, err := s.Scrape(context.Background(), server.URL+"/story")
	if err != nil {
		t.Fatal(err)
	}
	if p.Text != "Main text" {
		t.Errorf("Text = %q", p.Text)
	}
	if _, err := s.Scrape(context.Background(), server.URL+"/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

type fakeSearcher struct {
	records []Record
	err     error
}

func (f fakeSearcher) Search(context.Context, Request) ([]Record, error) {
	return f.records, f.err
}

type fakeScraper struct {
	mu    sync.Mutex
	pages map[string]*Page
	calls []string
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("blocked")
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestServiceIngest(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.SaveArticle(&model.Article{ID: "known", URL: "https://k.example/1", Source: "Known", Text: "stored"}); err != nil {
		t.Fatal(err)
	}

	pub := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	searcher := fakeSearcher{records: []Record{
		{URL: "https://n.example/scraped", Source: "New", Title: "A", Description: "desc a"},
		{URL: "https://k.example/1", Source: "Known", Title: "K"},
		{URL: "https://n.example/blocked", Source: "New", Title: "B", Description: "desc b", PublishedAt: &pub},
		{URL: "https://n.example/scraped", Source: "Dup", Title: "A again"},
		{URL: "", Title: "no url"},
		{URL: "https://n.example/over-limit", Title: "C"},
	}}
	scraper := &fakeScraper{pages: map[string]*Page{
		"https://n.example/scraped": {Text: "Full scraped text.", Author: "Page Author", RawHTML: "<html/>"},
	}}

	svc := NewService(searcher, scraper, st, 2)
	got, err := svc.Ingest(context.Background(), Request{Query: "q", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	if got[0].Text != "Full scraped text." || got[0].Author != "Page Author" || got[0].ID == "" {
		t.Errorf("scraped article = %+v", got[0])
	}
	if got[1].ID != "known" || got[1].Text != "stored" {
		t.Errorf("known article not reused: %+v", got[1])
	}
	if got[2].Text != "desc b" || got[2].PublishedAt == nil {
		t.Errorf("blocked article should fall back to description: %+v", got[2])
	}
	if len(scraper.calls) != 2 {
		t.Errorf("scraper called %d times, want 2 (known URL skipped)", len(scraper.calls))
	}

	stored, err := st.ArticleByURL("https://n.example/blocked")
	if err != nil || stored.ID != got[2].ID {
		t.Errorf("blocked article not persisted: %v %v", stored, err)
	}

	// a second run reuses everything
	again, err := svc.Ingest(context.Background(), Request{Query: "q", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := range again {
		if again[i].ID != got[i].ID {
			t.Errorf("rerun article %d ID = %s, want %s", i, again[i].ID, got[i].ID)
		}
	}
}

func TestServiceIngestSearchFailure(t *testing.T) {
	svc := NewService(fakeSearcher{err: errors.New("quota exceeded")}, nil, newTestStore(t), 0)
	got, err := svc.Ingest(context.Background(), Request{Query: "q"})
	if err != nil || len(got) != 0 {
		t.Errorf("Ingest() = %v, %v; want no articles and nil error", got, err)
	}
}
