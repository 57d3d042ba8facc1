package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/prism/internal/model"
)

func sampleResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		Query:         "hurricane delta",
		TotalArticles: 3,
		Clusters: []model.ClusterResult{{
			ClusterID:     "0f8e2a4c-1111-2222-3333-444455556666",
			ArticlesCount: 2,
			FactsCount:    1,
			BiasResults: []model.BiasResult{
				{ArticleID: "a1", Source: "Alpha News", Title: "Storm", Tone: -0.4, LexicalBias: 0.1, Omission: 0, Consistency: 0.1, BiasIndex: 12.5, Transparency: 87.3,
					LoadedPhrases: []model.LoadedPhrase{{Phrase: "The outrageous response was criticized", Type: "emotional"}}},
				{ArticleID: "a2", Source: "A Very Long Source Name That Overflows", Title: "Storm 2", BiasIndex: 64, Transparency: 40, MissingFacts: 1},
			},
		}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"TEXT", FormatText, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestAnalysisText(t *testing.T) {
	var buf bytes.Buffer
	if err := Analysis(&buf, FormatText, sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`"hurricane delta"`,
		"3 articles, 1 cluster",
		"0f8e2a4c",
		"2 articles, 1 fact",
		"Alpha News",
		"A Very Long Sourc…",
		"[emotional] The outrageous response",
		"missing 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalysisTextNoArticles(t *testing.T) {
	out := RenderAnalysis(&model.AnalysisResult{Query: "q", NoArticles: true, Message: model.NoArticlesMessage})
	if !strings.Contains(out, model.NoArticlesMessage) {
		t.Errorf("output = %q", out)
	}
}

func TestAnalysisJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Analysis(&buf, FormatJSON, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	clusters := got["clusters"].([]any)
	first := clusters[0].(map[string]any)
	if first["cluster_id"] != "0f8e2a4c-1111-2222-3333-444455556666" {
		t.Errorf("cluster_id = %v", first["cluster_id"])
	}
	br := first["bias_results"].([]any)[0].(map[string]any)
	if br["transparency_score"] != 87.3 {
		t.Errorf("transparency_score = %v", br["transparency_score"])
	}
}

func TestAnalysisYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Analysis(&buf, FormatYAML, sampleResult()); err != nil {
		t.Fatal(err)
	}
	var got model.AnalysisResult
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got.Query != "hurricane delta" || len(got.Clusters) != 1 || got.Clusters[0].BiasResults[1].MissingFacts != 1 {
		t.Errorf("decoded = %+v", got)
	}
	if !strings.Contains(buf.String(), "bias_index: 64") {
		t.Errorf("yaml output:\n%s", buf.String())
	}
}

func TestClusterText(t *testing.T) {
	pub := time.Now().Add(-3 * time.Hour)
	v := ClusterView{
		Cluster: &model.Cluster{
			ID:                 "c1",
			Query:              "storm",
			CreatedAt:          time.Now().Add(-time.Hour),
			CanonicalArticleID: "a1",
			FactSummary:        "A storm hit.",
			Facts:              []model.Fact{{Statement: "Delta struck Miami", Sources: []string{"u1", "u2"}, Status: model.FactSupported}},
			FrameSummaries:     []model.FrameSummary{{Source: "Alpha News", Tone: 0.2, BiasIndex: 20, Transparency: 80}},
		},
		Articles: []model.Article{
			{ID: "a1", Source: "Alpha News", Title: "Storm", PublishedAt: &pub},
			{ID: "a2", Source: "Beta Wire", Title: "Storm again"},
		},
	}
	out := RenderCluster(v)
	for _, want := range []string{"Cluster c1", "Query: storm", "1 hour ago", "A storm hit.", "supported Delta struck Miami", "2 sources", "transparency 80.0", "* Alpha News", "3 hours ago", "undated"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestArticleText(t *testing.T) {
	a := &model.Article{
		ID: "a1", Source: "Alpha", URL: "https://a.example/1", Title: "Title", Author: "Sam Reed",
		Text: "one two three", Chunks: []model.Chunk{{ID: "chunk_0"}}, ClusterID: "c1",
		Scores: &model.Scores{Tone: 0.5, BiasIndex: 42},
	}
	out := RenderArticle(a)
	for _, want := range []string{"Title", "By Sam Reed", "https://a.example/1", "3 words, 1 chunk", "Cluster c1", "Tone +0.50", "Bias 42.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClustersText(t *testing.T) {
	if out := RenderClusters(nil); !strings.Contains(out, "No clusters.") {
		t.Errorf("empty listing = %q", out)
	}
	out := RenderClusters([]model.Cluster{{ID: "c1", Query: "storm", CreatedAt: time.Now(), Facts: make([]model.Fact, 3)}})
	if !strings.Contains(out, "c1") || !strings.Contains(out, "storm") || !strings.Contains(out, "3 facts") {
		t.Errorf("listing = %q", out)
	}
}

func TestPad(t *testing.T) {
	if got := pad("abc", 5); got != "abc  " {
		t.Errorf("pad = %q", got)
	}
	if got := pad("日本語テキスト", 6); runewidth.StringWidth(got) != 6 {
		t.Errorf("pad wide = %q", got)
	}
}
