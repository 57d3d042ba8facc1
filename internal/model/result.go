package model

// BiasResult is one article's row in a cluster report.
type BiasResult struct {
	ArticleID     string         `json:"article_id" yaml:"article_id"`
	Source        string         `json:"source" yaml:"source"`
	Title         string         `json:"title" yaml:"title"`
	Tone          float64        `json:"tone" yaml:"tone"`
	LexicalBias   float64        `json:"lexical_bias" yaml:"lexical_bias"`
	Subjectivity  float64        `json:"subjectivity" yaml:"subjectivity"`
	Omission      float64        `json:"omission" yaml:"omission"`
	Consistency   float64        `json:"consistency" yaml:"consistency"`
	BiasIndex     float64        `json:"bias_index" yaml:"bias_index"`
	Transparency  float64        `json:"transparency_score" yaml:"transparency_score"`
	LoadedPhrases []LoadedPhrase `json:"loaded_phrases" yaml:"loaded_phrases"`
	MissingFacts  int            `json:"missing_facts" yaml:"missing_facts"`
}

// ClusterResult summarizes one processed cluster.
type ClusterResult struct {
	ClusterID     string       `json:"cluster_id" yaml:"cluster_id"`
	ArticlesCount int          `json:"articles_count" yaml:"articles_count"`
	FactsCount    int          `json:"facts_count" yaml:"facts_count"`
	BiasResults   []BiasResult `json:"bias_results" yaml:"bias_results"`
}

// NoArticlesMessage is reported when ingestion finds nothing.
const NoArticlesMessage = "No articles found"

// AnalysisResult is the outcome of one pipeline run.
type AnalysisResult struct {
	Query         string          `json:"query" yaml:"query"`
	TotalArticles int             `json:"total_articles" yaml:"total_articles"`
	Clusters      []ClusterResult `json:"clusters" yaml:"clusters"`
	NoArticles    bool            `json:"no_articles,omitempty" yaml:"no_articles,omitempty"`
	Message       string          `json:"message,omitempty" yaml:"message,omitempty"`
}
