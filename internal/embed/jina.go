package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	jinaDefaultModel    = "jina-embeddings-v3"
	jinaDefaultEndpoint = "https://api.jina.ai/v1/embeddings"
	jinaBatchSize       = 25
)

// JinaEmbedder generates embeddings via the Jina AI API.
type JinaEmbedder struct {
	apiKey     string
	model      string
	endpoint   string
	dimensions int
	http       *poster
}

type jinaEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Task       string   `json:"task"`
	Dimensions int      `json:"dimensions"`
	Truncate   bool     `json:"truncate"`
}

type jinaEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewJinaEmbedder creates a JinaEmbedder producing vectors of the given
// dimension. Empty model or endpoint select the public defaults.
func NewJinaEmbedder(apiKey, model, endpoint string, dimensions int) *JinaEmbedder {
	if model == "" {
		model = jinaDefaultModel
	}
	if endpoint == "" {
		endpoint = jinaDefaultEndpoint
	}
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &JinaEmbedder{
		apiKey:     apiKey,
		model:      model,
		endpoint:   endpoint,
		dimensions: dimensions,
		http: &poster{
			name:    "jina",
			client:  &http.Client{Timeout: 60 * time.Second},
			limiter: rate.NewLimiter(rate.Every(750*time.Millisecond), 1), // ~80 RPM
			headers: map[string]string{"Authorization": "Bearer " + apiKey},
		},
	}
}

// Available returns true if the Jina API key is configured.
func (e *JinaEmbedder) Available() bool {
	return e.apiKey != ""
}

// Embed embeds a single passage.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, "retrieval.passage")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedQuery embeds a search query with the retrieval.query task.
func (e *JinaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, "retrieval.query")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds passages in requests of at most jinaBatchSize inputs.
func (e *JinaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += jinaBatchSize {
		end := min(start+jinaBatchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end], "retrieval.passage")
		if err != nil {
			return nil, fmt.Errorf("embed: batch starting at %d failed: %w", start, err)
		}
		results = append(results, vecs...)
	}
	return results, nil
}

// embed sends one request and returns vectors ordered like input.
func (e *JinaEmbedder) embed(ctx context.Context, input []string, task string) ([][]float32, error) {
	body, err := json.Marshal(jinaEmbedRequest{
		Model:      e.model,
		Input:      input,
		Task:       task,
		Dimensions: e.dimensions,
		Truncate:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: failed to marshal request: %w", err)
	}

	out := make([][]float32, len(input))
	err = e.http.post(ctx, e.endpoint, body, func(data []byte) error {
		var resp jinaEmbedResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return err
		}
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(input) {
				return fmt.Errorf("out-of-range index %d for %d inputs", item.Index, len(input))
			}
			out[item.Index] = item.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embed: jina returned no embedding for input %d", i)
		}
	}
	return out, nil
}
