package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/abelbrown/prism/internal/logging"
)

const (
	newsAPIPageSize = 100
	newsAPITimeout  = 30 * time.Second
)

// NewsAPI searches the NewsAPI /v2/everything endpoint.
type NewsAPI struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewNewsAPI returns a client for endpoint, the full /v2/everything URL.
func NewNewsAPI(endpoint, apiKey string) *NewsAPI {
	return &NewsAPI{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: newsAPITimeout},
	}
}

// Search runs req. English articles only, newest first, matching in
// title and description.
func (n *NewsAPI) Search(ctx context.Context, req Request) ([]Record, error) {
	if n.apiKey == "" {
		return nil, fmt.Errorf("newsapi: no API key")
	}

	pageSize := req.Limit
	if pageSize <= 0 || pageSize > newsAPIPageSize {
		pageSize = newsAPIPageSize
	}
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("language", "en")
	params.Set("pageSize", fmt.Sprint(pageSize))
	params.Set("sortBy", "publishedAt")
	params.Set("searchIn", "title,description")
	if req.From != nil {
		params.Set("from", req.From.Format("2006-01-02"))
	}
	if req.To != nil {
		params.Set("to", req.To.Format("2006-01-02"))
	}
	if len(req.Sources) > 0 {
		params.Set("sources", strings.Join(req.Sources, ","))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: create request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("newsapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("newsapi: read body: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("newsapi: decode (status %d): %w", resp.StatusCode, err)
	}
	if status := cast.ToString(payload["status"]); status != "ok" {
		msg := cast.ToString(payload["message"])
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("newsapi: %s (status %d)", msg, resp.StatusCode)
	}

	raw := cast.ToSlice(payload["articles"])
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			logging.Debug("newsapi: skipping malformed article", "err", err)
			continue
		}
		records = append(records, recordFromMap(m))
	}
	logging.Debug("newsapi search", "query", req.Query, "results", len(records), "total", cast.ToInt(payload["totalResults"]))
	return records, nil
}
