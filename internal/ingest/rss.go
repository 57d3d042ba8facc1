package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const rssTimeout = 30 * time.Second

// RSSSearch searches a feed service whose URL takes the query, such as
// Google News search feeds. The template must contain "{query}".
type RSSSearch struct {
	template  string
	userAgent string
	client    *http.Client
}

// NewRSSSearch returns an RSS searcher for template.
func NewRSSSearch(template, userAgent string) *RSSSearch {
	return &RSSSearch{
		template:  template,
		userAgent: userAgent,
		client:    &http.Client{Timeout: rssTimeout},
	}
}

// Search fetches the feed for req.Query. Date bounds and sources are
// applied to the parsed items; a source matches the feed title,
// case-insensitively.
func (s *RSSSearch) Search(ctx context.Context, req Request) ([]Record, error) {
	feedURL := strings.ReplaceAll(s.template, "{query}", url.QueryEscape(req.Query))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: create request: %w", err)
	}
	if s.userAgent != "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rss: fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss: HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rss: parse feed: %w", err)
	}

	wanted := make(map[string]bool, len(req.Sources))
	for _, src := range req.Sources {
		wanted[strings.ToLower(src)] = true
	}

	var records []Record
	for _, item := range feed.Items {
		rec := convertFeedItem(item, feed.Title)
		if rec.URL == "" || !inRange(rec.PublishedAt, req.From, req.To) {
			continue
		}
		if len(wanted) > 0 && !wanted[strings.ToLower(rec.Source)] {
			continue
		}
		records = append(records, rec)
		if req.Limit > 0 && len(records) == req.Limit {
			break
		}
	}
	return records, nil
}

func convertFeedItem(item *gofeed.Item, feedTitle string) Record {
	rec := Record{
		URL:         strings.TrimSpace(item.Link),
		Source:      feedTitle,
		Title:       strings.TrimSpace(item.Title),
		Description: item.Description,
		Content:     item.Content,
	}
	if item.Author != nil {
		rec.Author = item.Author.Name
	}
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		rec.PublishedAt = &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		rec.PublishedAt = &t
	}
	if rec.Source == "" {
		rec.Source = unknownSource
	}
	if rec.Title == "" {
		rec.Title = untitled
	}
	return rec
}

func inRange(t, from, to *time.Time) bool {
	if t == nil {
		return from == nil && to == nil
	}
	if from != nil && t.Before(*from) {
		return false
	}
	// to is a calendar day, inclusive
	if to != nil && !t.Before(to.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
