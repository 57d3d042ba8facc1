package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	scrapeTimeout  = 10 * time.Second
	maxScrapeBytes = 5 << 20
)

var (
	contentSelectors = []string{"article", `[role="article"]`, ".article-content", ".post-content", ".entry-content", "main", ".content"}
	authorSelectors  = []string{`[rel="author"]`, ".author", `[itemprop="author"]`, `meta[name="author"]`}
	dateSelectors    = []string{"time[datetime]", `[itemprop="datePublished"]`, `meta[property="article:published_time"]`}
)

// Page is what a scrape recovers from an article page.
type Page struct {
	Title       string
	Text        string
	Author      string
	PublishedAt *time.Time
	RawHTML     string
}

// Scraper downloads article pages and extracts their main text.
type Scraper struct {
	client    *http.Client
	userAgent string
}

// NewScraper returns a Scraper sending userAgent.
func NewScraper(userAgent string) *Scraper {
	return &Scraper{
		client:    &http.Client{Timeout: scrapeTimeout},
		userAgent: userAgent,
	}
}

// Scrape fetches pageURL and parses it. Non-200 responses are errors.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape %s: HTTP %d", pageURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return nil, fmt.Errorf("scrape %s: read body: %w", pageURL, err)
	}
	return ParsePage(raw)
}

// ParsePage extracts title, main text, author and publication time from
// an HTML document. Text comes from the first matching content selector,
// else the whole body, with whitespace collapsed.
func ParsePage(raw []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	p := &Page{RawHTML: string(raw)}

	p.Title = collapse(doc.Find("title").First().Text())
	if p.Title == "" {
		p.Title = collapse(doc.Find("h1").First().Text())
	}

	for _, sel := range contentSelectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			p.Text = collapse(node.Text())
			break
		}
	}
	if p.Text == "" {
		p.Text = collapse(doc.Find("body").Text())
	}

	for _, sel := range authorSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if goquery.NodeName(node) == "meta" {
			p.Author = strings.TrimSpace(node.AttrOr("content", ""))
		} else {
			p.Author = collapse(node.Text())
		}
		break
	}

	for _, sel := range dateSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		value := node.AttrOr("datetime", "")
		if value == "" {
			value = node.AttrOr("content", "")
		}
		p.PublishedAt = parseTime(strings.TrimSpace(value))
		break
	}
	return p, nil
}

// collapse joins the words of s with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
