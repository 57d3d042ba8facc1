package ingest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/store"
)

// DefaultWorkers bounds concurrent page scrapes.
const DefaultWorkers = 4

// ArticleStore is the persistence the service needs.
type ArticleStore interface {
	ArticleByURL(url string) (*model.Article, error)
	SaveArticle(a *model.Article) (bool, error)
}

// PageScraper fetches full article pages.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// Service turns search hits into stored articles.
type Service struct {
	searcher Searcher
	scraper  PageScraper
	store    ArticleStore
	workers  int
}

// NewService returns a Service. A nil scraper keeps feed text only;
// workers <= 0 selects DefaultWorkers.
func NewService(searcher Searcher, scraper PageScraper, st ArticleStore, workers int) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{searcher: searcher, scraper: scraper, store: st, workers: workers}
}

// Ingest searches, reuses known articles by URL, scrapes and saves the
// rest, and returns at most req.Limit articles in search order. A failed
// search yields no articles; a record that cannot be stored is skipped.
// The error is non-nil only when ctx is done.
func (s *Service) Ingest(ctx context.Context, req Request) ([]model.Article, error) {
	records, err := s.searcher.Search(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Warn("article search failed", "query", req.Query, "err", err)
		return nil, nil
	}

	records = uniqueByURL(records)
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}

	slots := make([]*model.Article, len(records))
	var fresh []int
	for i, rec := range records {
		existing, err := s.store.ArticleByURL(rec.URL)
		switch {
		case err == nil:
			slots[i] = existing
		case store.IsNotFound(err):
			fresh = append(fresh, i)
		default:
			logging.Warn("article lookup failed", "url", rec.URL, "err", err)
		}
	}

	pages := s.scrapeAll(ctx, records, fresh)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for n, i := range fresh {
		a := buildArticle(records[i], pages[n])
		inserted, err := s.store.SaveArticle(a)
		if err != nil {
			logging.Warn("article save failed", "url", a.URL, "err", err)
			continue
		}
		if !inserted {
			// stored concurrently under the same URL
			if a, err = s.store.ArticleByURL(a.URL); err != nil {
				logging.Warn("article reload failed", "url", records[i].URL, "err", err)
				continue
			}
		}
		slots[i] = a
	}

	out := make([]model.Article, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			out = append(out, *a)
		}
	}
	logging.Info("ingested articles", "query", req.Query, "found", len(records), "new", len(fresh), "kept", len(out))
	return out, nil
}

// scrapeAll fetches pages for records[idx...] with bounded concurrency.
// pages[n] belongs to records[idx[n]] and is nil when scraping failed.
func (s *Service) scrapeAll(ctx context.Context, records []Record, idx []int) []*Page {
	pages := make([]*Page, len(idx))
	if s.scraper == nil {
		return pages
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for n, i := range idx {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			page, err := s.scraper.Scrape(ctx, records[i].URL)
			if err != nil {
				logging.Debug("scrape failed, using feed text", "url", records[i].URL, "err", err)
				return nil
			}
			pages[n] = page
			return nil // scrape failures fall back per article
		})
	}
	_ = g.Wait()
	return pages
}

// buildArticle merges a search record with its scraped page. Text prefers
// the page, then the feed content, then the description.
func buildArticle(rec Record, page *Page) *model.Article {
	a := &model.Article{
		Source:      rec.Source,
		URL:         rec.URL,
		Title:       rec.Title,
		Author:      rec.Author,
		PublishedAt: rec.PublishedAt,
		Language:    "en",
		ScrapedAt:   time.Now().UTC(),
	}
	if page != nil {
		a.Text = page.Text
		a.RawHTML = page.RawHTML
		if a.Author == "" {
			a.Author = page.Author
		}
		if a.PublishedAt == nil {
			a.PublishedAt = page.PublishedAt
		}
	}
	if a.Text == "" {
		a.Text = rec.Content
	}
	if a.Text == "" {
		a.Text = rec.Description
	}
	return a
}

// uniqueByURL drops records without a URL and repeats of an earlier URL.
func uniqueByURL(records []Record) []Record {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
