package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/prism/internal/model"
)

const articleColumns = `
	id, source, url, title, author, published_at, text, language, raw_html,
	scraped_at, chunks, tone, lexical_bias, omission, consistency, bias_index,
	cluster_id`

// SaveArticle inserts a new article. An empty ID is filled in.
// Returns false without error when an article with the same URL exists.
// Thread-safe: acquires write lock.
func (s *Store) SaveArticle(a *model.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = model.NewID()
	}
	if a.ScrapedAt.IsZero() {
		a.ScrapedAt = time.Now().UTC()
	}
	if a.Language == "" {
		a.Language = "en"
	}

	chunks, err := encodeChunks(a.Chunks)
	if err != nil {
		return false, err
	}

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO articles (
			id, source, url, title, author, published_at, text, language,
			raw_html, scraped_at, chunks, cluster_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Source, a.URL, a.Title, a.Author, nullTime(a.PublishedAt),
		a.Text, a.Language, a.RawHTML, a.ScrapedAt, chunks, nullString(a.ClusterID),
	)
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", a.URL, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Article returns the article with the given ID.
// Thread-safe: acquires read lock.
func (s *Store) Article(id string) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryOne("SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
}

// ArticleByURL returns the article stored under url.
// Thread-safe: acquires read lock.
func (s *Store) ArticleByURL(url string) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryOne("SELECT "+articleColumns+" FROM articles WHERE url = ?", url)
}

// ArticlesByCluster returns the articles assigned to a cluster, oldest
// scrape first.
// Thread-safe: acquires read lock.
func (s *Store) ArticlesByCluster(clusterID string) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryArticles("SELECT "+articleColumns+" FROM articles WHERE cluster_id = ? ORDER BY scraped_at, id", clusterID)
}

// UpdateArticleChunks replaces the stored chunks of an article.
// Thread-safe: acquires write lock.
func (s *Store) UpdateArticleChunks(id string, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeChunks(chunks)
	if err != nil {
		return err
	}
	return s.execOne("UPDATE articles SET chunks = ? WHERE id = ?", data, id)
}

// UpdateArticleScores persists bias scores and the cluster assignment.
// Thread-safe: acquires write lock.
func (s *Store) UpdateArticleScores(id string, sc model.Scores, clusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.execOne(`
		UPDATE articles
		SET tone = ?, lexical_bias = ?, omission = ?, consistency = ?, bias_index = ?, cluster_id = ?
		WHERE id = ?
	`, sc.Tone, sc.LexicalBias, sc.Omission, sc.Consistency, sc.BiasIndex, nullString(clusterID), id)
}

// execOne runs an UPDATE that must touch exactly one row.
// Caller must hold s.mu.
func (s *Store) execOne(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// queryOne returns the single article matched by query, or ErrNotFound.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryOne(query string, args ...any) (*model.Article, error) {
	articles, err := s.queryArticles(query, args...)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return &articles[0], nil
}

// queryArticles executes a query and scans results into Articles.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryArticles(query string, args ...any) ([]model.Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var (
			a         model.Article
			author    sql.NullString
			published sql.NullTime
			rawHTML   sql.NullString
			chunks    sql.NullString
			clusterID sql.NullString
			tone      sql.NullFloat64
			lexical   sql.NullFloat64
			omission  sql.NullFloat64
			consist   sql.NullFloat64
			biasIndex sql.NullFloat64
		)
		err := rows.Scan(
			&a.ID, &a.Source, &a.URL, &a.Title, &author, &published, &a.Text,
			&a.Language, &rawHTML, &a.ScrapedAt, &chunks, &tone, &lexical,
			&omission, &consist, &biasIndex, &clusterID,
		)
		if err != nil {
			return nil, err
		}

		a.Author = author.String
		a.RawHTML = rawHTML.String
		a.ClusterID = clusterID.String
		if published.Valid {
			t := published.Time
			a.PublishedAt = &t
		}
		if chunks.Valid && chunks.String != "" {
			if err := json.Unmarshal([]byte(chunks.String), &a.Chunks); err != nil {
				return nil, fmt.Errorf("decode chunks for %s: %w", a.ID, err)
			}
		}
		if tone.Valid {
			a.Scores = &model.Scores{
				Tone:        tone.Float64,
				LexicalBias: lexical.Float64,
				Omission:    omission.Float64,
				Consistency: consist.Float64,
				BiasIndex:   biasIndex.Float64,
			}
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

func encodeChunks(chunks []model.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return "", fmt.Errorf("encode chunks: %w", err)
	}
	return string(data), nil
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
