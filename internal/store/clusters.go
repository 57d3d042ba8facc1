package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abelbrown/prism/internal/model"
)

// CreateCluster inserts a new cluster record. An empty ID is filled in.
// Thread-safe: acquires write lock.
func (s *Store) CreateCluster(c *model.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = model.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	frames, facts, err := encodeClusterParts(c)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO clusters (id, query, created_at, canonical_article_id, fact_summary, frame_summaries, facts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Query, c.CreatedAt, nullString(c.CanonicalArticleID), nullString(c.FactSummary), frames, facts)
	if err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}
	return nil
}

// UpdateCluster writes the analysis fields of an existing cluster.
// Thread-safe: acquires write lock.
func (s *Store) UpdateCluster(c *model.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames, facts, err := encodeClusterParts(c)
	if err != nil {
		return err
	}

	return s.execOne(`
		UPDATE clusters
		SET canonical_article_id = ?, fact_summary = ?, frame_summaries = ?, facts = ?
		WHERE id = ?
	`, nullString(c.CanonicalArticleID), nullString(c.FactSummary), frames, facts, c.ID)
}

// Cluster returns the cluster with the given ID.
// Thread-safe: acquires read lock.
func (s *Store) Cluster(id string) (*model.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clusters, err := s.queryClusters(`
		SELECT id, query, created_at, canonical_article_id, fact_summary, frame_summaries, facts
		FROM clusters WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return nil, ErrNotFound
	}
	return &clusters[0], nil
}

// ListClusters returns clusters newest first. A non-empty query restricts
// the list to clusters created for that query.
// Thread-safe: acquires read lock.
func (s *Store) ListClusters(query string, limit int) ([]model.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if query == "" {
		return s.queryClusters(`
			SELECT id, query, created_at, canonical_article_id, fact_summary, frame_summaries, facts
			FROM clusters ORDER BY created_at DESC LIMIT ?
		`, limit)
	}
	return s.queryClusters(`
		SELECT id, query, created_at, canonical_article_id, fact_summary, frame_summaries, facts
		FROM clusters WHERE query = ? ORDER BY created_at DESC LIMIT ?
	`, query, limit)
}

// queryClusters executes a query and scans results into Clusters.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryClusters(query string, args ...any) ([]model.Cluster, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []model.Cluster
	for rows.Next() {
		var (
			c         model.Cluster
			canonical sql.NullString
			summary   sql.NullString
			frames    sql.NullString
			facts     sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Query, &c.CreatedAt, &canonical, &summary, &frames, &facts); err != nil {
			return nil, err
		}
		c.CanonicalArticleID = canonical.String
		c.FactSummary = summary.String
		if frames.Valid && frames.String != "" {
			if err := json.Unmarshal([]byte(frames.String), &c.FrameSummaries); err != nil {
				return nil, fmt.Errorf("decode frame summaries for %s: %w", c.ID, err)
			}
		}
		if facts.Valid && facts.String != "" {
			if err := json.Unmarshal([]byte(facts.String), &c.Facts); err != nil {
				return nil, fmt.Errorf("decode facts for %s: %w", c.ID, err)
			}
		}
		clusters = append(clusters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clusters, nil
}

func encodeClusterParts(c *model.Cluster) (frames, facts any, err error) {
	if len(c.FrameSummaries) > 0 {
		data, err := json.Marshal(c.FrameSummaries)
		if err != nil {
			return nil, nil, fmt.Errorf("encode frame summaries: %w", err)
		}
		frames = string(data)
	}
	if len(c.Facts) > 0 {
		data, err := json.Marshal(c.Facts)
		if err != nil {
			return nil, nil, fmt.Errorf("encode facts: %w", err)
		}
		facts = string(data)
	}
	return frames, facts, nil
}
