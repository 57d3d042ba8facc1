// Package store provides SQLite persistence for articles and clusters.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for file-based DBs. ":memory:" opens a private in-memory
// database that lives as long as the Store.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Named shared-cache DB: every pooled connection sees the same data,
		// and each Store gets its own.
		connStr = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		author TEXT,
		published_at DATETIME,
		text TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'en',
		raw_html TEXT,
		scraped_at DATETIME NOT NULL,
		chunks TEXT,
		tone REAL,
		lexical_bias REAL,
		omission REAL,
		consistency REAL,
		bias_index REAL,
		cluster_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_articles_cluster ON articles(cluster_id);
	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);

	CREATE TABLE IF NOT EXISTS clusters (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		canonical_article_id TEXT,
		fact_summary TEXT,
		frame_summaries TEXT,
		facts TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_clusters_query ON clusters(query);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
