package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/adargal/pelles/internal/domain"
)

// SQLiteCache persists store search results in a SQLite database so they
// survive restarts. Entries are unique per (store_id, query_normalized)
// and replaced on refresh.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteCache opens or creates the cache database at path and creates
// the schema if it does not exist.
func NewSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	c := &SQLiteCache{db: db, ttl: ttl}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			store_id TEXT NOT NULL,
			query_normalized TEXT NOT NULL,
			results_json TEXT NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			UNIQUE(store_id, query_normalized)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_cache_store ON search_cache(store_id)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns cached candidates for the key, or ErrCacheMiss when the entry
// is absent, older than the TTL, or unreadable.
func (c *SQLiteCache) Get(ctx context.Context, storeID, normalizedQuery string) ([]domain.Candidate, error) {
	cutoff := time.Now().UTC().Add(-c.ttl)

	var resultsJSON string
	err := c.db.QueryRowContext(ctx,
		`SELECT results_json FROM search_cache
		 WHERE store_id = ? AND query_normalized = ? AND fetched_at >= ?`,
		storeID, normalizedQuery, cutoff,
	).Scan(&resultsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		// A broken read degrades to a miss and triggers a live fetch
		log.Warn().Err(err).Str("store", storeID).Msg("cache read failed")
		return nil, domain.ErrCacheMiss
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal([]byte(resultsJSON), &candidates); err != nil {
		log.Warn().Err(err).Str("store", storeID).Msg("failed to parse cached results")
		return nil, domain.ErrCacheMiss
	}
	return candidates, nil
}

// Put stores candidates for the key, replacing any existing entry.
func (c *SQLiteCache) Put(ctx context.Context, storeID, normalizedQuery string, candidates []domain.Candidate) error {
	resultsJSON, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encoding search results: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO search_cache (store_id, query_normalized, results_json, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(store_id, query_normalized) DO UPDATE SET
			results_json = excluded.results_json,
			fetched_at = excluded.fetched_at`,
		storeID, normalizedQuery, string(resultsJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes cache entries; an empty storeID clears every store.
// Returns the number of rows removed.
func (c *SQLiteCache) Clear(ctx context.Context, storeID string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if storeID == "" {
		result, err = c.db.ExecContext(ctx, `DELETE FROM search_cache`)
	} else {
		result, err = c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE store_id = ?`, storeID)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return result.RowsAffected()
}
