// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package marketdata

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrCacheClosed indicates an operation on a closed cache.
var ErrCacheClosed = errors.New("series cache closed")

// DefaultCacheTTL is how long a cached series stays fresh.
const DefaultCacheTTL = 15 * time.Minute

// =============================================================================
// SERIES CACHE
// =============================================================================

// Cache is an on-disk cache of encoded series keyed by request
// parameters. It only ever stores fetched upstream data; detected
// queries are never written anywhere.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache opens (creating if needed) a cache database at path.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS series_cache (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_series_cache_fetched ON series_cache(fetched_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached payload for key if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil || c.db == nil {
		return nil, false
	}

	var payload []byte
	var fetchedAt int64
	err := c.db.QueryRow(
		"SELECT payload, fetched_at FROM series_cache WHERE key = ?", key,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		return nil, false
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		// Stale; evict lazily.
		c.db.Exec("DELETE FROM series_cache WHERE key = ?", key)
		return nil, false
	}
	return payload, true
}

// Put stores payload under key, replacing any previous entry.
func (c *Cache) Put(key string, payload []byte) error {
	if c == nil || c.db == nil {
		return ErrCacheClosed
	}
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO series_cache (key, payload, fetched_at) VALUES (?, ?, ?)",
		key, payload, time.Now().Unix(),
	)
	return err
}

// Purge removes every entry older than the TTL.
func (c *Cache) Purge() error {
	if c == nil || c.db == nil {
		return ErrCacheClosed
	}
	cutoff := time.Now().Add(-c.ttl).Unix()
	_, err := c.db.Exec("DELETE FROM series_cache WHERE fetched_at < ?", cutoff)
	return err
}

// Close releases the database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
