// Package cache provides a SQLite frequency index over the ledger store that
// auto-rebuilds from the flat file using SHA256 freshness detection. The cache
// is expendable: the store file stays the source of truth.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/leeovery/dedupe/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
  entry TEXT PRIMARY KEY,
  count INTEGER NOT NULL,
  first_seen INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT
);

CREATE INDEX IF NOT EXISTS idx_entries_count ON entries(count);
`

// Cache wraps a SQLite database used as a frequency index.
type Cache struct {
	db   *sql.DB
	path string
}

// New opens or creates a SQLite cache database at the given path and
// initializes the schema if not present.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &Cache{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Rebuild replaces all cached rows with freqs and records the hash of raw.
// freqs are expected in first-occurrence order; their position becomes
// first_seen. Runs in a single transaction.
func (c *Cache) Rebuild(freqs []ledger.Frequency, raw []byte) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO entries (entry, count, first_seen) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range freqs {
		if _, err := stmt.Exec(f.Entry, f.Count, i); err != nil {
			return fmt.Errorf("inserting entry %q: %w", f.Entry, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES ('store_hash', ?)",
		computeHash(raw),
	); err != nil {
		return fmt.Errorf("storing store hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}
	return nil
}

// IsFresh reports whether the cache was built from exactly raw.
func (c *Cache) IsFresh(raw []byte) (bool, error) {
	var storedHash string
	err := c.db.QueryRow("SELECT value FROM metadata WHERE key='store_hash'").Scan(&storedHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying store hash: %w", err)
	}
	return storedHash == computeHash(raw), nil
}

// Top returns up to n entries ordered by count descending, earliest first
// occurrence first among equal counts.
func (c *Cache) Top(n int) ([]ledger.Frequency, error) {
	rows, err := c.db.Query(
		"SELECT entry, count FROM entries ORDER BY count DESC, first_seen ASC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying top entries: %w", err)
	}
	defer rows.Close()

	out := []ledger.Frequency{}
	for rows.Next() {
		var f ledger.Frequency
		if err := rows.Scan(&f.Entry, &f.Count); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Lookup returns the cached count for a normalized entry, 0 when absent.
func (c *Cache) Lookup(entry string) (int, error) {
	var n int
	err := c.db.QueryRow("SELECT count FROM entries WHERE entry = ?", entry).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up %q: %w", entry, err)
	}
	return n, nil
}

// EnsureFresh opens the cache at dbPath, checks freshness against raw, and
// rebuilds from freqs if stale or missing. A corrupted cache file is deleted
// and recreated.
func EnsureFresh(dbPath string, freqs []ledger.Frequency, raw []byte, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := New(dbPath)
	if err != nil {
		logger.Warn("cache corrupt or unreadable, recreating", zap.Error(err))
		c, err = recreate(dbPath)
		if err != nil {
			return nil, err
		}
	}

	fresh, err := c.IsFresh(raw)
	if err != nil {
		logger.Warn("cache query failed, recreating", zap.Error(err))
		c.Close()
		c, err = recreate(dbPath)
		if err != nil {
			return nil, err
		}
		fresh = false
	}

	if !fresh {
		logger.Debug("cache: stale, rebuilding", zap.Int("entries", len(freqs)))
		if err := c.Rebuild(freqs, raw); err != nil {
			c.Close()
			return nil, fmt.Errorf("rebuilding cache: %w", err)
		}
	}

	return c, nil
}

// recreate removes the cache file at dbPath and creates a fresh database.
func recreate(dbPath string) (*Cache, error) {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing corrupt cache: %w", err)
	}
	c, err := New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("recreating cache: %w", err)
	}
	return c, nil
}

// computeHash returns the hex-encoded SHA256 hash of the given data.
func computeHash(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}
