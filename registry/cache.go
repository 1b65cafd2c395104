package registry

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mustng65/angular-starter-schematic/cas"
)

// Cache keeps resolved versions keyed by (package, major).
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS versions (
	name TEXT NOT NULL,
	major TEXT NOT NULL,
	version TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (name, major)
);
`

// OpenCache opens or creates the cache database in dir.
// The database is stored at {dir}/registry.db. Entries older than ttl are
// ignored; a zero ttl keeps entries forever.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "registry.db"))
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns a fresh cached version.
func (c *Cache) Get(name, major string) (string, bool) {
	var version string
	var fetchedAt int64
	err := c.db.QueryRow(
		"SELECT version, fetched_at FROM versions WHERE name = ? AND major = ?",
		name, major,
	).Scan(&version, &fetchedAt)
	if err != nil {
		return "", false
	}

	if c.ttl > 0 && cas.NowMs()-fetchedAt > c.ttl.Milliseconds() {
		return "", false // Stale
	}
	return version, true
}

// Put stores a resolved version.
func (c *Cache) Put(name, major, version string) error {
	return c.putAt(name, major, version, cas.NowMs())
}

func (c *Cache) putAt(name, major, version string, fetchedAt int64) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO versions (name, major, version, fetched_at)
		 VALUES (?, ?, ?, ?)`,
		name, major, version, fetchedAt,
	)
	return err
}

// Clear removes all entries.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM versions")
	return err
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM versions").Scan(&n)
	return n, err
}
