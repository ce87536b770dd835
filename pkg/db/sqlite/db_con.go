package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"lingocap/internal/config"
)

const maxOpenConns = 1

// NewSqliteDB opens (creating if needed) the catalog database. A single
// writer connection avoids SQLITE_BUSY under the worker pool.
func NewSqliteDB(c *config.Config) (*sqlx.DB, error) {
	path := c.SQLite.Path
	if path == "" {
		// Never place the database under the artifact cache root, where
		// eviction under byte pressure could delete it.
		path = filepath.Join(filepath.Dir(filepath.Clean(c.Pipeline.CacheDir)), "lingocap.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return db, nil
}
