package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lingocap/internal/config"
)

func TestNewSqliteDBDefaultPathOutsideCache(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cacheDir := filepath.Join(root, "cache")
	cfg := &config.Config{}
	cfg.Pipeline.CacheDir = cacheDir

	db, err := NewSqliteDB(cfg)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	// The catalog sits next to the artifact cache, never under it, so
	// cache eviction cannot remove it.
	require.FileExists(t, filepath.Join(root, "lingocap.db"))
	matches, err := filepath.Glob(filepath.Join(cacheDir, "*.db*"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestNewSqliteDBExplicitPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db", "catalog.db")
	cfg := &config.Config{}
	cfg.SQLite.Path = path

	db, err := NewSqliteDB(cfg)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	_, err = os.Stat(path)
	require.NoError(t, err)
}
