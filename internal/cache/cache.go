// Package cache is the on-disk artifact store shared by all pipeline
// stages. Every write lands via temp-file-then-atomic-rename so readers
// never observe partial artifacts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"lingocap/internal/errs"
	"lingocap/pkg/logger"
)

// Key derives a stable cache key from a stage's identifying parameters.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])[:16]
}

type Cache struct {
	root     string
	maxBytes int64
	logger   logger.Logger

	mu sync.Mutex // guards eviction
}

func New(root string, maxBytes int64, log logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &errs.CacheError{Path: root, Err: err}
	}
	return &Cache{root: root, maxBytes: maxBytes, logger: log}, nil
}

func (c *Cache) Root() string {
	return c.root
}

// Path joins path elements under the cache root.
func (c *Cache) Path(elem ...string) string {
	return filepath.Join(append([]string{c.root}, elem...)...)
}

// VideoDir is the per-video artifact directory.
func (c *Cache) VideoDir(videoID string) string {
	return filepath.Join(c.root, videoID)
}

// Has reports whether a non-empty artifact exists at path.
func (c *Cache) Has(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// WriteFile atomically writes data to path, creating parent directories.
func (c *Cache) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	return nil
}

// WriteFrom atomically streams r into path.
func (c *Cache) WriteFrom(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	pf, err := renameio.TempFile("", path)
	if err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	defer pf.Cleanup() //nolint:errcheck
	if _, err := io.Copy(pf, r); err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	return nil
}

type cachedFile struct {
	path    string
	size    int64
	modTime int64
}

// Evict removes least-recently-written artifacts until the cache fits the
// byte budget. Returns the number of bytes freed.
func (c *Cache) Evict() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var files []cachedFile
	var total int64
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, cachedFile{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, &errs.CacheError{Path: c.root, Err: err}
	}
	if c.maxBytes <= 0 || total <= c.maxBytes {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime < files[j].modTime })

	var freed int64
	for _, f := range files {
		if total-freed <= c.maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			c.logger.Warnf("cache evict %s: %v", f.path, err)
			continue
		}
		freed += f.size
	}
	if freed > 0 {
		c.logger.Infof("cache evicted %d bytes from %s", freed, c.root)
	}
	return freed, nil
}
