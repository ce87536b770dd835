package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingocap/internal/config"
	"lingocap/pkg/logger"
)

func testLogger() logger.Logger {
	l := logger.NewApiLogger(&config.Config{
		Server: config.ServerConfig{Mode: "Development"},
		Logger: config.Logger{Encoding: "console", Level: "error"},
	})
	l.InitLogger()
	return l
}

func TestKeyIsStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, Key("a", "b"), Key("a", "b"))
	require.Len(t, Key("a", "b"), 16)
	require.NotEqual(t, Key("a", "b"), Key("a", "c"))
	// The separator keeps concatenation ambiguity out of the key space.
	require.NotEqual(t, Key("ab"), Key("a", "b"))
}

func TestWriteFileCreatesParents(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	path := c.Path("vid1", "tracks", "video.es.vtt")
	require.False(t, c.Has(path))

	require.NoError(t, c.WriteFile(path, []byte("WEBVTT\n")))
	require.True(t, c.Has(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "WEBVTT\n", string(data))
}

func TestWriteFromStreams(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	path := c.Path("vid1", "audio", "a.wav")
	require.NoError(t, c.WriteFrom(path, bytes.NewReader([]byte("RIFF....WAVE"))))
	require.True(t, c.Has(path))
}

func TestHasRejectsEmptyFiles(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	path := c.Path("vid1", "video.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	require.False(t, c.Has(path))
}

func TestEvictRemovesOldestFirst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	c, err := New(root, 25, testLogger())
	require.NoError(t, err)

	old := c.Path("vid1", "old.bin")
	mid := c.Path("vid2", "mid.bin")
	recent := c.Path("vid3", "recent.bin")
	for i, p := range []string{old, mid, recent} {
		require.NoError(t, c.WriteFile(p, bytes.Repeat([]byte{'x'}, 10)))
		stamp := time.Now().Add(time.Duration(i-3) * time.Hour)
		require.NoError(t, os.Chtimes(p, stamp, stamp))
	}

	freed, err := c.Evict()
	require.NoError(t, err)
	require.Equal(t, int64(10), freed)

	_, err = os.Stat(old)
	require.True(t, os.IsNotExist(err))
	require.True(t, c.Has(mid))
	require.True(t, c.Has(recent))
}

func TestEvictNoopUnderBudget(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 1<<20, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.WriteFile(c.Path("vid1", "a.bin"), []byte("abc")))

	freed, err := c.Evict()
	require.NoError(t, err)
	require.Zero(t, freed)
	require.True(t, c.Has(c.Path("vid1", "a.bin")))
}

func TestEvictUnlimitedBudget(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.WriteFile(c.Path("vid1", "a.bin"), bytes.Repeat([]byte{'x'}, 100)))

	freed, err := c.Evict()
	require.NoError(t, err)
	require.Zero(t, freed)
}
