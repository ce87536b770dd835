package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lingocap/internal/cache"
	"lingocap/internal/errs"
	"lingocap/internal/models"
)

func TestFetchDownloadsIntoCache(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	staging := filepath.Join(c.VideoDir("vid1"), ".staging")

	runner := &fakeRunner{handler: func(name string, args []string) (ToolResult, error) {
		require.Equal(t, "yt-dlp", name)
		require.Contains(t, args, "--no-playlist")
		require.Contains(t, args, "--write-info-json")
		for file, data := range map[string]string{
			"video.mp4":       "media",
			"video.info.json": `{"id":"vid1","title":"A Title","duration":12.5}`,
			"video.jpg":       "thumb",
		} {
			if err := os.WriteFile(filepath.Join(staging, file), []byte(data), 0o644); err != nil {
				return ToolResult{ExitCode: 1}, err
			}
		}
		return ToolResult{}, nil
	}}

	f := NewFetcher(testConfig(c.Root()), runner, c, testLogger())
	media, info, err := f.Fetch(context.Background(), "vid1", "https://youtu.be/vid1")
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)

	require.Equal(t, filepath.Join(c.VideoDir("vid1"), "video.mp4"), media.Path)
	require.Equal(t, models.StageFetch, media.Stage)
	require.True(t, c.Has(media.Path))
	require.Equal(t, "A Title", info.Title)
	require.Equal(t, 12.5, info.Duration)

	// Staging never survives a fetch.
	_, err = os.Stat(staging)
	require.True(t, os.IsNotExist(err))
}

func TestFetchCacheHitSkipsDownloader(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	dir := c.VideoDir("vid1")
	require.NoError(t, c.WriteFile(filepath.Join(dir, "video.mp4"), []byte("media")))
	require.NoError(t, c.WriteFile(filepath.Join(dir, "video.info.json"), []byte(`{"id":"vid1","title":"Cached","duration":3}`)))

	runner := &fakeRunner{}
	f := NewFetcher(testConfig(c.Root()), runner, c, testLogger())

	media, info, err := f.Fetch(context.Background(), "vid1", "https://youtu.be/vid1")
	require.NoError(t, err)
	require.Empty(t, runner.calls)
	require.Equal(t, "Cached", info.Title)
	require.True(t, c.Has(media.Path))
}

func TestFetchToolFailure(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	runner := &fakeRunner{handler: func(name string, args []string) (ToolResult, error) {
		return ToolResult{ExitCode: 1, Stderr: "ERROR: Video unavailable\nmore detail"}, fmt.Errorf("exit status 1")
	}}
	f := NewFetcher(testConfig(c.Root()), runner, c, testLogger())

	_, _, err = f.Fetch(context.Background(), "vid1", "https://youtu.be/vid1")
	var fetchErr *errs.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Contains(t, err.Error(), "Video unavailable")
	require.NotContains(t, err.Error(), "more detail")
}

func TestFetchMissingMediaFile(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)

	// Tool exits cleanly without producing the media file.
	runner := &fakeRunner{handler: func(name string, args []string) (ToolResult, error) {
		return ToolResult{}, nil
	}}
	f := NewFetcher(testConfig(c.Root()), runner, c, testLogger())

	_, _, err = f.Fetch(context.Background(), "vid1", "https://youtu.be/vid1")
	var fetchErr *errs.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetchWithoutMetadataFallsBack(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	staging := filepath.Join(c.VideoDir("vid1"), ".staging")

	runner := &fakeRunner{handler: func(name string, args []string) (ToolResult, error) {
		return ToolResult{}, os.WriteFile(filepath.Join(staging, "video.mp4"), []byte("media"), 0o644)
	}}
	f := NewFetcher(testConfig(c.Root()), runner, c, testLogger())

	_, info, err := f.Fetch(context.Background(), "vid1", "https://youtu.be/vid1")
	require.NoError(t, err)
	require.Equal(t, "vid1", info.ID)
	require.Empty(t, info.Title)
}
