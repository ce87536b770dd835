package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lingocap/internal/cache"
	"lingocap/internal/config"
	"lingocap/internal/errs"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
)

const (
	mediaFileName = "video.mp4"
	infoFileName  = "video.info.json"
	thumbFileName = "video.jpg"
)

// Fetcher resolves a video URL to a locally cached media file by invoking
// the external downloader tool.
type Fetcher struct {
	runner  ToolRunner
	cache   *cache.Cache
	bin     string
	timeout time.Duration
	logger  logger.Logger
}

func NewFetcher(cfg *config.Config, runner ToolRunner, c *cache.Cache, log logger.Logger) *Fetcher {
	return &Fetcher{
		runner:  runner,
		cache:   c,
		bin:     cfg.Pipeline.DownloaderBin,
		timeout: time.Duration(cfg.Pipeline.DownloadTimeoutSec) * time.Second,
		logger:  log,
	}
}

// Fetch downloads the video plus its metadata and thumbnail into the cache.
// Repeated calls for an already cached video return without re-downloading.
func (f *Fetcher) Fetch(ctx context.Context, videoID, url string) (*models.MediaArtifact, *models.VideoInfo, error) {
	dir := f.cache.VideoDir(videoID)
	mediaPath := filepath.Join(dir, mediaFileName)

	if f.cache.Has(mediaPath) {
		f.logger.Infof("fetch: cache hit for video %s", videoID)
		info, err := f.readInfo(dir)
		if err != nil {
			info = &models.VideoInfo{ID: videoID}
		}
		return f.artifact(videoID, mediaPath), info, nil
	}

	// The tool writes into a staging directory first; completed outputs
	// are renamed into place so readers never see partial downloads.
	staging := filepath.Join(dir, ".staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, nil, &errs.FetchError{URL: url, Err: err}
	}
	defer os.RemoveAll(staging) //nolint:errcheck

	toolCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		url,
		"-f", "mp4/bestvideo*+bestaudio/best",
		"--no-playlist",
		"--write-info-json",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"-o", filepath.Join(staging, "video.%(ext)s"),
	}
	res, err := f.runner.Run(toolCtx, f.bin, args...)
	if err != nil {
		return nil, nil, &errs.FetchError{
			URL: url,
			Err: fmt.Errorf("%s exit %d: %s: %w", f.bin, res.ExitCode, firstLine(res.Stderr), err),
		}
	}

	for _, name := range []string{mediaFileName, infoFileName, thumbFileName} {
		src := filepath.Join(staging, name)
		if _, statErr := os.Stat(src); statErr != nil {
			if name == mediaFileName {
				return nil, nil, &errs.FetchError{URL: url, Err: fmt.Errorf("downloader produced no media file")}
			}
			continue // metadata and thumbnail are best effort
		}
		if renameErr := os.Rename(src, filepath.Join(dir, name)); renameErr != nil {
			return nil, nil, &errs.FetchError{URL: url, Err: renameErr}
		}
	}

	info, err := f.readInfo(dir)
	if err != nil {
		f.logger.Warnf("fetch: no metadata for video %s: %v", videoID, err)
		info = &models.VideoInfo{ID: videoID}
	}
	f.logger.Infof("fetch: downloaded video %s (%q, %.1fs)", videoID, info.Title, info.Duration)
	return f.artifact(videoID, mediaPath), info, nil
}

func (f *Fetcher) artifact(videoID, path string) *models.MediaArtifact {
	return &models.MediaArtifact{
		Path:    path,
		Key:     cache.Key(videoID, string(models.StageFetch)),
		Stage:   models.StageFetch,
		VideoID: videoID,
	}
}

func (f *Fetcher) readInfo(dir string) (*models.VideoInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, infoFileName))
	if err != nil {
		return nil, err
	}
	var info models.VideoInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
