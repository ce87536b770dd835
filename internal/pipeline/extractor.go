package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"lingocap/internal/cache"
	"lingocap/internal/config"
	"lingocap/internal/errs"
	"lingocap/internal/models"
	"lingocap/internal/transcribe"
	"lingocap/pkg/logger"
)

// audioParams pins the encoding the transcription service expects; it is
// part of the extraction cache key, so changing it supersedes old artifacts.
const audioParams = "wav-mono-16k"

// Extractor derives the transcription-ready audio stream from fetched
// media by invoking the external media tool.
type Extractor struct {
	runner   ToolRunner
	cache    *cache.Cache
	bin      string
	probeBin string
	timeout  time.Duration
	logger   logger.Logger
}

func NewExtractor(cfg *config.Config, runner ToolRunner, c *cache.Cache, log logger.Logger) *Extractor {
	return &Extractor{
		runner:   runner,
		cache:    c,
		bin:      cfg.Pipeline.MediaToolBin,
		probeBin: cfg.Pipeline.ProbeToolBin,
		timeout:  time.Duration(cfg.Pipeline.ToolTimeoutSec) * time.Second,
		logger:   log,
	}
}

// ProbeDuration reads a media file's duration from its container metadata.
// Used when the downloader's metadata omits the duration, so the chunking
// decision never runs on a zero value.
func (e *Extractor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	toolCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := e.runner.Run(toolCtx, e.probeBin, args...)
	if err != nil {
		return 0, &errs.ExtractionError{
			Path: path,
			Err:  fmt.Errorf("%s exit %d: %s: %w", e.probeBin, res.ExitCode, firstLine(res.Stderr), err),
		}
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, &errs.ExtractionError{Path: path, Err: fmt.Errorf("unparseable duration %q", strings.TrimSpace(res.Stdout))}
	}
	return d, nil
}

// Extract produces a mono 16 kHz WAV keyed by the input artifact's cache
// key. Cached output is reused without re-running the tool.
func (e *Extractor) Extract(ctx context.Context, media *models.MediaArtifact) (*models.MediaArtifact, error) {
	key := cache.Key(media.Key, string(models.StageExtract), audioParams)
	outPath := e.cache.Path(media.VideoID, "audio", key+".wav")

	artifact := &models.MediaArtifact{
		Path:    outPath,
		Key:     key,
		Stage:   models.StageExtract,
		VideoID: media.VideoID,
	}
	if e.cache.Has(outPath) {
		e.logger.Infof("extract: cache hit for video %s", media.VideoID)
		return artifact, nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, &errs.ExtractionError{Path: media.Path, Err: err}
	}

	toolCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tmp := outPath + ".tmp"
	defer os.Remove(tmp) //nolint:errcheck
	args := []string{
		"-y",
		"-i", media.Path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		tmp,
	}
	res, err := e.runner.Run(toolCtx, e.bin, args...)
	if err != nil {
		return nil, &errs.ExtractionError{
			Path: media.Path,
			Err:  fmt.Errorf("%s exit %d: %s: %w", e.bin, res.ExitCode, firstLine(res.Stderr), err),
		}
	}
	if err := os.Rename(tmp, outPath); err != nil {
		return nil, &errs.ExtractionError{Path: media.Path, Err: err}
	}
	e.logger.Infof("extract: wrote audio for video %s", media.VideoID)
	return artifact, nil
}

// Split slices an audio file into fixed-duration chunks for the
// transcription client. Chunk offsets are index*chunkSeconds; the last
// chunk is shorter. Implements transcribe.Splitter.
func (e *Extractor) Split(ctx context.Context, audioPath string, chunkSeconds int) ([]transcribe.Chunk, error) {
	dir := filepath.Join(filepath.Dir(audioPath), "chunks-"+cache.Key(audioPath, fmt.Sprint(chunkSeconds)))

	existing, _ := filepath.Glob(filepath.Join(dir, "chunk_*.wav"))
	if len(existing) == 0 {
		// The tool writes into a staging directory that is renamed into
		// place only after a clean exit, so an interrupted split never
		// leaves a partial chunk set where a later run would reuse it.
		staging := dir + ".staging"
		if err := os.RemoveAll(staging); err != nil {
			return nil, &errs.ExtractionError{Path: audioPath, Err: err}
		}
		if err := os.MkdirAll(staging, 0o755); err != nil {
			return nil, &errs.ExtractionError{Path: audioPath, Err: err}
		}
		defer os.RemoveAll(staging) //nolint:errcheck

		toolCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		args := []string{
			"-y",
			"-i", audioPath,
			"-f", "segment",
			"-segment_time", fmt.Sprint(chunkSeconds),
			"-c", "copy",
			filepath.Join(staging, "chunk_%03d.wav"),
		}
		res, err := e.runner.Run(toolCtx, e.bin, args...)
		if err != nil {
			return nil, &errs.ExtractionError{
				Path: audioPath,
				Err:  fmt.Errorf("%s exit %d: %s: %w", e.bin, res.ExitCode, firstLine(res.Stderr), err),
			}
		}
		staged, err := filepath.Glob(filepath.Join(staging, "chunk_*.wav"))
		if err != nil {
			return nil, &errs.ExtractionError{Path: audioPath, Err: err}
		}
		if len(staged) == 0 {
			return nil, &errs.ExtractionError{Path: audioPath, Err: fmt.Errorf("splitter produced no chunks")}
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, &errs.ExtractionError{Path: audioPath, Err: err}
		}
		if err := os.Rename(staging, dir); err != nil {
			return nil, &errs.ExtractionError{Path: audioPath, Err: err}
		}
		existing, err = filepath.Glob(filepath.Join(dir, "chunk_*.wav"))
		if err != nil {
			return nil, &errs.ExtractionError{Path: audioPath, Err: err}
		}
	}
	sort.Strings(existing)

	chunks := make([]transcribe.Chunk, 0, len(existing))
	for i, p := range existing {
		chunks = append(chunks, transcribe.Chunk{
			Path:   p,
			Offset: float64(i * chunkSeconds),
		})
	}
	if len(chunks) == 0 {
		return nil, &errs.ExtractionError{Path: audioPath, Err: fmt.Errorf("splitter produced no chunks")}
	}
	return chunks, nil
}
