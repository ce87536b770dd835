// Package pipeline runs the caption pipeline: fetch, extract, transcribe,
// translate, assemble. Stages execute strictly in order; each stage's
// output is cached by key, so a re-run resumes from the first missing
// artifact. Cancellation is honored at stage boundaries.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"lingocap/internal/cache"
	"lingocap/internal/captions"
	"lingocap/internal/config"
	"lingocap/internal/errs"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
)

// Transcriber is implemented by the transcription client.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, duration float64, langHint string) ([]models.TranscriptSegment, error)
}

// Translator is implemented by the translation client. The bool result
// reports degraded (source-text) entries.
type Translator interface {
	Translate(ctx context.Context, segs []models.TranscriptSegment, sourceLang, targetLang string) ([]models.CaptionEntry, bool, error)
}

type Pipeline struct {
	cfg         *config.Config
	fetcher     *Fetcher
	extractor   *Extractor
	transcriber Transcriber
	translator  Translator
	assembler   *Assembler
	cache       *cache.Cache
	repo        captions.Repository
	redisRepo   captions.RedisRepository
	logger      logger.Logger
}

func NewPipeline(
	cfg *config.Config,
	fetcher *Fetcher,
	extractor *Extractor,
	transcriber Transcriber,
	translator Translator,
	assembler *Assembler,
	c *cache.Cache,
	repo captions.Repository,
	redisRepo captions.RedisRepository,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		fetcher:     fetcher,
		extractor:   extractor,
		transcriber: transcriber,
		translator:  translator,
		assembler:   assembler,
		cache:       c,
		repo:        repo,
		redisRepo:   redisRepo,
		logger:      log,
	}
}

// Run executes one caption job end to end and records its terminal status.
// Errors are also returned for the caller's logging.
func (p *Pipeline) Run(ctx context.Context, job *models.CaptionJob) error {
	if err := p.run(ctx, job); err != nil {
		p.logger.Errorf("pipeline: job %s failed at stage %s: %v", job.JobID, job.Stage, err)
		if statusErr := p.redisRepo.UpdateStatus(ctx, job, models.JobStatusFailed, errs.Reason(err)); statusErr != nil {
			p.logger.Errorf("pipeline: job %s status update failed: %v", job.JobID, statusErr)
		}
		return err
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, job *models.CaptionJob) error {
	// A terminal track may already exist if an identical job was queued
	// twice; short-circuit to delivery.
	trackPath := p.assembler.TrackPath(job.VideoID, job.TargetLang)
	if p.cache.Has(trackPath) {
		if track, err := p.repo.GetTrack(ctx, job.VideoID, job.TargetLang); err == nil {
			return p.finish(ctx, job, track)
		}
	}

	if err := p.checkpoint(ctx, job, models.StageFetch, 0.05); err != nil {
		return err
	}
	media, info, err := p.fetcher.Fetch(ctx, job.VideoID, job.SourceURL)
	if err != nil {
		return err
	}
	video := &models.Video{
		VideoID:       job.VideoID,
		SourceURL:     job.SourceURL,
		Title:         info.Title,
		Duration:      info.Duration,
		MediaPath:     media.Path,
		ThumbnailPath: p.cache.Path(job.VideoID, thumbFileName),
	}
	if err := p.repo.UpsertVideo(ctx, video); err != nil {
		return err
	}

	if err := p.checkpoint(ctx, job, models.StageExtract, 0.25); err != nil {
		return err
	}
	audio, err := p.extractor.Extract(ctx, media)
	if err != nil {
		return err
	}

	// Some downloads carry no duration metadata; probe the audio itself
	// so long media still gets chunked.
	duration := info.Duration
	if duration <= 0 {
		if probed, perr := p.extractor.ProbeDuration(ctx, audio.Path); perr == nil {
			duration = probed
		} else {
			p.logger.Warnf("pipeline: duration probe for video %s: %v", job.VideoID, perr)
		}
	}

	if err := p.checkpoint(ctx, job, models.StageTranscribe, 0.40); err != nil {
		return err
	}
	segments, err := p.transcript(ctx, job, audio, duration)
	if err != nil {
		return err
	}

	if err := p.checkpoint(ctx, job, models.StageTranslate, 0.70); err != nil {
		return err
	}
	entries, degraded, err := p.entries(ctx, job, audio, segments)
	if err != nil {
		return err
	}
	if len(entries) != len(segments) {
		return &errs.AssemblyError{
			Reason: fmt.Sprintf("translation changed segment count: %d != %d", len(entries), len(segments)),
		}
	}

	if err := p.checkpoint(ctx, job, models.StageAssemble, 0.90); err != nil {
		return err
	}
	track, err := p.assembler.Assemble(entries, job.VideoID, job.TargetLang)
	if err != nil {
		return err
	}
	track.Partial = track.Partial || degraded
	if err := p.repo.UpsertTrack(ctx, track); err != nil {
		return err
	}

	if _, err := p.cache.Evict(); err != nil {
		p.logger.Warnf("pipeline: cache eviction: %v", err)
	}
	return p.finish(ctx, job, track)
}

// transcript returns the segment sequence for the job's audio, reusing the
// cached result so a re-run never re-invokes the transcription service.
func (p *Pipeline) transcript(ctx context.Context, job *models.CaptionJob, audio *models.MediaArtifact, duration float64) ([]models.TranscriptSegment, error) {
	key := cache.Key(audio.Key, string(models.StageTranscribe), job.SourceLang)
	path := p.cache.Path(job.VideoID, "transcripts", key+".json")

	var segments []models.TranscriptSegment
	if p.loadJSON(path, &segments) {
		p.logger.Infof("transcribe: cache hit for video %s", job.VideoID)
		return segments, nil
	}

	segments, err := p.transcriber.Transcribe(ctx, audio.Path, duration, job.SourceLang)
	if err != nil {
		return nil, err
	}
	if err := p.storeJSON(path, segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// entries returns the translated caption entries, cached by transcript key
// and target language.
func (p *Pipeline) entries(ctx context.Context, job *models.CaptionJob, audio *models.MediaArtifact, segments []models.TranscriptSegment) ([]models.CaptionEntry, bool, error) {
	key := cache.Key(audio.Key, string(models.StageTranslate), job.SourceLang, job.TargetLang)
	path := p.cache.Path(job.VideoID, "translations", key+".json")

	var cached struct {
		Entries  []models.CaptionEntry `json:"entries"`
		Degraded bool                  `json:"degraded"`
	}
	if p.loadJSON(path, &cached) && len(cached.Entries) == len(segments) {
		p.logger.Infof("translate: cache hit for video %s (%s)", job.VideoID, job.TargetLang)
		return cached.Entries, cached.Degraded, nil
	}

	entries, degraded, err := p.translator.Translate(ctx, segments, job.SourceLang, job.TargetLang)
	if err != nil {
		return nil, false, err
	}
	cached.Entries = entries
	cached.Degraded = degraded
	if err := p.storeJSON(path, &cached); err != nil {
		return nil, false, err
	}
	return entries, degraded, nil
}

func (p *Pipeline) finish(ctx context.Context, job *models.CaptionJob, track *models.CaptionTrack) error {
	job.Stage = models.StageDeliver
	job.Progress = 1.0
	status := models.JobStatusCompleted
	reason := ""
	if track.Partial {
		status = models.JobStatusPartial
		reason = "some captions kept the original language"
	}
	if err := p.redisRepo.UpdateStatus(ctx, job, status, reason); err != nil {
		return err
	}
	p.logger.Infof("pipeline: job %s done (%s, %d entries)", job.JobID, status, track.SegmentCount)
	return nil
}

// checkpoint is the stage boundary: cancellation is honored here and the
// job's visible stage/progress advances.
func (p *Pipeline) checkpoint(ctx context.Context, job *models.CaptionJob, stage models.PipelineStage, progress float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job.Stage = stage
	if err := p.redisRepo.UpdateStage(ctx, job, stage, progress); err != nil {
		p.logger.Warnf("pipeline: job %s stage update failed: %v", job.JobID, err)
	}
	return nil
}

func (p *Pipeline) loadJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (p *Pipeline) storeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &errs.CacheError{Path: path, Err: err}
	}
	return p.cache.WriteFile(path, data)
}
