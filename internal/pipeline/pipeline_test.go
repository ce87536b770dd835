package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lingocap/internal/cache"
	"lingocap/internal/models"
	"lingocap/pkg/utils"
)

type fakeRepo struct {
	mu     sync.Mutex
	videos map[string]*models.Video
	tracks map[string]*models.CaptionTrack
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{videos: map[string]*models.Video{}, tracks: map[string]*models.CaptionTrack{}}
}

func (r *fakeRepo) UpsertVideo(ctx context.Context, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[video.VideoID] = video
	return nil
}

func (r *fakeRepo) GetVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func (r *fakeRepo) GetVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error) {
	return &models.VideoList{}, nil
}

func (r *fakeRepo) DeleteVideo(ctx context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.videos, videoID)
	return nil
}

func (r *fakeRepo) UpsertTrack(ctx context.Context, track *models.CaptionTrack) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks[track.VideoID+":"+track.Language] = track
	return nil
}

func (r *fakeRepo) GetTrack(ctx context.Context, videoID, language string) (*models.CaptionTrack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.tracks[videoID+":"+language]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tr, nil
}

func (r *fakeRepo) GetTrackLanguages(ctx context.Context, videoID string) ([]string, error) {
	return nil, nil
}

type statusUpdate struct {
	status models.JobStatus
	reason string
}

type fakeRedisRepo struct {
	mu       sync.Mutex
	queue    []*models.CaptionJob
	jobs     map[string]*models.CaptionJob
	statuses []statusUpdate
	enqueues int
}

func newFakeRedisRepo() *fakeRedisRepo {
	return &fakeRedisRepo{jobs: map[string]*models.CaptionJob{}}
}

func (r *fakeRedisRepo) EnqueueJob(ctx context.Context, key string, job *models.CaptionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, job)
	r.enqueues++
	return nil
}

func (r *fakeRedisRepo) DequeueJob(ctx context.Context, key string, timeout time.Duration) (*models.CaptionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil, nil
	}
	job := r.queue[0]
	r.queue = r.queue[1:]
	return job, nil
}

func (r *fakeRedisRepo) SaveJob(ctx context.Context, job *models.CaptionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID] = job
	return nil
}

func (r *fakeRedisRepo) GetJob(ctx context.Context, jobID string) (*models.CaptionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[jobID], nil
}

func (r *fakeRedisRepo) UpdateStage(ctx context.Context, job *models.CaptionJob, stage models.PipelineStage, progress float64) error {
	job.Stage = stage
	job.Progress = progress
	job.Status = models.JobStatusProcessing
	return r.SaveJob(ctx, job)
}

func (r *fakeRedisRepo) UpdateStatus(ctx context.Context, job *models.CaptionJob, status models.JobStatus, reason string) error {
	job.Status = status
	job.Error = reason
	r.mu.Lock()
	r.statuses = append(r.statuses, statusUpdate{status: status, reason: reason})
	r.mu.Unlock()
	return r.SaveJob(ctx, job)
}

func (r *fakeRedisRepo) FindActiveJob(ctx context.Context, pairKey string) (*models.CaptionJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.PairKey() == pairKey && !j.Status.Terminal() {
			return j, nil
		}
	}
	return nil, nil
}

func (r *fakeRedisRepo) AcquireRunLock(ctx context.Context, pairKey string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (r *fakeRedisRepo) ReleaseRunLock(ctx context.Context, pairKey string) error {
	return nil
}

func (r *fakeRedisRepo) lastStatus() statusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return statusUpdate{}
	}
	return r.statuses[len(r.statuses)-1]
}

type fakeTranscriber struct {
	mu       sync.Mutex
	calls    int
	duration float64
	segs     []models.TranscriptSegment
	err      error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, duration float64, langHint string) ([]models.TranscriptSegment, error) {
	f.mu.Lock()
	f.calls++
	f.duration = duration
	f.mu.Unlock()
	return f.segs, f.err
}

type fakeTranslator struct {
	mu       sync.Mutex
	calls    int
	degraded bool
	drop     bool
}

func (f *fakeTranslator) Translate(ctx context.Context, segs []models.TranscriptSegment, sourceLang, targetLang string) ([]models.CaptionEntry, bool, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	entries := make([]models.CaptionEntry, 0, len(segs))
	for i, s := range segs {
		e := models.CaptionEntry{Start: s.Start, End: s.End, Text: "es:" + s.Text}
		if f.degraded && i == 0 {
			e.Text = s.Text
			e.Degraded = true
		}
		entries = append(entries, e)
	}
	if f.drop && len(entries) > 0 {
		entries = entries[1:]
	}
	return entries, f.degraded, nil
}

type pipelineFixture struct {
	pipe        *Pipeline
	cache       *cache.Cache
	repo        *fakeRepo
	redisRepo   *fakeRedisRepo
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	assembler   *Assembler

	infoJSON      string
	probedSeconds string
}

func newPipelineFixture(t *testing.T, transcriber *fakeTranscriber, translator *fakeTranslator) *pipelineFixture {
	t.Helper()
	log := testLogger()
	c, err := cache.New(t.TempDir(), 0, log)
	require.NoError(t, err)
	cfg := testConfig(c.Root())

	fx := &pipelineFixture{
		cache:         c,
		repo:          newFakeRepo(),
		redisRepo:     newFakeRedisRepo(),
		transcriber:   transcriber,
		translator:    translator,
		infoJSON:      `{"id":"abc123","title":"A Video","duration":42.5}`,
		probedSeconds: "42.500000",
	}

	runner := &fakeRunner{handler: func(name string, args []string) (ToolResult, error) {
		switch name {
		case "yt-dlp":
			staging := filepath.Dir(args[len(args)-1])
			if err := os.WriteFile(filepath.Join(staging, "video.mp4"), []byte("media"), 0o644); err != nil {
				return ToolResult{ExitCode: 1}, err
			}
			return ToolResult{}, os.WriteFile(filepath.Join(staging, "video.info.json"), []byte(fx.infoJSON), 0o644)
		case "ffmpeg":
			return ToolResult{}, os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
		case "ffprobe":
			return ToolResult{Stdout: fx.probedSeconds + "\n"}, nil
		default:
			return ToolResult{ExitCode: 127}, fmt.Errorf("unknown tool %s", name)
		}
	}}

	fetcher := NewFetcher(cfg, runner, c, log)
	extractor := NewExtractor(cfg, runner, c, log)
	fx.assembler = NewAssembler(c)
	fx.pipe = NewPipeline(cfg, fetcher, extractor, transcriber, translator, fx.assembler, c, fx.repo, fx.redisRepo, log)
	return fx
}

func testJob() *models.CaptionJob {
	return &models.CaptionJob{
		JobID:      "job-1",
		VideoID:    "abc123",
		SourceURL:  "https://youtu.be/abc123",
		TargetLang: "es",
		Status:     models.JobStatusQueued,
	}
}

var testSegments = []models.TranscriptSegment{
	{Start: 0, End: 2, Text: "hello"},
	{Start: 2, End: 4, Text: "world"},
	{Start: 4, End: 6, Text: "again"},
}

func TestPipelineRunCompletes(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeTranscriber{segs: testSegments}, &fakeTranslator{})
	job := testJob()

	require.NoError(t, fx.pipe.Run(context.Background(), job))
	require.Equal(t, models.JobStatusCompleted, fx.redisRepo.lastStatus().status)
	require.Equal(t, models.StageDeliver, job.Stage)
	require.Equal(t, 1.0, job.Progress)

	video, err := fx.repo.GetVideoByID(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "A Video", video.Title)

	track, err := fx.repo.GetTrack(context.Background(), "abc123", "es")
	require.NoError(t, err)
	require.Equal(t, 3, track.SegmentCount)
	require.False(t, track.Partial)

	data, err := os.ReadFile(fx.assembler.TrackPath("abc123", "es"))
	require.NoError(t, err)
	require.Contains(t, string(data), "es:hello")
	require.Contains(t, string(data), "es:again")
}

func TestPipelineProbesMissingDuration(t *testing.T) {
	t.Parallel()

	// Metadata without a duration: the audio itself is probed so the
	// chunking decision never sees a zero.
	transcriber := &fakeTranscriber{segs: testSegments}
	fx := newPipelineFixture(t, transcriber, &fakeTranslator{})
	fx.infoJSON = `{"id":"abc123","title":"A Video"}`
	fx.probedSeconds = "912.250000"

	require.NoError(t, fx.pipe.Run(context.Background(), testJob()))
	require.Equal(t, 912.25, transcriber.duration)
	require.Equal(t, models.JobStatusCompleted, fx.redisRepo.lastStatus().status)
}

func TestPipelineRerunShortCircuits(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{segs: testSegments}
	translator := &fakeTranslator{}
	fx := newPipelineFixture(t, transcriber, translator)

	require.NoError(t, fx.pipe.Run(context.Background(), testJob()))
	require.NoError(t, fx.pipe.Run(context.Background(), testJob()))

	require.Equal(t, 1, transcriber.calls)
	require.Equal(t, 1, translator.calls)
	require.Equal(t, models.JobStatusCompleted, fx.redisRepo.lastStatus().status)
}

func TestPipelineResumeSkipsDoneStages(t *testing.T) {
	t.Parallel()

	transcriber := &fakeTranscriber{segs: testSegments}
	translator := &fakeTranslator{}
	fx := newPipelineFixture(t, transcriber, translator)

	require.NoError(t, fx.pipe.Run(context.Background(), testJob()))

	// Drop the assembled track to force a re-run; cached transcript and
	// translation artifacts keep the external services out of it.
	require.NoError(t, os.Remove(fx.assembler.TrackPath("abc123", "es")))
	fx.repo.mu.Lock()
	delete(fx.repo.tracks, "abc123:es")
	fx.repo.mu.Unlock()

	require.NoError(t, fx.pipe.Run(context.Background(), testJob()))
	require.Equal(t, 1, transcriber.calls)
	require.Equal(t, 1, translator.calls)
	require.True(t, fx.cache.Has(fx.assembler.TrackPath("abc123", "es")))
}

func TestPipelineDegradedTranslationIsPartial(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeTranscriber{segs: testSegments}, &fakeTranslator{degraded: true})
	job := testJob()

	require.NoError(t, fx.pipe.Run(context.Background(), job))
	last := fx.redisRepo.lastStatus()
	require.Equal(t, models.JobStatusPartial, last.status)
	require.NotEmpty(t, last.reason)

	track, err := fx.repo.GetTrack(context.Background(), "abc123", "es")
	require.NoError(t, err)
	require.True(t, track.Partial)
	require.Equal(t, 3, track.SegmentCount)

	// The degraded entry keeps the source text at its original timing.
	data, err := os.ReadFile(track.Path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
	require.Contains(t, string(data), "es:world")
}

func TestPipelineSegmentCountMismatchFails(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeTranscriber{segs: testSegments}, &fakeTranslator{drop: true})
	job := testJob()

	require.Error(t, fx.pipe.Run(context.Background(), job))
	last := fx.redisRepo.lastStatus()
	require.Equal(t, models.JobStatusFailed, last.status)
	require.Equal(t, "caption assembly failed", last.reason)
}

func TestPipelineHonorsCancellation(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t, &fakeTranscriber{segs: testSegments}, &fakeTranslator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fx.pipe.Run(ctx, testJob())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, models.JobStatusFailed, fx.redisRepo.lastStatus().status)
}
