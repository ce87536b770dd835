package captions

import (
	"context"
	"time"

	"lingocap/internal/models"
)

// RedisRepository is the job queue and status store. Jobs survive a
// restart; status polling reads come through here.
type RedisRepository interface {
	EnqueueJob(ctx context.Context, key string, job *models.CaptionJob) error
	// DequeueJob blocks up to timeout for the next queued job. Returns
	// (nil, nil) when the timeout elapses with an empty queue.
	DequeueJob(ctx context.Context, key string, timeout time.Duration) (*models.CaptionJob, error)

	SaveJob(ctx context.Context, job *models.CaptionJob) error
	GetJob(ctx context.Context, jobID string) (*models.CaptionJob, error)
	UpdateStage(ctx context.Context, job *models.CaptionJob, stage models.PipelineStage, progress float64) error
	UpdateStatus(ctx context.Context, job *models.CaptionJob, status models.JobStatus, reason string) error

	// FindActiveJob resolves a (video, language) pair to its in-flight
	// job, if any.
	FindActiveJob(ctx context.Context, pairKey string) (*models.CaptionJob, error)

	// AcquireRunLock claims exclusive processing of a pair across worker
	// processes; duplicate queue entries are dropped by the loser.
	AcquireRunLock(ctx context.Context, pairKey string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, pairKey string) error
}
