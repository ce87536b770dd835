// Package worker runs the pool that consumes caption jobs off the queue.
// Independent jobs run concurrently up to the pool size; one job's stages
// run strictly sequentially inside the pipeline.
package worker

import (
	"context"
	"sync"
	"time"

	"lingocap/internal/captions"
	"lingocap/internal/config"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
	"lingocap/pkg/utils"
)

// Runner is implemented by the caption pipeline.
type Runner interface {
	Run(ctx context.Context, job *models.CaptionJob) error
}

type Worker struct {
	cfg       *config.Config
	logger    logger.Logger
	redisRepo captions.RedisRepository
	pipeline  Runner
	wg        sync.WaitGroup
}

func NewWorker(cfg *config.Config, log logger.Logger, redisRepo captions.RedisRepository, pipeline Runner) *Worker {
	return &Worker{
		cfg:       cfg,
		logger:    log,
		redisRepo: redisRepo,
		pipeline:  pipeline,
	}
}

// Start launches the pool. Workers exit when ctx is cancelled; Wait blocks
// until they have drained.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Infof("starting %d caption workers", w.cfg.Worker.WorkerCount)
	for i := 0; i < w.cfg.Worker.WorkerCount; i++ {
		w.wg.Add(1)
		go w.worker(ctx, i)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) worker(ctx context.Context, id int) {
	defer w.wg.Done()
	pollInterval := time.Duration(w.cfg.Worker.PollIntervalSec) * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if canAcceptJob, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !canAcceptJob {
			w.logger.Infof("worker %d: CPU usage %.2f%% too high, waiting", id, usage)
			sleepCtx(ctx, pollInterval)
			continue
		}

		job, err := w.redisRepo.DequeueJob(ctx, w.cfg.Redis.JobQueueKey, pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("worker %d: dequeue error: %v", id, err)
			sleepCtx(ctx, pollInterval)
			continue
		}
		if job == nil {
			continue
		}
		w.process(ctx, id, job)
	}
}

func (w *Worker) process(ctx context.Context, id int, job *models.CaptionJob) {
	lockTTL := time.Duration(w.cfg.Redis.LockTTLMin) * time.Minute
	locked, err := w.redisRepo.AcquireRunLock(ctx, job.PairKey(), lockTTL)
	if err != nil {
		w.logger.Errorf("worker %d: lock error for job %s: %v", id, job.JobID, err)
		return
	}
	if !locked {
		// Another worker already owns this (video, language) pair.
		w.logger.Infof("worker %d: job %s already running elsewhere, skipping", id, job.JobID)
		return
	}
	defer func() {
		if err := w.redisRepo.ReleaseRunLock(context.Background(), job.PairKey()); err != nil {
			w.logger.Warnf("worker %d: unlock error for job %s: %v", id, job.JobID, err)
		}
	}()

	w.logger.Infof("worker %d: processing job %s (video %s, lang %s)", id, job.JobID, job.VideoID, job.TargetLang)
	if err := w.pipeline.Run(ctx, job); err != nil {
		w.logger.Errorf("worker %d: job %s failed: %v", id, job.JobID, err)
		return
	}
	w.logger.Infof("worker %d: job %s completed", id, job.JobID)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
