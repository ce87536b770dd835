package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"lingocap/internal/captions"
	"lingocap/internal/models"
)

const (
	jobDataField  = "job_data"
	statusField   = "status"
	pairKeyPrefix = "captions:pair:"
	lockKeyPrefix = "captions:lock:"
	jobTTL        = 24 * time.Hour
)

type captionsRedisRepo struct {
	redisClient *redis.Client
	jobPrefix   string
}

func NewCaptionsRedisRepo(redisClient *redis.Client, jobPrefix string) captions.RedisRepository {
	return &captionsRedisRepo{redisClient: redisClient, jobPrefix: jobPrefix}
}

func (r *captionsRedisRepo) jobKey(jobID string) string {
	return r.jobPrefix + jobID
}

func (r *captionsRedisRepo) EnqueueJob(ctx context.Context, key string, job *models.CaptionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return r.redisClient.LPush(ctx, key, data).Err()
}

func (r *captionsRedisRepo) DequeueJob(ctx context.Context, key string, timeout time.Duration) (*models.CaptionJob, error) {
	res, err := r.redisClient.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	job := &models.CaptionJob{}
	if err = json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("error unmarshalling job: %w", err)
	}
	return job, nil
}

func (r *captionsRedisRepo) SaveJob(ctx context.Context, job *models.CaptionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, r.jobKey(job.JobID), jobDataField, string(data), statusField, string(job.Status))
	pipe.Expire(ctx, r.jobKey(job.JobID), jobTTL)
	if job.Status.Terminal() {
		pipe.Del(ctx, pairKeyPrefix+job.PairKey())
	} else {
		pipe.Set(ctx, pairKeyPrefix+job.PairKey(), job.JobID, jobTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *captionsRedisRepo) GetJob(ctx context.Context, jobID string) (*models.CaptionJob, error) {
	data, err := r.redisClient.HGet(ctx, r.jobKey(jobID), jobDataField).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	job := &models.CaptionJob{}
	if err := json.Unmarshal([]byte(data), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	return job, nil
}

func (r *captionsRedisRepo) UpdateStage(ctx context.Context, job *models.CaptionJob, stage models.PipelineStage, progress float64) error {
	job.Stage = stage
	job.Progress = progress
	job.Status = models.JobStatusProcessing
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	return r.SaveJob(ctx, job)
}

func (r *captionsRedisRepo) UpdateStatus(ctx context.Context, job *models.CaptionJob, status models.JobStatus, reason string) error {
	job.Status = status
	job.Error = reason
	if status.Terminal() {
		job.FinishedAt = time.Now()
	}
	return r.SaveJob(ctx, job)
}

func (r *captionsRedisRepo) FindActiveJob(ctx context.Context, pairKey string) (*models.CaptionJob, error) {
	jobID, err := r.redisClient.Get(ctx, pairKeyPrefix+pairKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	job, err := r.GetJob(ctx, jobID)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, nil
	}
	return job, nil
}

func (r *captionsRedisRepo) AcquireRunLock(ctx context.Context, pairKey string, ttl time.Duration) (bool, error) {
	return r.redisClient.SetNX(ctx, lockKeyPrefix+pairKey, 1, ttl).Result()
}

func (r *captionsRedisRepo) ReleaseRunLock(ctx context.Context, pairKey string) error {
	return r.redisClient.Del(ctx, lockKeyPrefix+pairKey).Err()
}
