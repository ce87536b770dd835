package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"lingocap/internal/cache"
	"lingocap/internal/captions"
	"lingocap/internal/config"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
	"lingocap/pkg/utils"
)

type captionsUC struct {
	cfg       *config.Config
	repo      captions.Repository
	redisRepo captions.RedisRepository
	awsRepo   captions.AWSRepository  // nil when the S3 mirror is disabled
	words     captions.WordTranslator // nil when word lookup is disabled
	artifacts *cache.Cache
	requests  singleflight.Group
	logger    logger.Logger
}

func NewCaptionsUseCase(
	cfg *config.Config,
	repo captions.Repository,
	redisRepo captions.RedisRepository,
	awsRepo captions.AWSRepository,
	words captions.WordTranslator,
	artifacts *cache.Cache,
	log logger.Logger,
) captions.UseCase {
	return &captionsUC{
		cfg:       cfg,
		repo:      repo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		words:     words,
		artifacts: artifacts,
		logger:    log,
	}
}

func (u *captionsUC) RequestCaptions(ctx context.Context, input *models.CaptionRequest) (*models.CaptionJob, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("RequestCaptions - ValidateStruct error: %v", err)
		return nil, fmt.Errorf("invalid input: %v", err)
	}
	videoID, err := utils.ParseVideoID(input.URL)
	if err != nil {
		return nil, fmt.Errorf("no video found: %v", err)
	}

	pairKey := videoID + ":" + input.TargetLang
	v, err, _ := u.requests.Do(pairKey, func() (interface{}, error) {
		// The resolution is shared by every collapsed caller; it must not
		// die with whichever request happened to start it.
		return u.resolveJob(context.WithoutCancel(ctx), videoID, input)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.CaptionJob), nil
}

// resolveJob runs under singleflight: concurrent requests for the same
// (video, language) pair observe exactly one queue insertion.
func (u *captionsUC) resolveJob(ctx context.Context, videoID string, input *models.CaptionRequest) (*models.CaptionJob, error) {
	job := &models.CaptionJob{
		VideoID:    videoID,
		SourceURL:  utils.WatchURL(videoID),
		TargetLang: input.TargetLang,
		SourceLang: input.SourceLang,
	}

	// Terminal track already cached: report a completed pseudo-job.
	if track, trackErr := u.repo.GetTrack(ctx, videoID, input.TargetLang); trackErr == nil {
		if _, statErr := os.Stat(track.Path); statErr == nil {
			job.Stage = models.StageDeliver
			job.Status = models.JobStatusCompleted
			if track.Partial {
				job.Status = models.JobStatusPartial
			}
			job.Progress = 1.0
			return job, nil
		}
	}

	// A run is already in flight for this pair.
	if active, activeErr := u.redisRepo.FindActiveJob(ctx, job.PairKey()); activeErr == nil && active != nil {
		return active, nil
	}

	job.JobID = uuid.New().String()
	job.Stage = models.StageFetch
	job.Status = models.JobStatusQueued
	job.CreatedAt = time.Now()
	if err := u.redisRepo.SaveJob(ctx, job); err != nil {
		u.logger.Errorf("RequestCaptions - SaveJob error: %v", err)
		return nil, fmt.Errorf("failed to record the job: %v", err)
	}
	if err := u.redisRepo.EnqueueJob(ctx, u.cfg.Redis.JobQueueKey, job); err != nil {
		u.logger.Errorf("RequestCaptions - EnqueueJob error: %v", err)
		return nil, fmt.Errorf("failed to queue the job: %v", err)
	}
	u.logger.Infof("queued caption job %s for video %s (%s)", job.JobID, videoID, input.TargetLang)
	return job, nil
}

func (u *captionsUC) GetJob(ctx context.Context, jobID string) (*models.CaptionJob, error) {
	if jobID == "" {
		return nil, fmt.Errorf("invalid job id: cannot be empty")
	}
	job, err := u.redisRepo.GetJob(ctx, jobID)
	if err != nil {
		u.logger.Errorf("GetJob - GetJob error: %v", err)
		return nil, fmt.Errorf("failed to fetch job: %v", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

func (u *captionsUC) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	if videoID == "" {
		return nil, fmt.Errorf("invalid video id: cannot be empty")
	}
	video, err := u.repo.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("video not found")
		}
		u.logger.Errorf("GetVideo - GetVideoByID error: %v", err)
		return nil, fmt.Errorf("failed to fetch video: %v", err)
	}
	return video, nil
}

func (u *captionsUC) ListVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error) {
	if pagination == nil {
		pagination = &utils.Pagination{Page: 1, Size: 10}
	}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.Size < 1 || pagination.Size > 100 {
		pagination.Size = 10
	}
	videos, err := u.repo.GetVideos(ctx, pagination)
	if err != nil {
		u.logger.Errorf("ListVideos - GetVideos error: %v", err)
		return nil, fmt.Errorf("failed to fetch videos: %v", err)
	}
	return videos, nil
}

func (u *captionsUC) GetPlaybackInfo(ctx context.Context, videoID, language string) (*models.PlaybackInfo, error) {
	video, err := u.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	languages, err := u.repo.GetTrackLanguages(ctx, videoID)
	if err != nil {
		u.logger.Errorf("GetPlaybackInfo - GetTrackLanguages error: %v", err)
		languages = nil
	}

	info := &models.PlaybackInfo{
		VideoID:   video.VideoID,
		Title:     video.Title,
		Duration:  video.Duration,
		Language:  language,
		StreamURL: fmt.Sprintf("/api/v1/videos/%s/stream", video.VideoID),
		Languages: languages,
		Status:    models.JobStatusCompleted,
	}
	if video.ThumbnailPath != "" {
		info.ThumbnailURL = fmt.Sprintf("/api/v1/videos/%s/thumbnail", video.VideoID)
	}
	if language != "" {
		if _, err := u.GetTrack(ctx, videoID, language); err == nil {
			info.CaptionsURL = fmt.Sprintf("/api/v1/videos/%s/captions?lang=%s", video.VideoID, language)
		} else {
			info.Status = models.JobStatusProcessing
		}
	}
	return info, nil
}

func (u *captionsUC) GetTrack(ctx context.Context, videoID, language string) (*models.CaptionTrack, error) {
	if videoID == "" || language == "" {
		return nil, fmt.Errorf("video id and language are required")
	}
	track, err := u.repo.GetTrack(ctx, videoID, language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("caption track not found")
		}
		u.logger.Errorf("GetTrack - GetTrack error: %v", err)
		return nil, fmt.Errorf("failed to fetch caption track: %v", err)
	}
	if _, err := os.Stat(track.Path); err != nil {
		return nil, fmt.Errorf("caption track not found")
	}
	return track, nil
}

func (u *captionsUC) ShareTrack(ctx context.Context, videoID, language string) (string, error) {
	if u.awsRepo == nil {
		return "", fmt.Errorf("track sharing is not enabled")
	}
	track, err := u.GetTrack(ctx, videoID, language)
	if err != nil {
		return "", err
	}
	f, err := os.Open(track.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open caption track: %v", err)
	}
	defer f.Close() //nolint:errcheck

	key := fmt.Sprintf("tracks/%s/video.%s.vtt", videoID, language)
	if err := u.awsRepo.UploadTrack(ctx, key, f); err != nil {
		u.logger.Errorf("ShareTrack - UploadTrack error: %v", err)
		return "", fmt.Errorf("failed to mirror caption track: %v", err)
	}
	url, err := u.awsRepo.GetPresignedURL(ctx, key, 24*time.Hour)
	if err != nil {
		u.logger.Errorf("ShareTrack - GetPresignedURL error: %v", err)
		return "", fmt.Errorf("failed to presign caption track: %v", err)
	}
	return url, nil
}
