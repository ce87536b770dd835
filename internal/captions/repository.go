package captions

import (
	"context"

	"lingocap/internal/models"
	"lingocap/pkg/utils"
)

// Repository is the embedded catalog of fetched videos and assembled
// caption tracks.
type Repository interface {
	UpsertVideo(ctx context.Context, video *models.Video) error
	GetVideoByID(ctx context.Context, videoID string) (*models.Video, error)
	GetVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error)
	DeleteVideo(ctx context.Context, videoID string) error

	UpsertTrack(ctx context.Context, track *models.CaptionTrack) error
	GetTrack(ctx context.Context, videoID, language string) (*models.CaptionTrack, error)
	GetTrackLanguages(ctx context.Context, videoID string) ([]string, error)
}
