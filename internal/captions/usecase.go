package captions

import (
	"context"

	"lingocap/internal/models"
	"lingocap/pkg/utils"
)

// UseCase is the delivery-facing contract for requesting and serving
// translated caption tracks.
type UseCase interface {
	// RequestCaptions returns the job serving a (video, language) pair,
	// enqueueing a new pipeline run only when no terminal track and no
	// in-flight job exist. Concurrent identical requests collapse onto
	// one job.
	RequestCaptions(ctx context.Context, input *models.CaptionRequest) (*models.CaptionJob, error)

	GetJob(ctx context.Context, jobID string) (*models.CaptionJob, error)
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	ListVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error)
	GetPlaybackInfo(ctx context.Context, videoID, language string) (*models.PlaybackInfo, error)
	GetTrack(ctx context.Context, videoID, language string) (*models.CaptionTrack, error)

	// GetWordDictionary returns per-word translations of a video's
	// transcript for learner word lookup on the player page. Dictionaries
	// are cached per (video, source, target) triple.
	GetWordDictionary(ctx context.Context, videoID, sourceLang, targetLang string) (map[string]string, error)

	// ShareTrack mirrors a terminal track to the configured S3 bucket and
	// returns a presigned link. Errors when the mirror is disabled.
	ShareTrack(ctx context.Context, videoID, language string) (string, error)
}

// WordTranslator produces per-word translations. Implemented by the
// translation client.
type WordTranslator interface {
	TranslateWords(ctx context.Context, words []string, sourceLang, targetLang string) (map[string]string, error)
}
