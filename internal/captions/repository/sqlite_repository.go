package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"lingocap/internal/captions"
	"lingocap/internal/models"
	"lingocap/pkg/utils"
)

type captionsRepo struct {
	db *sqlx.DB
}

// NewCaptionsRepo creates the sqlite-backed catalog, creating the schema
// on first use.
func NewCaptionsRepo(db *sqlx.DB) (captions.Repository, error) {
	for _, q := range []string{createVideosTable, createTracksTable} {
		if _, err := db.Exec(q); err != nil {
			return nil, errors.Wrap(err, "captionsRepo.Schema")
		}
	}
	return &captionsRepo{db: db}, nil
}

func (r *captionsRepo) UpsertVideo(ctx context.Context, video *models.Video) error {
	now := time.Now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, upsertVideoQuery, video); err != nil {
		return errors.Wrap(err, "captionsRepo.UpsertVideo")
	}
	return nil
}

func (r *captionsRepo) GetVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	video := &models.Video{}
	if err := r.db.GetContext(ctx, video, getVideoByIDQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "captionsRepo.GetVideoByID")
	}
	return video, nil
}

func (r *captionsRepo) GetVideos(ctx context.Context, pagination *utils.Pagination) (*models.VideoList, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, getTotalVideosQuery); err != nil {
		return nil, errors.Wrap(err, "captionsRepo.GetVideos.Count")
	}

	videos := make([]*models.Video, 0, pagination.GetLimit())
	if err := r.db.SelectContext(ctx, &videos, getVideosQuery, pagination.GetLimit(), pagination.GetOffset()); err != nil {
		return nil, errors.Wrap(err, "captionsRepo.GetVideos")
	}
	return &models.VideoList{
		Videos:     videos,
		TotalCount: totalCount,
		Page:       pagination.Page,
		PageSize:   pagination.Size,
		HasMore:    pagination.GetOffset()+len(videos) < totalCount,
	}, nil
}

func (r *captionsRepo) DeleteVideo(ctx context.Context, videoID string) error {
	if _, err := r.db.ExecContext(ctx, deleteVideoQuery, videoID); err != nil {
		return errors.Wrap(err, "captionsRepo.DeleteVideo")
	}
	return nil
}

func (r *captionsRepo) UpsertTrack(ctx context.Context, track *models.CaptionTrack) error {
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}
	if _, err := r.db.NamedExecContext(ctx, upsertTrackQuery, track); err != nil {
		return errors.Wrap(err, "captionsRepo.UpsertTrack")
	}
	return nil
}

func (r *captionsRepo) GetTrack(ctx context.Context, videoID, language string) (*models.CaptionTrack, error) {
	track := &models.CaptionTrack{}
	if err := r.db.GetContext(ctx, track, getTrackQuery, videoID, language); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(sql.ErrNoRows, "captionsRepo.GetTrack")
		}
		return nil, errors.Wrap(err, "captionsRepo.GetTrack")
	}
	return track, nil
}

func (r *captionsRepo) GetTrackLanguages(ctx context.Context, videoID string) ([]string, error) {
	languages := make([]string, 0, 4)
	if err := r.db.SelectContext(ctx, &languages, getTrackLanguagesQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "captionsRepo.GetTrackLanguages")
	}
	return languages, nil
}
