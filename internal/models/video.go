package models

import "time"

// Video is one catalog row for a fetched video.
type Video struct {
	VideoID       string    `json:"video_id" db:"video_id" validate:"required"`
	SourceURL     string    `json:"source_url" db:"source_url" validate:"required,url"`
	Title         string    `json:"title" db:"title" validate:"omitempty,lte=512"`
	Duration      float64   `json:"duration" db:"duration"`
	MediaPath     string    `json:"-" db:"media_path"`
	ThumbnailPath string    `json:"-" db:"thumbnail_path"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type VideoList struct {
	Videos     []*Video `json:"videos"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	HasMore    bool     `json:"has_more"`
}

// VideoInfo is the metadata the downloader tool writes alongside the media.
type VideoInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}
