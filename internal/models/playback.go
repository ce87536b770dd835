package models

// PlaybackInfo is everything the player page needs to render a video with
// its caption track.
type PlaybackInfo struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Duration     float64   `json:"duration"`
	Language     string    `json:"language,omitempty"`
	StreamURL    string    `json:"stream_url"`
	CaptionsURL  string    `json:"captions_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Languages    []string  `json:"languages"`
	Status       JobStatus `json:"status"`
}
