package models

import "time"

// TranscriptSegment is one timed piece of source-language speech. Segments
// for a video are ordered by start time and never overlap.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// CaptionEntry is a TranscriptSegment after translation. Timing is copied
// from the segment untouched; Degraded marks entries that kept the source
// text because translation failed.
type CaptionEntry struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Degraded bool    `json:"degraded,omitempty"`
}

// CaptionTrack is the assembled subtitle track for one (video, language)
// pair. Immutable once written.
type CaptionTrack struct {
	VideoID      string         `json:"video_id" db:"video_id"`
	Language     string         `json:"language" db:"language"`
	Path         string         `json:"-" db:"path"`
	SegmentCount int            `json:"segment_count" db:"segment_count"`
	Partial      bool           `json:"partial" db:"partial"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	Entries      []CaptionEntry `json:"entries,omitempty" db:"-"`
}
