package pipeline

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"lingocap/internal/cache"
	"lingocap/internal/errs"
	"lingocap/internal/models"
)

// Assembler serializes caption entries into a WebVTT track in the cache.
type Assembler struct {
	cache *cache.Cache
}

func NewAssembler(c *cache.Cache) *Assembler {
	return &Assembler{cache: c}
}

// TrackPath is where the assembled track for a (video, language) pair
// lives under the cache root.
func (a *Assembler) TrackPath(videoID, language string) string {
	return a.cache.Path(videoID, "tracks", fmt.Sprintf("video.%s.vtt", language))
}

// Assemble validates timing invariants, serializes the entries, and writes
// the track atomically.
func (a *Assembler) Assemble(entries []models.CaptionEntry, videoID, language string) (*models.CaptionTrack, error) {
	data, err := MarshalVTT(entries)
	if err != nil {
		return nil, err
	}
	path := a.TrackPath(videoID, language)
	if err := a.cache.WriteFile(path, data); err != nil {
		return nil, err
	}

	partial := false
	for _, e := range entries {
		if e.Degraded {
			partial = true
			break
		}
	}
	return &models.CaptionTrack{
		VideoID:      videoID,
		Language:     language,
		Path:         path,
		SegmentCount: len(entries),
		Partial:      partial,
		CreatedAt:    time.Now(),
		Entries:      entries,
	}, nil
}

// MarshalVTT renders entries as a WebVTT document. Timing violations
// (non-monotonic starts, negative times, end before start) indicate an
// upstream contract breach and are rejected.
func MarshalVTT(entries []models.CaptionEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n\n")

	prevStart := -1.0
	for i, e := range entries {
		switch {
		case e.Start < 0 || e.End < 0:
			return nil, &errs.AssemblyError{Reason: fmt.Sprintf("entry %d has negative time", i)}
		case e.End < e.Start:
			return nil, &errs.AssemblyError{Reason: fmt.Sprintf("entry %d ends before it starts", i)}
		case e.Start < prevStart:
			return nil, &errs.AssemblyError{Reason: fmt.Sprintf("entry %d start is not monotonic", i)}
		}
		prevStart = e.Start

		fmt.Fprintf(&buf, "%s --> %s\n%s\n\n", FormatVTTTime(e.Start), FormatVTTTime(e.End), e.Text)
	}
	return buf.Bytes(), nil
}

// FormatVTTTime renders seconds as hh:mm:ss.mmm.
func FormatVTTTime(t float64) string {
	millis := int(math.Floor(t*1000)) % 1000
	seconds := int(math.Floor(t)) % 60
	minutes := int(math.Floor(t/60)) % 60
	hours := int(math.Floor(t / 3600))
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
