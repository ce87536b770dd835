package utils

import (
	"fmt"
	"regexp"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([\-\w]+)$`),
	regexp.MustCompile(`youtu\.be/([\-\w]+)`),
	regexp.MustCompile(`[?&]v=([\-\w]+)`),
	regexp.MustCompile(`/embed/([\-\w]+)`),
	regexp.MustCompile(`/shorts/([\-\w]+)`),
}

// ParseVideoID extracts the video identifier from a YouTube URL. A bare
// identifier is accepted as-is.
func ParseVideoID(url string) (string, error) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("no video id found in %q", url)
}

// WatchURL builds the canonical short URL for a video id.
func WatchURL(videoID string) string {
	return "https://youtu.be/" + videoID
}
