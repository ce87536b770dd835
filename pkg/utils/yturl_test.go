package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVideoID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
		want string
	}{
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url extra params", "https://www.youtube.com/watch?t=10&v=dQw4w9WgXcQ&list=PL1", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"id with dash and underscore", "https://youtu.be/a-b_c123", "a-b_c123"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseVideoID(tc.url)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseVideoIDRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseVideoID("https://example.com/watch")
	require.Error(t, err)
}

func TestWatchURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://youtu.be/abc123", WatchURL("abc123"))
}
