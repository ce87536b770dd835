package pipeline

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"lingocap/internal/cache"
	"lingocap/internal/errs"
	"lingocap/internal/models"
)

func TestMarshalVTT(t *testing.T) {
	t.Parallel()

	entries := []models.CaptionEntry{
		{Start: 0, End: 2.5, Text: "Hola"},
		{Start: 2.5, End: 5, Text: "¿Cómo estás?"},
		{Start: 3661.25, End: 3662, Text: "Adiós"},
	}
	data, err := MarshalVTT(entries)
	require.NoError(t, err)

	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:02.500\nHola\n\n" +
		"00:00:02.500 --> 00:00:05.000\n¿Cómo estás?\n\n" +
		"01:01:01.250 --> 01:01:02.000\nAdiós\n\n"
	require.Equal(t, want, string(data))
}

func TestMarshalVTTEmpty(t *testing.T) {
	t.Parallel()

	data, err := MarshalVTT(nil)
	require.NoError(t, err)
	require.Equal(t, "WEBVTT\n\n", string(data))
}

func TestMarshalVTTRejectsBadTiming(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		entries []models.CaptionEntry
	}{
		{"negative start", []models.CaptionEntry{{Start: -1, End: 2, Text: "x"}}},
		{"end before start", []models.CaptionEntry{{Start: 5, End: 4, Text: "x"}}},
		{"non-monotonic", []models.CaptionEntry{
			{Start: 5, End: 6, Text: "x"},
			{Start: 4, End: 7, Text: "y"},
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := MarshalVTT(tc.entries)
			var asmErr *errs.AssemblyError
			require.ErrorAs(t, err, &asmErr)
		})
	}
}

func TestFormatVTTTime(t *testing.T) {
	t.Parallel()

	require.Equal(t, "00:00:00.000", FormatVTTTime(0))
	require.Equal(t, "00:00:01.500", FormatVTTTime(1.5))
	require.Equal(t, "00:01:00.000", FormatVTTTime(60))
	require.Equal(t, "01:00:00.250", FormatVTTTime(3600.25))
	require.Equal(t, "10:17:36.125", FormatVTTTime(37056.125))
}

func TestAssembleWritesTrack(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	a := NewAssembler(c)

	entries := []models.CaptionEntry{
		{Start: 0, End: 1, Text: "uno"},
		{Start: 1, End: 2, Text: "two", Degraded: true},
	}
	track, err := a.Assemble(entries, "vid1", "es")
	require.NoError(t, err)
	require.Equal(t, "vid1", track.VideoID)
	require.Equal(t, "es", track.Language)
	require.Equal(t, 2, track.SegmentCount)
	require.True(t, track.Partial)
	require.Equal(t, a.TrackPath("vid1", "es"), track.Path)

	data, err := os.ReadFile(track.Path)
	require.NoError(t, err)
	require.Contains(t, string(data), "WEBVTT")
	require.Contains(t, string(data), "uno")
}

func TestAssembleCompleteTrackNotPartial(t *testing.T) {
	t.Parallel()

	c, err := cache.New(t.TempDir(), 0, testLogger())
	require.NoError(t, err)
	a := NewAssembler(c)

	track, err := a.Assemble([]models.CaptionEntry{{Start: 0, End: 1, Text: "uno"}}, "vid1", "es")
	require.NoError(t, err)
	require.False(t, track.Partial)
}
