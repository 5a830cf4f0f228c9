package formats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmehra/streamfetch/internal/domain"
	"github.com/arjunmehra/streamfetch/internal/formats"
)

func TestClassifyVideo_MuxedLabel(t *testing.T) {
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "137", Ext: "mp4", Height: 1080, FPS: 30, TBR: 2500, ACodec: "aac", VCodec: "avc1"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "1080p - (mp4) - 30fps - 2500kbps - [Video+Audio]", out[0].Label)
	assert.Equal(t, "1080p", out[0].Resolution)
}

func TestClassifyVideo_VideoOnlyLabel(t *testing.T) {
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "248", Ext: "webm", Height: 720, VCodec: "vp9", ACodec: "none"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "720p - (webm) - [Video Only]", out[0].Label)
}

func TestClassifyVideo_UnknownResolutionSortsLast(t *testing.T) {
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "a", Ext: "mp4", ACodec: "aac"}, // muxed container, no dimensions
		{FormatID: "b", Ext: "mp4", Height: 480, VCodec: "avc1", ACodec: "none"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
	assert.Contains(t, out[1].Label, "Unknown Resolution")
	assert.Equal(t, 0, out[1].Height)
}

func TestClassifyVideo_HeightFromResolutionString(t *testing.T) {
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "hls-1", Ext: "ts", Resolution: "1920x1080", ACodec: "mp4a"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, 1080, out[0].Height)
	assert.Equal(t, "1080p", out[0].Resolution)
}

func TestClassifyVideo_DedupesByID_FirstWins(t *testing.T) {
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "137", Ext: "mp4", Height: 1080, VCodec: "avc1", TBR: 2500},
		{FormatID: "137", Ext: "mp4", Height: 1080, VCodec: "avc1", TBR: 9999},
	})

	require.Len(t, out, 1)
	assert.Equal(t, 2500.0, out[0].TBR)
}

func TestClassifyVideo_SortedByHeightThenBitrate(t *testing.T) {
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "a", Ext: "mp4", Height: 720, VCodec: "avc1", TBR: 1200},
		{FormatID: "b", Ext: "mp4", Height: 1080, VCodec: "avc1", TBR: 2500},
		{FormatID: "c", Ext: "mp4", Height: 1080, VCodec: "avc1", TBR: 4000},
		{FormatID: "d", Ext: "mp4", Height: 360, VCodec: "avc1", TBR: 600},
	})

	require.Len(t, out, 4)
	ids := []string{out[0].ID, out[1].ID, out[2].ID, out[3].ID}
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids)
}

func TestClassifyVideo_SkipsCodeclessAudiolessVariant(t *testing.T) {
	// No codecs, no dimensions: never video, even in a video container.
	out := formats.ClassifyVideo([]domain.StreamVariant{
		{FormatID: "x", Ext: "mp4"},
	})
	assert.Empty(t, out)
}

func TestClassifyAudio_ExcludesVideoVariants(t *testing.T) {
	out := formats.ClassifyAudio([]domain.StreamVariant{
		{FormatID: "muxed", Ext: "mp4", ACodec: "aac", VCodec: "avc1"},
		{FormatID: "audio", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 128, Language: "hin"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "audio", out[0].ID)
	assert.Equal(t, "Hindi (128kbps - m4a)", out[0].Label)
}

func TestClassifyAudio_UnknownLanguage(t *testing.T) {
	out := formats.ClassifyAudio([]domain.StreamVariant{
		{FormatID: "a1", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 64},
		{FormatID: "a2", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 96, Language: "xyz"},
	})

	require.Len(t, out, 2)
	for _, o := range out {
		assert.Equal(t, "Unknown", o.Language)
	}
	// Same language, higher bitrate first.
	assert.Equal(t, "a2", out[0].ID)
}

func TestClassifyAudio_NoteAppended(t *testing.T) {
	out := formats.ClassifyAudio([]domain.StreamVariant{
		{FormatID: "a1", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 128, Language: "eng", FormatNote: "DRC"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "English (128kbps - m4a) [DRC]", out[0].Label)
}

func TestClassifyAudio_ZeroBitrateOmitted(t *testing.T) {
	out := formats.ClassifyAudio([]domain.StreamVariant{
		{FormatID: "a1", Ext: "m4a", ACodec: "mp4a", VCodec: "none", Language: "tam"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "Tamil (m4a)", out[0].Label)
}

func TestClassifyAudio_SortedByLanguageThenBitrate(t *testing.T) {
	out := formats.ClassifyAudio([]domain.StreamVariant{
		{FormatID: "t", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 128, Language: "tam"},
		{FormatID: "h2", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 64, Language: "hin"},
		{FormatID: "h1", Ext: "m4a", ACodec: "mp4a", VCodec: "none", ABR: 128, Language: "hin"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, []string{"h1", "h2", "t"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestClassifyVideo_NoDuplicateIDs(t *testing.T) {
	variants := []domain.StreamVariant{
		{FormatID: "1", Ext: "mp4", Height: 1080, VCodec: "avc1"},
		{FormatID: "2", Ext: "mp4", Height: 720, VCodec: "avc1"},
		{FormatID: "1", Ext: "webm", Height: 1080, VCodec: "vp9"},
		{FormatID: "3", Ext: "ts", Resolution: "640x360", ACodec: "mp4a"},
		{FormatID: "2", Ext: "mp4", Height: 720, VCodec: "avc1", TBR: 999},
	}
	out := formats.ClassifyVideo(variants)

	seen := make(map[string]bool)
	for _, o := range out {
		assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
	}
}
