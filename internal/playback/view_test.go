package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/internal/transcript/transcripttest"
)

func TestDerive_SortsChronologically(t *testing.T) {
	idx := transcript.NewIndex(transcripttest.Council())
	view := Derive(transcripttest.Highlight("h1", "S3-u4", "S1-u0", "S2-u1", "S1-u3"), idx)

	require.Len(t, view.Clips, 4)
	for i := 1; i < len(view.Clips); i++ {
		assert.LessOrEqual(t, view.Clips[i-1].StartTimestamp, view.Clips[i].StartTimestamp)
	}
	assert.Equal(t, []string{"S1-u0", "S1-u3", "S2-u1", "S3-u4"}, clipIDs(view))
}

func TestDerive_Stats(t *testing.T) {
	idx := transcript.NewIndex(transcripttest.Council())
	view := Derive(transcripttest.Highlight("h1", "S1-u0", "S1-u1", "S2-u0", "S3-u0"), idx)

	assert.InDelta(t, 8.0, view.Stats.Duration, 1e-9)
	assert.Equal(t, 4, view.Stats.UtteranceCount)
	assert.Equal(t, 3, view.Stats.SpeakerCount)

	assert.Equal(t, "Mayor Diaz", view.Clips[0].SpeakerName)
	assert.Equal(t, "Clerk", view.Clips[2].SpeakerName)
	assert.Equal(t, transcript.UnknownSpeaker, view.Clips[3].SpeakerName)
}

func TestDerive_SkipsUnresolvedAndDuplicates(t *testing.T) {
	idx := transcript.NewIndex(transcripttest.Council())
	view := Derive(transcripttest.Highlight("h1", "S2-u0", "gone", "S2-u0"), idx)

	assert.Equal(t, []string{"S2-u0"}, clipIDs(view))
	assert.Equal(t, 1, view.Stats.UtteranceCount)
	assert.InDelta(t, 2.0, view.Stats.Duration, 1e-9)
}

func TestDerive_Empty(t *testing.T) {
	idx := transcript.NewIndex(transcripttest.Council())

	for name, view := range map[string]View{
		"nil highlight": Derive(nil, idx),
		"nil index":     Derive(transcripttest.Highlight("h1", "S1-u0"), nil),
		"no references": Derive(transcripttest.Highlight("h1"), idx),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, view.Clips)
			assert.Empty(t, view.Clips)
			assert.Equal(t, Stats{}, view.Stats)
		})
	}
}

func clipIDs(v View) []string {
	ids := make([]string, 0, len(v.Clips))
	for _, c := range v.Clips {
		ids = append(ids, c.UtteranceID)
	}
	return ids
}

func TestClip_ContainsIsInclusive(t *testing.T) {
	c := Clip{StartTimestamp: 8, EndTimestamp: 10}
	assert.True(t, c.Contains(8))
	assert.True(t, c.Contains(9.5))
	assert.True(t, c.Contains(10))
	assert.False(t, c.Contains(7.99))
	assert.False(t, c.Contains(10.01))
}
