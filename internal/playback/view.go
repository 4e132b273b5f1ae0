// Package playback derives the chronological clip list of a highlight and
// drives clip-to-clip navigation of a video player.
package playback

import (
	"sort"

	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/models"
)

// Clip is one highlighted utterance, denormalized for display.
type Clip struct {
	UtteranceID      string  `json:"utterance_id"`
	Text             string  `json:"text"`
	StartTimestamp   float64 `json:"start_timestamp"`
	EndTimestamp     float64 `json:"end_timestamp"`
	SpeakerSegmentID string  `json:"speaker_segment_id"`
	SpeakerName      string  `json:"speaker_name"`
}

// Contains reports whether t falls inside the clip, both ends inclusive.
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTimestamp && t <= c.EndTimestamp
}

// Stats aggregates a highlight's clips.
type Stats struct {
	Duration       float64 `json:"duration"`
	UtteranceCount int     `json:"utterance_count"`
	SpeakerCount   int     `json:"speaker_count"`
}

// View is the derived, chronologically sorted projection of a highlight.
type View struct {
	Clips []Clip `json:"clips"`
	Stats Stats  `json:"stats"`
}

// Derive resolves every utterance reference of h against idx, sorts the
// result by start time and computes the aggregate statistics. References that
// do not resolve are skipped.
func Derive(h *models.Highlight, idx *transcript.Index) View {
	view := View{Clips: []Clip{}}
	if h == nil || idx == nil {
		return view
	}

	seen := make(map[string]struct{}, len(h.HighlightedUtterances))
	for _, ref := range h.HighlightedUtterances {
		if _, dup := seen[ref.UtteranceID]; dup {
			continue
		}
		u, ok := idx.Utterance(ref.UtteranceID)
		if !ok {
			continue
		}
		seen[ref.UtteranceID] = struct{}{}
		view.Stats.Duration += u.Duration()
		view.Clips = append(view.Clips, Clip{
			UtteranceID:      u.ID,
			Text:             u.Text,
			StartTimestamp:   u.StartTimestamp,
			EndTimestamp:     u.EndTimestamp,
			SpeakerSegmentID: u.SpeakerSegmentID,
			SpeakerName:      idx.SpeakerName(u.SpeakerSegmentID),
		})
	}
	sort.SliceStable(view.Clips, func(i, j int) bool {
		return view.Clips[i].StartTimestamp < view.Clips[j].StartTimestamp
	})

	speakers := make(map[string]struct{})
	for _, c := range view.Clips {
		speakers[c.SpeakerName] = struct{}{}
	}
	view.Stats.UtteranceCount = len(view.Clips)
	view.Stats.SpeakerCount = len(speakers)
	return view
}
