// Package transcript flattens and indexes meeting transcripts for the
// selection and playback engines.
package transcript

import (
	"sort"

	"videothingy/council-highlights/models"
)

// Flatten returns every utterance of t in chronological order. Ties on the
// start timestamp keep their original transcript order. Each returned
// utterance carries the id of the segment that contains it.
func Flatten(t *models.Transcript) []models.Utterance {
	if t == nil {
		return nil
	}
	flat := make([]models.Utterance, 0, t.UtteranceCount())
	for _, seg := range t.Segments {
		for _, u := range seg.Utterances {
			u.SpeakerSegmentID = seg.ID
			flat = append(flat, u)
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].StartTimestamp < flat[j].StartTimestamp
	})
	return flat
}
