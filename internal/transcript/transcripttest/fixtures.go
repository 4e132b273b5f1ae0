// Package transcripttest builds transcripts for tests.
package transcripttest

import (
	"fmt"

	"videothingy/council-highlights/models"
)

// Segment builds a segment with n back-to-back utterances of the given length,
// starting at start. Utterance ids are "<segID>-u<i>".
func Segment(segID string, tagID string, start float64, n int, length float64) models.SpeakerSegment {
	seg := models.SpeakerSegment{ID: segID, MeetingID: "meeting-1"}
	if tagID != "" {
		tag := tagID
		seg.SpeakerTagID = &tag
	}
	t := start
	for i := 0; i < n; i++ {
		seg.Utterances = append(seg.Utterances, models.Utterance{
			ID:               fmt.Sprintf("%s-u%d", segID, i),
			Text:             fmt.Sprintf("utterance %d of %s", i, segID),
			StartTimestamp:   t,
			EndTimestamp:     t + length,
			SpeakerSegmentID: segID,
		})
		t += length
	}
	if n > 0 {
		seg.StartTimestamp = seg.Utterances[0].StartTimestamp
		seg.EndTimestamp = seg.Utterances[n-1].EndTimestamp
	}
	return seg
}

// Council returns a three-segment transcript:
//
//	S1 (tag-mayor, linked to "Mayor Diaz"): 4 utterances, 0-8s
//	S2 (tag-clerk, label only):            3 utterances, 8-14s
//	S3 (no tag):                           5 utterances, 14-24s
func Council() *models.Transcript {
	person := "person-diaz"
	return &models.Transcript{
		MeetingID: "meeting-1",
		Segments: []models.SpeakerSegment{
			Segment("S1", "tag-mayor", 0, 4, 2),
			Segment("S2", "tag-clerk", 8, 3, 2),
			Segment("S3", "", 14, 5, 2),
		},
		SpeakerTags: []models.SpeakerTag{
			{ID: "tag-mayor", Label: "SPEAKER_00", PersonID: &person},
			{ID: "tag-clerk", Label: "Clerk"},
		},
		People: []models.Person{
			{ID: person, Name: "Mayor Diaz"},
		},
	}
}

// Highlight builds a highlight referencing the given utterance ids in the
// given (storage) order.
func Highlight(id string, utteranceIDs ...string) *models.Highlight {
	h := &models.Highlight{ID: id, Name: "Highlight " + id, MeetingID: "meeting-1"}
	for i, uid := range utteranceIDs {
		h.HighlightedUtterances = append(h.HighlightedUtterances, models.HighlightedUtterance{
			ID:          fmt.Sprintf("%s-hu%d", id, i),
			HighlightID: id,
			UtteranceID: uid,
		})
	}
	return h
}
