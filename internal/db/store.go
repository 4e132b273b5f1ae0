package db

import (
	"context"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/models"
)

// segmentRow is a speaker_segments row. Utterances live in their own table.
type segmentRow struct {
	ID             string  `json:"id"`
	MeetingID      string  `json:"meeting_id"`
	SpeakerTagID   *string `json:"speaker_tag_id"`
	StartTimestamp float64 `json:"start_timestamp"`
	EndTimestamp   float64 `json:"end_timestamp"`
}

// LoadTranscript assembles the transcript of a meeting. A meeting without
// segments is reported as not found.
func (s *Store) LoadTranscript(ctx context.Context, meetingID string) (*models.Transcript, error) {
	var segRows []segmentRow
	err := selectRows(ctx, s.db.From(speakerSegmentsTable).
		Select("*", "", false).
		Eq("meeting_id", meetingID).
		Order("start_timestamp", ascending()),
		speakerSegmentsTable, &segRows)
	if err != nil {
		return nil, err
	}
	if len(segRows) == 0 {
		return nil, notFound("transcript for meeting", meetingID)
	}

	segIDs := make([]string, 0, len(segRows))
	tagIDs := make([]string, 0)
	seenTag := make(map[string]bool)
	for _, r := range segRows {
		segIDs = append(segIDs, r.ID)
		if r.SpeakerTagID != nil && !seenTag[*r.SpeakerTagID] {
			seenTag[*r.SpeakerTagID] = true
			tagIDs = append(tagIDs, *r.SpeakerTagID)
		}
	}

	var utterances []models.Utterance
	err = selectRows(ctx, s.db.From(utterancesTable).
		Select("*", "", false).
		In("speaker_segment_id", segIDs).
		Order("start_timestamp", ascending()),
		utterancesTable, &utterances)
	if err != nil {
		return nil, err
	}
	bySegment := make(map[string][]models.Utterance, len(segRows))
	for _, u := range utterances {
		bySegment[u.SpeakerSegmentID] = append(bySegment[u.SpeakerSegmentID], u)
	}

	t := &models.Transcript{
		MeetingID:   meetingID,
		Segments:    make([]models.SpeakerSegment, 0, len(segRows)),
		SpeakerTags: []models.SpeakerTag{},
		People:      []models.Person{},
	}
	for _, r := range segRows {
		utts := bySegment[r.ID]
		if utts == nil {
			utts = []models.Utterance{}
		}
		t.Segments = append(t.Segments, models.SpeakerSegment{
			ID:             r.ID,
			MeetingID:      r.MeetingID,
			SpeakerTagID:   r.SpeakerTagID,
			StartTimestamp: r.StartTimestamp,
			EndTimestamp:   r.EndTimestamp,
			Utterances:     utts,
		})
	}

	if len(tagIDs) > 0 {
		if err := selectRows(ctx, s.db.From(speakerTagsTable).
			Select("*", "", false).
			In("id", tagIDs),
			speakerTagsTable, &t.SpeakerTags); err != nil {
			return nil, err
		}
	}

	personIDs := make([]string, 0)
	for _, tag := range t.SpeakerTags {
		if tag.PersonID != nil {
			personIDs = append(personIDs, *tag.PersonID)
		}
	}
	if len(personIDs) > 0 {
		if err := selectRows(ctx, s.db.From(peopleTable).
			Select("*", "", false).
			In("id", personIDs),
			peopleTable, &t.People); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"meeting_id": meetingID,
		"segments":   len(t.Segments),
		"utterances": len(utterances),
	}).Debug("Loaded transcript")
	return t, nil
}

// LoadHighlight returns a highlight with its utterance references.
func (s *Store) LoadHighlight(ctx context.Context, highlightID string) (*models.Highlight, error) {
	var rows []models.Highlight
	err := selectRows(ctx, s.db.From(highlightsTable).
		Select("*", "", false).
		Eq("id", highlightID),
		highlightsTable, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("highlight", highlightID)
	}
	h := rows[0]

	var refs []models.HighlightedUtterance
	err = selectRows(ctx, s.db.From(highlightedUtterancesTable).
		Select("*", "", false).
		Eq("highlight_id", highlightID),
		highlightedUtterancesTable, &refs)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []models.HighlightedUtterance{}
	}
	h.HighlightedUtterances = refs
	return &h, nil
}
