package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/internal/apperrors"
	"videothingy/council-highlights/models"
)

// ExtractSpeakerSegment splits segment segmentID into three: the utterances
// before startUtteranceID stay in place, [startUtteranceID, endUtteranceID]
// move to a new segment and the remainder moves to a second new segment.
// Both new segments keep the original speaker tag.
//
// The boundary is checked again against the stored rows since the caller's
// snapshot may be stale. PostgREST offers no transaction across these
// requests; a failure part way leaves the earlier writes in place.
func (s *Store) ExtractSpeakerSegment(ctx context.Context, segmentID, startUtteranceID, endUtteranceID string) error {
	var segRows []segmentRow
	if err := selectRows(ctx, s.db.From(speakerSegmentsTable).
		Select("*", "", false).
		Eq("id", segmentID),
		speakerSegmentsTable, &segRows); err != nil {
		return err
	}
	if len(segRows) == 0 {
		return notFound("speaker segment", segmentID)
	}
	orig := segRows[0]

	var utts []models.Utterance
	if err := selectRows(ctx, s.db.From(utterancesTable).
		Select("*", "", false).
		Eq("speaker_segment_id", segmentID).
		Order("start_timestamp", ascending()),
		utterancesTable, &utts); err != nil {
		return err
	}

	start, end := -1, -1
	for i, u := range utts {
		if u.ID == startUtteranceID {
			start = i
		}
		if u.ID == endUtteranceID {
			end = i
		}
	}
	if start < 0 || end < 0 {
		return fmt.Errorf("utterances %s..%s are not in segment %s: %w",
			startUtteranceID, endUtteranceID, segmentID, apperrors.ErrConflict)
	}
	if start > end {
		start, end = end, start
	}
	n := len(utts)
	if start == 0 && end == n-1 {
		return fmt.Errorf("cannot extract entire segment %s: %w", segmentID, apperrors.ErrValidation)
	}
	if start == 0 || end == n-1 {
		return fmt.Errorf("cannot extract from the edge of segment %s: %w", segmentID, apperrors.ErrValidation)
	}

	middle := segmentRow{
		ID:             s.newID(),
		MeetingID:      orig.MeetingID,
		SpeakerTagID:   orig.SpeakerTagID,
		StartTimestamp: utts[start].StartTimestamp,
		EndTimestamp:   utts[end].EndTimestamp,
	}
	after := segmentRow{
		ID:             s.newID(),
		MeetingID:      orig.MeetingID,
		SpeakerTagID:   orig.SpeakerTagID,
		StartTimestamp: utts[end+1].StartTimestamp,
		EndTimestamp:   utts[n-1].EndTimestamp,
	}

	log := s.logger.WithFields(logrus.Fields{
		"segment_id":        segmentID,
		"middle_segment_id": middle.ID,
		"after_segment_id":  after.ID,
	})

	if err := s.execute(ctx, s.db.From(speakerSegmentsTable).
		Insert([]segmentRow{middle, after}, false, "", "representation", ""),
		speakerSegmentsTable); err != nil {
		return err
	}

	if err := s.repoint(ctx, utts[start:end+1], middle.ID); err != nil {
		log.WithError(err).Error("Failed to move extracted utterances")
		return err
	}
	if err := s.repoint(ctx, utts[end+1:], after.ID); err != nil {
		log.WithError(err).Error("Failed to move trailing utterances")
		return err
	}

	shrink := map[string]interface{}{
		"end_timestamp": utts[start-1].EndTimestamp,
	}
	if err := s.execute(ctx, s.db.From(speakerSegmentsTable).
		Update(shrink, "", "").
		Eq("id", segmentID),
		speakerSegmentsTable); err != nil {
		log.WithError(err).Error("Failed to shrink original segment")
		return err
	}

	log.WithField("extracted", end-start+1).Info("Split speaker segment")
	return nil
}

func (s *Store) repoint(ctx context.Context, utts []models.Utterance, segmentID string) error {
	ids := make([]string, 0, len(utts))
	for _, u := range utts {
		ids = append(ids, u.ID)
	}
	return s.execute(ctx, s.db.From(utterancesTable).
		Update(map[string]interface{}{"speaker_segment_id": segmentID}, "", "").
		In("id", ids),
		utterancesTable)
}
