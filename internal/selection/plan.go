package selection

import (
	"fmt"

	"videothingy/council-highlights/internal/apperrors"
	"videothingy/council-highlights/internal/transcript"
)

// ValidationError is a user-facing reason an extraction was refused.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Unwrap makes every ValidationError match apperrors.ErrValidation.
func (e *ValidationError) Unwrap() error { return apperrors.ErrValidation }

var (
	ErrEmptySelection   = &ValidationError{Reason: "nothing is selected"}
	ErrMultipleSegments = &ValidationError{Reason: "selection spans multiple segments"}
	ErrEntireSegment    = &ValidationError{Reason: "cannot extract entire segment"}
	ErrSegmentEdge      = &ValidationError{Reason: "cannot extract from the very start or very end of a segment"}
)

// Plan is a validated extraction: the inclusive span
// [SegmentStartIndex, SegmentEndIndex] of segment SegmentID becomes a new
// segment, with utterances left over on both sides.
type Plan struct {
	SegmentID         string `json:"segment_id"`
	StartUtteranceID  string `json:"start_utterance_id"`
	EndUtteranceID    string `json:"end_utterance_id"`
	SegmentStartIndex int    `json:"segment_start_index"`
	SegmentEndIndex   int    `json:"segment_end_index"`
	TotalUtterances   int    `json:"total_utterances"`
}

// ExtractionCount is the number of utterances moved into the new segment.
// Unselected utterances between the boundaries are included.
func (p Plan) ExtractionCount() int {
	return p.SegmentEndIndex - p.SegmentStartIndex + 1
}

// PlanExtraction validates that ids can be extracted out of their segment.
// Unknown ids yield an error wrapping apperrors.ErrNotFound; rule violations
// yield one of the ValidationError values.
func PlanExtraction(idx *transcript.Index, ids []string) (Plan, error) {
	if len(ids) == 0 {
		return Plan{}, ErrEmptySelection
	}

	var (
		segmentID        string
		startID, endID   string
		startPos, endPos int
	)
	for i, id := range ids {
		u, ok := idx.Utterance(id)
		if !ok {
			return Plan{}, fmt.Errorf("selected utterance %s: %w", id, apperrors.ErrNotFound)
		}
		pos, _ := idx.Position(id)
		if i == 0 {
			segmentID = u.SpeakerSegmentID
			startID, endID = id, id
			startPos, endPos = pos, pos
			continue
		}
		if u.SpeakerSegmentID != segmentID {
			return Plan{}, ErrMultipleSegments
		}
		if pos < startPos {
			startID, startPos = id, pos
		}
		if pos > endPos {
			endID, endPos = id, pos
		}
	}

	seg, ok := idx.GetSpeakerSegmentByID(segmentID)
	if !ok {
		return Plan{}, fmt.Errorf("speaker segment %s: %w", segmentID, apperrors.ErrNotFound)
	}
	s, _ := idx.PositionInSegment(startID)
	e, _ := idx.PositionInSegment(endID)
	if s > e {
		s, e = e, s
		startID, endID = endID, startID
	}

	plan := Plan{
		SegmentID:         segmentID,
		StartUtteranceID:  startID,
		EndUtteranceID:    endID,
		SegmentStartIndex: s,
		SegmentEndIndex:   e,
		TotalUtterances:   len(seg.Utterances),
	}
	if plan.ExtractionCount() == plan.TotalUtterances {
		return Plan{}, ErrEntireSegment
	}
	if s == 0 || e == plan.TotalUtterances-1 {
		return Plan{}, ErrSegmentEdge
	}
	return plan, nil
}
