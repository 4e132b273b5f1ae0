package models

import (
	"time"
)

// Highlight is a named subset of a meeting's utterances, optionally rendered
// into a video clip by the task service.
type Highlight struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	MeetingID             string                 `json:"meeting_id"`
	SubjectID             *string                `json:"subject_id,omitempty"` // Nullable foreign key
	VideoURL              *string                `json:"video_url,omitempty"`  // Set once rendered
	HighlightedUtterances []HighlightedUtterance `json:"highlighted_utterances"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// HighlightedUtterance links one utterance to a highlight. Storage order is
// not meaningful.
type HighlightedUtterance struct {
	ID          string `json:"id"`
	HighlightID string `json:"highlight_id"`
	UtteranceID string `json:"utterance_id"`
}

// UtteranceIDs returns the referenced utterance ids in storage order.
func (h *Highlight) UtteranceIDs() []string {
	ids := make([]string, 0, len(h.HighlightedUtterances))
	for _, hu := range h.HighlightedUtterances {
		ids = append(ids, hu.UtteranceID)
	}
	return ids
}
