package models

import (
	"encoding/json"
	"time"
)

// Job statuses written by the render dispatcher.
const (
	JobStatusPending    = "PENDING"
	JobStatusDispatched = "DISPATCHED"
	JobStatusFailed     = "FAILED"
)

// JobTypeGenerateHighlight is the job type of a highlight render request.
const JobTypeGenerateHighlight = "GENERATE_HIGHLIGHT"

// ProcessingJob is a row of the processing_jobs table. Render requests are
// tracked here while the task service works on them.
type ProcessingJob struct {
	ID           string          `json:"id"`
	JobType      string          `json:"job_type"`
	EntityID     string          `json:"entity_id"`
	EntityType   string          `json:"entity_type"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"` // Nullable TEXT
	Metadata     json.RawMessage `json:"metadata,omitempty"`      // Nullable JSONB, the request payload
	Output       json.RawMessage `json:"output,omitempty"`        // Nullable JSONB
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}
