package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/models"
)

// CreateJobRecord inserts a PENDING job row for entityID with payload as its
// metadata and returns the generated job id.
func (s *Store) CreateJobRecord(ctx context.Context, jobType, entityID string, payload interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal input payload: %w", err)
	}

	now := s.now()
	record := models.ProcessingJob{
		ID:         s.newID(),
		JobType:    jobType,
		EntityID:   entityID,
		EntityType: "highlight",
		Status:     models.JobStatusPending,
		Metadata:   payloadBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var results []models.ProcessingJob
	// return=representation makes PostgREST echo the inserted row.
	_, err = s.db.From(processingJobsTable).
		Insert(record, false, "", "representation", "").
		ExecuteTo(&results)
	if err != nil {
		return "", fmt.Errorf("failed to insert job record: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no record returned after insert, job_id: %s", record.ID)
	}

	s.logger.WithFields(logrus.Fields{"job_id": record.ID, "job_type": jobType}).Info("Created job record")
	return record.ID, nil
}

// UpdateJobStatus sets the status of a job row, plus its output and error
// message when given. FAILED and DISPATCHED rows also get completed_at and
// started_at respectively.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID, status string, output interface{}, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.now()
	updateData := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case models.JobStatusDispatched:
		updateData["started_at"] = now
	case models.JobStatusFailed:
		updateData["completed_at"] = now
	}
	if output != nil {
		outputBytes, err := json.Marshal(output)
		if err != nil {
			return fmt.Errorf("failed to marshal output details: %w", err)
		}
		updateData["output"] = json.RawMessage(outputBytes)
	}
	if errorMessage != "" {
		updateData["error_message"] = errorMessage
	}

	var results []models.ProcessingJob
	_, err := s.db.From(processingJobsTable).
		Update(updateData, "representation", "").
		Eq("id", jobID).
		ExecuteTo(&results)
	if err != nil {
		return fmt.Errorf("failed to update job record %s: %w", jobID, err)
	}
	if len(results) == 0 {
		return notFound("job", jobID)
	}

	s.logger.WithFields(logrus.Fields{"job_id": jobID, "status": status}).Info("Updated job record")
	return nil
}

// GetJob returns a job row by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	var rows []models.ProcessingJob
	if err := selectRows(ctx, s.db.From(processingJobsTable).
		Select("*", "", false).
		Eq("id", jobID),
		processingJobsTable, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("job", jobID)
	}
	return &rows[0], nil
}
