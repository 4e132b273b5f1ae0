package tasks

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/internal/worker"
	"videothingy/council-highlights/models"
)

// HighlightGenerator sends render requests.
type HighlightGenerator interface {
	GenerateHighlight(ctx context.Context, req RenderRequest) (*DispatchResult, error)
}

// JobStore records render jobs.
type JobStore interface {
	CreateJobRecord(ctx context.Context, jobType, entityID string, payload interface{}) (string, error)
	UpdateJobStatus(ctx context.Context, jobID, status string, output interface{}, errorMessage string) error
}

// Submitter queues work for a worker pool.
type Submitter interface {
	SubmitJob(job worker.Job) error
}

// Renderer creates a job row per render request and dispatches the request
// from the worker pool.
type Renderer struct {
	generator HighlightGenerator
	store     JobStore
	pool      Submitter
	logger    logrus.FieldLogger
}

// NewRenderer returns a Renderer.
func NewRenderer(generator HighlightGenerator, store JobStore, pool Submitter, logger logrus.FieldLogger) *Renderer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Renderer{generator: generator, store: store, pool: pool, logger: logger.WithField("component", "renderer")}
}

// RequestRender records a PENDING job for req and queues its dispatch. It
// returns the job id. When the pool refuses the job the row is marked FAILED
// and the pool's error is returned.
func (r *Renderer) RequestRender(ctx context.Context, req RenderRequest) (string, error) {
	jobID, err := r.store.CreateJobRecord(ctx, models.JobTypeGenerateHighlight, req.HighlightID, req)
	if err != nil {
		return "", fmt.Errorf("record render job for %s: %w", req.HighlightID, err)
	}

	job := &RenderJob{jobID: jobID, req: req, generator: r.generator, store: r.store, logger: r.logger}
	if err := r.pool.SubmitJob(job); err != nil {
		if uerr := r.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, nil, err.Error()); uerr != nil {
			r.logger.WithError(uerr).WithField("job_id", jobID).Error("Failed to mark rejected job")
		}
		return jobID, fmt.Errorf("queue render job %s: %w", jobID, err)
	}
	r.logger.WithFields(logrus.Fields{"job_id": jobID, "highlight_id": req.HighlightID}).Info("Queued render job")
	return jobID, nil
}

// RenderJob sends one render request and records the outcome.
type RenderJob struct {
	jobID     string
	req       RenderRequest
	generator HighlightGenerator
	store     JobStore
	logger    logrus.FieldLogger
}

// ID returns the job row id.
func (j *RenderJob) ID() string { return j.jobID }

// Execute dispatches the request. The status write survives cancellation
// of ctx so a shutdown does not leave the row PENDING.
func (j *RenderJob) Execute(ctx context.Context) error {
	result, err := j.generator.GenerateHighlight(ctx, j.req)
	writeCtx := context.WithoutCancel(ctx)
	var output interface{}
	if result != nil {
		output = result
	}
	if err != nil {
		if uerr := j.store.UpdateJobStatus(writeCtx, j.jobID, models.JobStatusFailed, output, err.Error()); uerr != nil {
			j.logger.WithError(uerr).WithField("job_id", j.jobID).Error("Failed to record render failure")
		}
		return err
	}
	if err := j.store.UpdateJobStatus(writeCtx, j.jobID, models.JobStatusDispatched, output, ""); err != nil {
		return fmt.Errorf("record dispatch of %s: %w", j.jobID, err)
	}
	return nil
}
