package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"videothingy/council-highlights/utils"
)

// GetJobStatus retrieves the status of a specific processing job.
// GET /api/v1/jobs/:jobId
func (h *ApplicationHandler) GetJobStatus(c *fiber.Ctx) error {
	jobIDStr := c.Params("jobId")
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		h.log(c).WithField("job_id", jobIDStr).Warn("Invalid job ID format")
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid job ID format")
	}

	job, err := h.Store.GetJob(c.UserContext(), jobID.String())
	if err != nil {
		return h.respondError(c, err, "Could not retrieve job status")
	}

	h.log(c).WithField("job_id", job.ID).WithField("status", job.Status).Debug("Retrieved job status")
	return utils.RespondWithJSON(c, fiber.StatusOK, job)
}
