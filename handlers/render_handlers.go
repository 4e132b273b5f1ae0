package handlers

import (
	"github.com/gofiber/fiber/v2"

	"videothingy/council-highlights/internal/playback"
	"videothingy/council-highlights/internal/tasks"
	"videothingy/council-highlights/utils"
)

// RenderPayload is the body of a render request.
type RenderPayload struct {
	MediaURL    string `json:"media_url" validate:"required,url"`
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

// RenderHighlight queues a render of the highlight's clips with the task
// service. The job row tracks the dispatch.
// POST /api/v1/highlights/:highlightId/render
func (h *ApplicationHandler) RenderHighlight(c *fiber.Ctx) error {
	highlightID := utils.SanitizeInput(c.Params("highlightId"))
	if highlightID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Highlight ID is required")
	}
	var payload RenderPayload
	if ok, err := h.parseBody(c, &payload); !ok {
		return err
	}

	ctx := c.UserContext()
	hl, err := h.Store.LoadHighlight(ctx, highlightID)
	if err != nil {
		return h.respondError(c, err, "Could not load highlight")
	}
	idx, err := h.loadIndex(ctx, hl.MeetingID)
	if err != nil {
		return h.respondError(c, err, "Could not load transcript")
	}

	parts := tasks.PartsFromView(playback.Derive(hl, idx))
	if len(parts) == 0 {
		return utils.RespondWithError(c, fiber.StatusUnprocessableEntity, "Highlight has no playable clips")
	}

	jobID, err := h.Renderer.RequestRender(ctx, tasks.RenderRequest{
		HighlightID: hl.ID,
		MediaURL:    utils.SanitizeInput(payload.MediaURL),
		Parts:       parts,
		CallbackURL: utils.SanitizeInput(payload.CallbackURL),
	})
	if err != nil {
		return h.respondError(c, err, "Could not queue render")
	}

	h.log(c).WithField("job_id", jobID).WithField("highlight_id", hl.ID).Info("Queued highlight render")
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{"job_id": jobID})
}
