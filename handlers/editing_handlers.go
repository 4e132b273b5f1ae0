package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"videothingy/council-highlights/internal/selection"
	"videothingy/council-highlights/internal/session"
	"videothingy/council-highlights/utils"
)

// ToggleSelectionPayload is a click on an utterance.
type ToggleSelectionPayload struct {
	UtteranceID string `json:"utterance_id" validate:"required"`
	Shift       bool   `json:"shift"`
	Ctrl        bool   `json:"ctrl"`
}

// ExtractResponse reports what an extraction request did.
type ExtractResponse struct {
	Outcome selection.Outcome       `json:"outcome"`
	Session session.EditingSnapshot `json:"session"`
}

// ShortcutResponse reports which action a shortcut ran and what it did.
type ShortcutResponse struct {
	Action  string                  `json:"action"`
	Outcome string                  `json:"outcome"`
	Session session.EditingSnapshot `json:"session"`
}

// editingSession resolves :sessionId. When it returns nil the error response
// has already been written.
func (h *ApplicationHandler) editingSession(c *fiber.Ctx) (*session.EditingSession, error) {
	id := c.Params("sessionId")
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid session ID format")
	}
	s, err := h.Sessions.Editing(id)
	if err != nil {
		return nil, h.respondError(c, err, "Editing session lookup failed")
	}
	return s, nil
}

// CreateEditingSession loads a meeting transcript and opens a selection
// engine over it.
// POST /api/v1/meetings/:meetingId/editing-sessions
func (h *ApplicationHandler) CreateEditingSession(c *fiber.Ctx) error {
	meetingID := utils.SanitizeInput(c.Params("meetingId"))
	if meetingID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Meeting ID is required")
	}

	idx, err := h.loadIndex(c.UserContext(), meetingID)
	if err != nil {
		return h.respondError(c, err, "Could not load transcript")
	}

	id := session.NewID()
	s := session.NewEditingSession(id, meetingID, idx, session.EditingOptions{
		Extractor:      h.Store,
		Reload:         h.loadIndex,
		Sinks:          h.sinksFor(id),
		Logger:         h.Logger,
		Observer:       h.selectionObserver(),
		ExtractTimeout: h.settings.ExtractTimeout,
		QueueSize:      h.settings.NotificationQueue,
	})
	h.Sessions.AddEditing(s)

	h.log(c).WithField("session_id", id).WithField("meeting_id", meetingID).Info("Opened editing session")
	return utils.RespondWithJSON(c, fiber.StatusCreated, s.Snapshot())
}

// GetEditingSession returns the selection state, shortcut bindings and any
// pending notifications.
// GET /api/v1/editing-sessions/:sessionId
func (h *ApplicationHandler) GetEditingSession(c *fiber.Ctx) error {
	s, err := h.editingSession(c)
	if s == nil {
		return err
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// ToggleSelection applies a click with its modifier keys.
// POST /api/v1/editing-sessions/:sessionId/selection
func (h *ApplicationHandler) ToggleSelection(c *fiber.Ctx) error {
	s, err := h.editingSession(c)
	if s == nil {
		return err
	}
	var payload ToggleSelectionPayload
	if ok, err := h.parseBody(c, &payload); !ok {
		return err
	}
	s.Selection.Toggle(utils.SanitizeInput(payload.UtteranceID), selection.Modifiers{
		Shift: payload.Shift,
		Ctrl:  payload.Ctrl,
	})
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// ClearSelection empties the selection.
// DELETE /api/v1/editing-sessions/:sessionId/selection
func (h *ApplicationHandler) ClearSelection(c *fiber.Ctx) error {
	s, err := h.editingSession(c)
	if s == nil {
		return err
	}
	s.Selection.Clear()
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// ExtractSelection moves the selected utterances into a new speaker
// segment. Rejections and failures come back as notifications.
// POST /api/v1/editing-sessions/:sessionId/extract
func (h *ApplicationHandler) ExtractSelection(c *fiber.Ctx) error {
	s, err := h.editingSession(c)
	if s == nil {
		return err
	}
	outcome := s.Selection.ExtractSelected(c.UserContext())
	if outcome == selection.OutcomeBusy {
		return utils.RespondWithError(c, fiber.StatusConflict, "An extraction is already in progress")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, ExtractResponse{
		Outcome: outcome,
		Session: s.Snapshot(),
	})
}

// TriggerShortcut runs a registered keyboard-shortcut action. A shortcut
// extraction reports its outcome like ExtractSelection does.
// POST /api/v1/editing-sessions/:sessionId/shortcuts/:action
func (h *ApplicationHandler) TriggerShortcut(c *fiber.Ctx) error {
	s, err := h.editingSession(c)
	if s == nil {
		return err
	}
	action := c.Params("action")
	result, err := s.Shortcuts.Trigger(c.UserContext(), action)
	if err != nil {
		return h.respondError(c, err, "Shortcut rejected")
	}
	if action == selection.ActionExtractSegment && result == string(selection.OutcomeBusy) {
		return utils.RespondWithError(c, fiber.StatusConflict, "An extraction is already in progress")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, ShortcutResponse{
		Action:  action,
		Outcome: result,
		Session: s.Snapshot(),
	})
}

// CloseEditingSession discards an editing session.
// DELETE /api/v1/editing-sessions/:sessionId
func (h *ApplicationHandler) CloseEditingSession(c *fiber.Ctx) error {
	id := c.Params("sessionId")
	if err := h.Sessions.CloseEditing(id); err != nil {
		return h.respondError(c, err, "Editing session close failed")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"id": id})
}
