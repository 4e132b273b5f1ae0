package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"videothingy/council-highlights/internal/session"
	"videothingy/council-highlights/utils"
)

// TimeUpdatePayload is a time update reported by the video element.
type TimeUpdatePayload struct {
	CurrentTime *float64 `json:"current_time" validate:"required,gte=0"`
	IsPlaying   bool     `json:"is_playing"`
}

// JumpPayload selects a clip by its position in the derived view.
type JumpPayload struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// NavigationResponse reports whether a navigation moved the current clip.
type NavigationResponse struct {
	Changed bool                     `json:"changed"`
	Session session.PlaybackSnapshot `json:"session"`
}

func (h *ApplicationHandler) playbackSession(c *fiber.Ctx) (*session.PlaybackSession, error) {
	id := c.Params("sessionId")
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid session ID format")
	}
	s, err := h.Sessions.Playback(id)
	if err != nil {
		return nil, h.respondError(c, err, "Playback session lookup failed")
	}
	return s, nil
}

// CreatePlaybackSession loads a highlight and the transcript of its meeting
// and opens a playback controller over them.
// POST /api/v1/highlights/:highlightId/playback-sessions
func (h *ApplicationHandler) CreatePlaybackSession(c *fiber.Ctx) error {
	highlightID := utils.SanitizeInput(c.Params("highlightId"))
	if highlightID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Highlight ID is required")
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

	s := session.NewPlaybackSession(session.NewID(), idx, hl, h.playbackConfig())
	h.Sessions.AddPlayback(s)

	h.log(c).WithField("session_id", s.ID).WithField("highlight_id", highlightID).Info("Opened playback session")
	return utils.RespondWithJSON(c, fiber.StatusCreated, s.Snapshot())
}

// GetPlaybackSession returns the derived view, the current clip and the
// player commands queued since the last call.
// GET /api/v1/playback-sessions/:sessionId
func (h *ApplicationHandler) GetPlaybackSession(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// PlaybackTimeUpdate feeds a player time update to the controller.
// POST /api/v1/playback-sessions/:sessionId/time
func (h *ApplicationHandler) PlaybackTimeUpdate(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	var payload TimeUpdatePayload
	if ok, err := h.parseBody(c, &payload); !ok {
		return err
	}
	s.Player.Report(*payload.CurrentTime, payload.IsPlaying)
	s.Controller.OnTimeUpdate(*payload.CurrentTime)
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// PlaybackSeeked acknowledges that the player finished a seek.
// POST /api/v1/playback-sessions/:sessionId/seeked
func (h *ApplicationHandler) PlaybackSeeked(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	s.Controller.OnSeeked()
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// PlaybackNext moves to the next clip.
// POST /api/v1/playback-sessions/:sessionId/next
func (h *ApplicationHandler) PlaybackNext(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	changed := s.Controller.Next()
	return utils.RespondWithJSON(c, fiber.StatusOK, NavigationResponse{Changed: changed, Session: s.Snapshot()})
}

// PlaybackPrevious moves to the previous clip.
// POST /api/v1/playback-sessions/:sessionId/previous
func (h *ApplicationHandler) PlaybackPrevious(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	changed := s.Controller.Previous()
	return utils.RespondWithJSON(c, fiber.StatusOK, NavigationResponse{Changed: changed, Session: s.Snapshot()})
}

// PlaybackJump moves to the clip at the given index. An index past the end
// of the view leaves the session where it is.
// POST /api/v1/playback-sessions/:sessionId/jump
func (h *ApplicationHandler) PlaybackJump(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	var payload JumpPayload
	if ok, err := h.parseBody(c, &payload); !ok {
		return err
	}
	changed := s.Controller.GoTo(*payload.Index)
	return utils.RespondWithJSON(c, fiber.StatusOK, NavigationResponse{Changed: changed, Session: s.Snapshot()})
}

// PlaybackPreview toggles preview mode.
// POST /api/v1/playback-sessions/:sessionId/preview
func (h *ApplicationHandler) PlaybackPreview(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	s.Controller.TogglePreview()
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// RefreshPlaybackSession reloads the highlight and its transcript. The
// current clip is kept when the highlight identity is unchanged.
// POST /api/v1/playback-sessions/:sessionId/refresh
func (h *ApplicationHandler) RefreshPlaybackSession(c *fiber.Ctx) error {
	s, err := h.playbackSession(c)
	if s == nil {
		return err
	}
	ctx := c.UserContext()
	hl, err := h.Store.LoadHighlight(ctx, s.HighlightID)
	if err != nil {
		return h.respondError(c, err, "Could not reload highlight")
	}
	idx, err := h.loadIndex(ctx, hl.MeetingID)
	if err != nil {
		return h.respondError(c, err, "Could not reload transcript")
	}
	s.Refresh(idx, hl)
	return utils.RespondWithJSON(c, fiber.StatusOK, s.Snapshot())
}

// ClosePlaybackSession discards a playback session.
// DELETE /api/v1/playback-sessions/:sessionId
func (h *ApplicationHandler) ClosePlaybackSession(c *fiber.Ctx) error {
	id := c.Params("sessionId")
	if err := h.Sessions.ClosePlayback(id); err != nil {
		return h.respondError(c, err, "Playback session close failed")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"id": id})
}
