package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// RegisterRoutes mounts the health check, metrics and API v1 routes on app.
func (h *ApplicationHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/health", func(c *fiber.Ctx) error {
		editing, playback := h.Sessions.Counts()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":            "ok",
			"message":           "Highlights service is healthy",
			"editing_sessions":  editing,
			"playback_sessions": playback,
		})
	})
	if h.metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.metricsHandler))
	}

	apiV1 := app.Group("/api/v1")

	apiV1.Post("/meetings/:meetingId/editing-sessions", h.CreateEditingSession)

	editing := apiV1.Group("/editing-sessions/:sessionId")
	editing.Get("", h.GetEditingSession)
	editing.Post("/selection", h.ToggleSelection)
	editing.Delete("/selection", h.ClearSelection)
	editing.Post("/extract", h.ExtractSelection)
	editing.Post("/shortcuts/:action", h.TriggerShortcut)
	editing.Delete("", h.CloseEditingSession)

	apiV1.Post("/highlights/:highlightId/playback-sessions", h.CreatePlaybackSession)
	apiV1.Post("/highlights/:highlightId/render", h.RenderHighlight)

	playback := apiV1.Group("/playback-sessions/:sessionId")
	playback.Get("", h.GetPlaybackSession)
	playback.Post("/time", h.PlaybackTimeUpdate)
	playback.Post("/seeked", h.PlaybackSeeked)
	playback.Post("/next", h.PlaybackNext)
	playback.Post("/previous", h.PlaybackPrevious)
	playback.Post("/jump", h.PlaybackJump)
	playback.Post("/preview", h.PlaybackPreview)
	playback.Post("/refresh", h.RefreshPlaybackSession)
	playback.Delete("", h.ClosePlaybackSession)

	apiV1.Get("/jobs/:jobId", h.GetJobStatus)
}
