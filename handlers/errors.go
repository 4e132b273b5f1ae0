package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"videothingy/council-highlights/internal/apperrors"
	"videothingy/council-highlights/internal/shortcuts"
	"videothingy/council-highlights/internal/worker"
	"videothingy/council-highlights/utils"
)

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case apperrors.IsNotFound(err), errors.Is(err, shortcuts.ErrUnknownAction):
		return fiber.StatusNotFound
	case apperrors.IsValidation(err):
		return fiber.StatusUnprocessableEntity
	case apperrors.IsConflict(err), apperrors.IsInvalidState(err), errors.Is(err, shortcuts.ErrDisabled):
		return fiber.StatusConflict
	case apperrors.IsTimeout(err):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopped):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError logs err and writes it in the error envelope. Server errors
// get a generic message.
func (h *ApplicationHandler) respondError(c *fiber.Ctx, err error, message string) error {
	status := statusFor(err)
	entry := h.log(c).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Warn(message)
		message = err.Error()
	}
	return utils.RespondWithError(c, status, message)
}

// parseBody decodes and validates the request body into payload. When it
// returns false the error response has already been written.
func (h *ApplicationHandler) parseBody(c *fiber.Ctx, payload interface{}) (bool, error) {
	if err := c.BodyParser(payload); err != nil {
		return false, utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if err := h.validate.Struct(payload); err != nil {
		return false, utils.RespondWithValidationErrors(c, err)
	}
	return true, nil
}
