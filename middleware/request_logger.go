package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDKey is the fiber.Locals key holding the request id.
const RequestIDKey = "requestid"

// RequestLogger creates a new middleware handler for structured request logging with Logrus.
// An incoming X-Request-ID header is reused; otherwise a new id is generated.
func RequestLogger(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(fiber.HeaderXRequestID, requestID)

		err := c.Next()

		latency := time.Since(start)
		statusCode := c.Response().StatusCode()

		logEntry := log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"http_method": c.Method(),
			"uri":         c.OriginalURL(),
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.IP(),
			"user_agent":  string(c.Request().Header.UserAgent()),
		})

		if err != nil {
			// The app's error handler writes the response; log with request context here.
			logEntry.WithField("error", err.Error()).Error("Request processing failed")
		} else {
			switch {
			case statusCode >= 500:
				logEntry.Error("Request completed with server error")
			case statusCode >= 400:
				logEntry.Warn("Request completed with client error")
			default:
				logEntry.Info("Request completed successfully")
			}
		}

		return err
	}
}

// RequestID returns the id RequestLogger assigned to the request.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}
