// Package tasks dispatches highlight render requests to the external task
// service and tracks them as job rows.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"videothingy/council-highlights/internal/playback"
)

// DefaultTimeout bounds a single request to the task service.
const DefaultTimeout = 10 * time.Second

const generateHighlightPath = "/api/tasks/generate-highlight"

// Part is one time range of the source video to include in a render.
type Part struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RenderRequest is the body of a generate-highlight request.
type RenderRequest struct {
	HighlightID string `json:"highlight_id"`
	MediaURL    string `json:"media_url"`
	Parts       []Part `json:"parts"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// PartsFromView turns the derived clips of a highlight into render parts, in
// playback order.
func PartsFromView(v playback.View) []Part {
	parts := make([]Part, 0, len(v.Clips))
	for _, c := range v.Clips {
		parts = append(parts, Part{Start: c.StartTimestamp, End: c.EndTimestamp})
	}
	return parts
}

// DispatchResult is what the task service answered.
type DispatchResult struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Client talks to the task service.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewClient returns a client for the task service at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// GenerateHighlight asks the task service to render req. The request is sent
// once; any non-2xx answer is an error.
func (c *Client) GenerateHighlight(ctx context.Context, req RenderRequest) (*DispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(c.baseURL + generateHighlightPath).
		JSON(req).
		Timeout(timeout)
	if c.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.apiKey)
	}
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("build generate-highlight request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("generate-highlight request for %s: %w", req.HighlightID, errors.Join(errs...))
	}
	result := &DispatchResult{StatusCode: code}
	if json.Valid(body) {
		result.Body = body
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return result, fmt.Errorf("task service answered %d for highlight %s: %s", code, req.HighlightID, truncate(body, 200))
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
