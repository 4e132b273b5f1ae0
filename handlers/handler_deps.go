package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/internal/notify"
	"videothingy/council-highlights/internal/playback"
	"videothingy/council-highlights/internal/selection"
	"videothingy/council-highlights/internal/session"
	"videothingy/council-highlights/internal/tasks"
	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/middleware"
	"videothingy/council-highlights/models"
)

// Store defines the persistence operations handlers expect.
// The concrete implementation is provided by the db package.
type Store interface {
	LoadTranscript(ctx context.Context, meetingID string) (*models.Transcript, error)
	LoadHighlight(ctx context.Context, highlightID string) (*models.Highlight, error)
	ExtractSpeakerSegment(ctx context.Context, segmentID, startUtteranceID, endUtteranceID string) error
	GetJob(ctx context.Context, jobID string) (*models.ProcessingJob, error)
}

// RenderRequester queues highlight renders.
type RenderRequester interface {
	RequestRender(ctx context.Context, req tasks.RenderRequest) (string, error)
}

// Observer receives selection and playback events.
type Observer interface {
	selection.Observer
	playback.Observer
}

// Settings tune the sessions the handlers open.
type Settings struct {
	ExtractTimeout    time.Duration
	NotificationQueue int
	Playback          playback.Config
}

// Deps groups the collaborators of an ApplicationHandler.
type Deps struct {
	Store    Store
	Sessions *session.Manager
	Renderer RenderRequester
	Logger   logrus.FieldLogger
	// Observer and Redis are optional.
	Observer Observer
	Redis    *notify.RedisSink
	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
	Settings       Settings
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Store          Store
	Sessions       *session.Manager
	Renderer       RenderRequester
	Logger         logrus.FieldLogger
	observer       Observer
	redis          *notify.RedisSink
	metricsHandler http.Handler
	settings       Settings
	validate       *validator.Validate
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(deps Deps) *ApplicationHandler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewManager()
	}
	return &ApplicationHandler{
		Store:          deps.Store,
		Sessions:       sessions,
		Renderer:       deps.Renderer,
		Logger:         logger,
		observer:       deps.Observer,
		redis:          deps.Redis,
		metricsHandler: deps.MetricsHandler,
		settings:       deps.Settings,
		validate:       validator.New(),
	}
}

// log returns the handler logger tagged with the request id.
func (h *ApplicationHandler) log(c *fiber.Ctx) logrus.FieldLogger {
	if id := middleware.RequestID(c); id != "" {
		return h.Logger.WithField("request_id", id)
	}
	return h.Logger
}

// loadIndex loads and validates the transcript of a meeting.
func (h *ApplicationHandler) loadIndex(ctx context.Context, meetingID string) (*transcript.Index, error) {
	t, err := h.Store.LoadTranscript(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if err := transcript.Validate(t); err != nil {
		return nil, err
	}
	return transcript.NewIndex(t), nil
}

// sinksFor returns the notification sinks of a new editing session besides
// its own queue.
func (h *ApplicationHandler) sinksFor(sessionID string) []notify.Sink {
	sinks := []notify.Sink{notify.NewLogSink(h.Logger.WithField("session_id", sessionID))}
	if h.redis != nil {
		sinks = append(sinks, h.redis.ForSession(sessionID))
	}
	return sinks
}

func (h *ApplicationHandler) selectionObserver() selection.Observer {
	if h.observer == nil {
		return nil
	}
	return h.observer
}

func (h *ApplicationHandler) playbackConfig() playback.Config {
	cfg := h.settings.Playback
	if h.observer != nil {
		cfg.Observer = h.observer
	}
	return cfg
}
