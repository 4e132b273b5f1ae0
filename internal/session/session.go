// Package session hosts selection and playback engines for browser clients
// that talk to the service over HTTP.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/internal/notify"
	"videothingy/council-highlights/internal/playback"
	"videothingy/council-highlights/internal/selection"
	"videothingy/council-highlights/internal/shortcuts"
	"videothingy/council-highlights/internal/transcript"
	"videothingy/council-highlights/models"
)

// TranscriptLoader fetches a fresh transcript snapshot for a meeting.
type TranscriptLoader func(ctx context.Context, meetingID string) (*transcript.Index, error)

// EditingOptions wires an editing session to its collaborators.
type EditingOptions struct {
	Extractor      selection.Extractor
	Reload         TranscriptLoader
	Sinks          []notify.Sink
	Logger         logrus.FieldLogger
	Observer       selection.Observer
	ExtractTimeout time.Duration
	QueueSize      int
}

// EditingSession is one open transcript being edited.
type EditingSession struct {
	ID        string
	MeetingID string
	Selection *selection.Engine
	Shortcuts *shortcuts.Registrar
	Notices   *notify.Queue

	lastSeen lastSeen
}

// NewEditingSession opens an editing session over idx. After a successful
// extraction the transcript is reloaded through opts.Reload, if set.
func NewEditingSession(id, meetingID string, idx *transcript.Index, opts EditingOptions) *EditingSession {
	s := &EditingSession{
		ID:        id,
		MeetingID: meetingID,
		Shortcuts: shortcuts.NewRegistrar(),
		Notices:   notify.NewQueue(opts.QueueSize),
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithFields(logrus.Fields{"session_id": id, "meeting_id": meetingID})

	sinks := append([]notify.Sink{s.Notices}, opts.Sinks...)
	s.Selection = selection.New(idx, selection.Config{
		Extractor:      opts.Extractor,
		Notifier:       notify.Multi(sinks...),
		Logger:         logger,
		Observer:       opts.Observer,
		ExtractTimeout: opts.ExtractTimeout,
		AfterExtract: func(ctx context.Context, _ selection.Plan) {
			if opts.Reload == nil {
				return
			}
			fresh, err := opts.Reload(ctx, meetingID)
			if err != nil {
				logger.WithError(err).Warn("Failed to reload transcript after extraction")
				return
			}
			s.Selection.SetTranscript(fresh)
		},
	})
	s.Selection.BindShortcuts(s.Shortcuts)
	s.lastSeen.touch(time.Now())
	return s
}

// EditingSnapshot is the JSON view of an editing session.
type EditingSnapshot struct {
	ID        string                `json:"id"`
	MeetingID string                `json:"meeting_id"`
	Selection selection.State       `json:"selection"`
	Shortcuts []shortcuts.Binding   `json:"shortcuts"`
	Notices   []notify.Notification `json:"notifications"`
}

// Snapshot returns the session state and drains pending notifications.
func (s *EditingSession) Snapshot() EditingSnapshot {
	return EditingSnapshot{
		ID:        s.ID,
		MeetingID: s.MeetingID,
		Selection: s.Selection.State(),
		Shortcuts: s.Shortcuts.Bindings(),
		Notices:   s.Notices.Drain(),
	}
}

// PlaybackSession is one open highlight being played.
type PlaybackSession struct {
	ID          string
	HighlightID string
	Player      *RemotePlayer
	Controller  *playback.Controller

	mu        sync.Mutex
	highlight *models.Highlight
	lastSeen  lastSeen
}

// NewPlaybackSession opens a playback session over h.
func NewPlaybackSession(id string, idx *transcript.Index, h *models.Highlight, cfg playback.Config) *PlaybackSession {
	player := NewRemotePlayer()
	s := &PlaybackSession{
		ID:          id,
		HighlightID: h.ID,
		Player:      player,
		Controller:  playback.NewController(player, cfg),
		highlight:   h,
	}
	s.Controller.Load(idx, h)
	s.lastSeen.touch(time.Now())
	return s
}

// Highlight returns the highlight last loaded into the session.
func (s *PlaybackSession) Highlight() *models.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlight
}

// Refresh loads a new transcript snapshot and highlight revision.
func (s *PlaybackSession) Refresh(idx *transcript.Index, h *models.Highlight) {
	s.mu.Lock()
	s.highlight = h
	s.mu.Unlock()
	s.Controller.Load(idx, h)
}

// PlaybackSnapshot is the JSON view of a playback session.
type PlaybackSnapshot struct {
	ID string `json:"id"`
	playback.State
	Commands []Command `json:"commands"`
}

// Snapshot returns the controller state and drains pending player commands.
func (s *PlaybackSession) Snapshot() PlaybackSnapshot {
	return PlaybackSnapshot{
		ID:       s.ID,
		State:    s.Controller.State(),
		Commands: s.Player.DrainCommands(),
	}
}

type lastSeen struct {
	mu sync.Mutex
	at time.Time
}

func (l *lastSeen) touch(now time.Time) {
	l.mu.Lock()
	l.at = now
	l.mu.Unlock()
}

func (l *lastSeen) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.at)
}
