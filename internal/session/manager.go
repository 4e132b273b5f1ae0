package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/internal/apperrors"
)

// DefaultTTL is how long a session may sit idle before Sweep closes it.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = fmt.Errorf("session %w", apperrors.ErrNotFound)

// Manager keeps the open sessions of the process.
type Manager struct {
	mu       sync.RWMutex
	editing  map[string]*EditingSession
	playback map[string]*PlaybackSession
	now      func() time.Time
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		editing:  make(map[string]*EditingSession),
		playback: make(map[string]*PlaybackSession),
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.New().String()
}

// AddEditing registers s under s.ID.
func (m *Manager) AddEditing(s *EditingSession) {
	s.lastSeen.touch(m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing[s.ID] = s
}

// Editing returns the editing session id and marks it as used.
func (m *Manager) Editing(id string) (*EditingSession, error) {
	m.mu.RLock()
	s, ok := m.editing[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("editing %s: %w", id, ErrNotFound)
	}
	s.lastSeen.touch(m.now())
	return s, nil
}

// CloseEditing removes the editing session id.
func (m *Manager) CloseEditing(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.editing[id]; !ok {
		return fmt.Errorf("editing %s: %w", id, ErrNotFound)
	}
	delete(m.editing, id)
	return nil
}

// AddPlayback registers s under s.ID.
func (m *Manager) AddPlayback(s *PlaybackSession) {
	s.lastSeen.touch(m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playback[s.ID] = s
}

// Playback returns the playback session id and marks it as used.
func (m *Manager) Playback(id string) (*PlaybackSession, error) {
	m.mu.RLock()
	s, ok := m.playback[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("playback %s: %w", id, ErrNotFound)
	}
	s.lastSeen.touch(m.now())
	return s, nil
}

// ClosePlayback removes the playback session id.
func (m *Manager) ClosePlayback(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playback[id]; !ok {
		return fmt.Errorf("playback %s: %w", id, ErrNotFound)
	}
	delete(m.playback, id)
	return nil
}

// Sweep closes every session idle for longer than ttl and returns how many
// were closed.
func (m *Manager) Sweep(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	closed := 0
	for id, s := range m.editing {
		if s.lastSeen.idleSince(now) > ttl {
			delete(m.editing, id)
			closed++
		}
	}
	for id, s := range m.playback {
		if s.lastSeen.idleSince(now) > ttl {
			delete(m.playback, id)
			closed++
		}
	}
	return closed
}

// Counts returns the number of open editing and playback sessions.
func (m *Manager) Counts() (editing, playback int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.editing), len(m.playback)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval, ttl time.Duration, logger logrus.FieldLogger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.now(), ttl); n > 0 && logger != nil {
				editing, playback := m.Counts()
				logger.WithFields(logrus.Fields{
					"closed":   n,
					"editing":  editing,
					"playback": playback,
				}).Info("Closed idle sessions")
			}
		}
	}
}
