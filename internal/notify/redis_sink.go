package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultChannel is the Redis channel notifications are published on.
const DefaultChannel = "events.highlights.notifications"

const publishTimeout = 2 * time.Second

// Event is the JSON envelope published to Redis.
type Event struct {
	EventType    string       `json:"event_type"`
	Timestamp    time.Time    `json:"timestamp"`
	Source       string       `json:"source"`
	SessionID    string       `json:"session_id,omitempty"`
	Notification Notification `json:"notification"`
}

// RedisSink publishes notifications to a Redis channel so other processes can
// mirror them. Publish failures are logged and otherwise ignored.
type RedisSink struct {
	client    redis.UniversalClient
	channel   string
	sessionID string
	logger    logrus.FieldLogger
}

// NewRedisSink returns a sink publishing to channel (DefaultChannel if empty).
func NewRedisSink(client redis.UniversalClient, channel string, logger logrus.FieldLogger) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel, logger: logger}
}

// ForSession returns a copy of the sink that tags events with sessionID.
func (s *RedisSink) ForSession(sessionID string) *RedisSink {
	cp := *s
	cp.sessionID = sessionID
	return &cp
}

// Notify publishes n in the background.
func (s *RedisSink) Notify(n Notification) {
	ev := Event{
		EventType:    "notification",
		Timestamp:    time.Now().UTC(),
		Source:       "council-highlights",
		SessionID:    s.sessionID,
		Notification: n,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal notification event")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
			s.logger.WithError(err).WithField("channel", s.channel).Warn("Failed to publish notification")
		}
	}()
}
