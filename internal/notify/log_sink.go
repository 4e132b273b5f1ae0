package notify

import "github.com/sirupsen/logrus"

// LogSink writes each notification as a structured log entry.
type LogSink struct {
	Logger logrus.FieldLogger
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{Logger: logger}
}

// Notify logs n. Error notifications are logged at warn level; they are user
// facing, not service faults.
func (s *LogSink) Notify(n Notification) {
	entry := s.Logger.WithFields(logrus.Fields{
		"title":       n.Title,
		"description": n.Description,
		"severity":    string(n.Severity),
	})
	if n.Severity == SeverityError {
		entry.Warn("notification")
		return
	}
	entry.Info("notification")
}
