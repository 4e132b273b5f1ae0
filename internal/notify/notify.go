// Package notify carries user-facing toast notifications from the engines to
// whoever hosts them. Sinks are fire-and-forget: Notify never blocks on I/O
// and never reports failure to the caller.
package notify

import "sync"

// Severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a single toast.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Sink receives notifications.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Notification)

// Notify calls f(n).
func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

// Multi fans a notification out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return multiSink(out)
}

type multiSink []Sink

func (m multiSink) Notify(n Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

// DefaultQueueSize bounds a Queue created with size <= 0.
const DefaultQueueSize = 32

// Queue buffers notifications until the client drains them. When full the
// oldest notification is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	size  int
}

// NewQueue returns a Queue holding at most size notifications.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{size: size}
}

// Notify appends n, evicting the oldest entry if the queue is full.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.size {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

// Drain returns the buffered notifications oldest first and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Len returns the number of buffered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
