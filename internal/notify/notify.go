// Package notify carries user-facing notices from the stores to whatever
// renders them.
package notify

import (
	"sync"

	"freshmart/internal/model"

	"github.com/rs/zerolog"
)

// Notifier is a fire-and-forget sink for user-facing notices. Implementations
// must not block and never fail the caller.
type Notifier interface {
	Notify(title, message string, severity model.Severity)
}

// Info raises an informational notice.
func Info(n Notifier, title, message string) {
	n.Notify(title, message, model.SeverityInfo)
}

// Error raises a rejection notice.
func Error(n Notifier, title, message string) {
	n.Notify(title, message, model.SeverityError)
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(string, string, model.Severity) {}

// logNotifier writes notices to a zerolog logger.
type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a Notifier that logs each notice at debug level,
// or warn level for rejections.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *logNotifier) Notify(title, message string, severity model.Severity) {
	ev := n.logger.Debug()
	if severity == model.SeverityError {
		ev = n.logger.Warn()
	}
	ev.Str("title", title).Str("severity", string(severity)).Msg(message)
}

// Queue buffers notices until the host drains them, e.g. into an HTTP
// response. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	notices []model.Notice
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Notify appends a notice.
func (q *Queue) Notify(title, message string, severity model.Severity) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.notices = append(q.notices, model.Notice{Title: title, Message: message, Severity: severity})
}

// Drain returns and clears the buffered notices.
func (q *Queue) Drain() []model.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.notices
	q.notices = nil
	return out
}

// Len returns the number of buffered notices.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.notices)
}

// Fanout delivers every notice to each of its notifiers in order.
type Fanout []Notifier

func (f Fanout) Notify(title, message string, severity model.Severity) {
	for _, n := range f {
		n.Notify(title, message, severity)
	}
}
