// Package notify delivers user-visible messages (toasts) about mutation outcomes.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Severity classifies a notification.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Error   Severity = "error"
)

// DefaultDuration is how long a toast stays visible unless configured otherwise.
const DefaultDuration = 4 * time.Second

// Notification is a single message for the user.
type Notification struct {
	Message  string
	Severity Severity
	Duration time.Duration
}

// Sink accepts user-visible messages. It only owns their display lifecycle.
type Sink interface {
	Notify(message string, severity Severity, duration time.Duration)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(message string, severity Severity, duration time.Duration)

func (f SinkFunc) Notify(message string, severity Severity, duration time.Duration) {
	f(message, severity, duration)
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(string, Severity, time.Duration) {})

// Queue buffers notifications for a consumer such as a toast view.
// When the buffer is full the oldest notification is dropped.
type Queue struct {
	ch chan Notification
}

// NewQueue creates a queue holding up to size notifications.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Notification, size)}
}

// Notify implements Sink.
func (q *Queue) Notify(message string, severity Severity, duration time.Duration) {
	n := Notification{Message: message, Severity: severity, Duration: duration}
	for {
		select {
		case q.ch <- n:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// C returns the channel notifications are delivered on.
func (q *Queue) C() <-chan Notification { return q.ch }

// Drain returns every queued notification without blocking.
func (q *Queue) Drain() []Notification {
	var out []Notification
	for {
		select {
		case n := <-q.ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

// LogSink writes notifications to a logrus logger.
type LogSink struct {
	Entry *log.Entry
}

// Notify implements Sink.
func (s LogSink) Notify(message string, severity Severity, duration time.Duration) {
	entry := s.Entry
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	entry = entry.WithFields(log.Fields{"severity": severity, "duration": duration})
	switch severity {
	case Error:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}

// WriterSink prints notifications as CLI lines, e.g. "error: Failed to move card. Reverting.".
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	// MinSeverity filters out info messages when set to Success or Error.
	MinSeverity Severity
}

// NewWriterSink creates a WriterSink on w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, MinSeverity: Info}
}

// Notify implements Sink.
func (s *WriterSink) Notify(message string, severity Severity, duration time.Duration) {
	if rank(severity) < rank(s.MinSeverity) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s: %s\n", severity, message)
}

func rank(s Severity) int {
	switch s {
	case Error:
		return 2
	case Success:
		return 1
	default:
		return 0
	}
}

// Multi fans a notification out to several sinks.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(message string, severity Severity, duration time.Duration) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(message, severity, duration)
			}
		}
	})
}
