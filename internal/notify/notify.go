// Package notify surfaces user-visible success and failure messages.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Notifier receives toast-style messages from stores and services.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Log writes notifications to a zap logger. It is the CLI default.
type Log struct {
	log *zap.Logger
}

// NewLog creates a notifier on the "notify" child logger.
func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("notify")}
}

func (l *Log) Success(msg string) { l.log.Info(msg) }
func (l *Log) Error(msg string)   { l.log.Warn(msg) }

// Nop discards notifications.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

// Message is one recorded notification.
type Message struct {
	OK   bool
	Text string
}

// Recorder keeps notifications in order; views poll it and tests assert on it.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Success(msg string) { r.add(Message{OK: true, Text: msg}) }
func (r *Recorder) Error(msg string)   { r.add(Message{Text: msg}) }

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Multi fans out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
