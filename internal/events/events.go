// Package events publishes a notification for every answered (or failed) question.
// Publishing is fire-and-forget: the service keeps no copy and never fails a
// request because an event could not be delivered.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome of a question request.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeFailed   Outcome = "failed"
)

// AnswerEvent describes one finished request.
type AnswerEvent struct {
	ID          uuid.UUID `json:"id"`
	Time        time.Time `json:"time"`
	Question    string    `json:"question"`
	Documents   []string  `json:"documents"`
	Model       string    `json:"model"`
	Outcome     Outcome   `json:"outcome"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	AnswerChars int       `json:"answer_chars"`
	DurationMS  int64     `json:"duration_ms"`
}

// Publisher exposes a minimal contract to emit answer events.
type Publisher interface {
	Publish(ctx context.Context, ev AnswerEvent) error
	Close() error
}

// withDefaults fills in the id and timestamp when the caller left them empty.
func withDefaults(ev AnswerEvent) AnswerEvent {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	return ev
}
