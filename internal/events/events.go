package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind labels a domain event.
type Kind string

const (
	KindScoreSubmitted  Kind = "score_submitted"
	KindStatusSubmitted Kind = "status_submitted"
	KindAttemptDeleted  Kind = "attempt_deleted"
	KindSCOLaunched     Kind = "sco_launched"
)

// Event is an observability fact emitted by the tracking engine. Delivery
// is fire-and-forget; the engine does not await consumers.
type Event struct {
	ID        string
	Kind      Kind
	UserID    string
	PackageID string
	SCOID     int64
	Attempt   int
	Element   string
	Value     string
	At        int64
}

// New stamps an event with an id and timestamp.
func New(kind Kind) Event {
	return Event{ID: uuid.NewString(), Kind: kind, At: time.Now().Unix()}
}

// Sink accepts domain events.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

// MultiSink fans out to several sinks; the first error wins but every sink
// still sees the event.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
