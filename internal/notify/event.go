// Package notify delivers lifecycle events to email, Kafka and the log.
// Delivery is best effort: a failed notification never undoes the state
// change that produced it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"visadesk/internal/domain"
)

// EventType names a lifecycle event
type EventType string

const (
	CaseCreated       EventType = "case.created"
	CaseStatusChanged EventType = "case.status_changed"
	InquiryReplied    EventType = "inquiry.replied"
	ContentSubmitted  EventType = "content.submitted"
)

// Event is the payload handed to every sink
type Event struct {
	ID       string      `json:"id"`
	Type     EventType   `json:"type"`
	Kind     domain.Kind `json:"kind"`
	EntityID uint        `json:"entity_id"`
	From     string      `json:"from,omitempty"`
	To       string      `json:"to,omitempty"`
	// Contact is the submitter; it receives status and reply emails
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Reply        string    `json:"reply,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewEvent stamps an id and time on a new event
func NewEvent(t EventType, kind domain.Kind, id uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Kind:       kind,
		EntityID:   id,
		OccurredAt: time.Now().UTC(),
	}
}

// Sink delivers an event somewhere
type Sink interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}
