package models

import (
	"strings"
	"time"

	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
)

type EventType string

const (
	EventCreated       EventType = "created"
	EventAssigned      EventType = "assigned"
	EventApproved      EventType = "approved"
	EventRejected      EventType = "rejected"
	EventNeedsRevision EventType = "needs_revision"
)

// Valid reports whether t is one of the audit trail's event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventAssigned, EventApproved, EventRejected, EventNeedsRevision:
		return true
	}
	return false
}

func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid event type: must be created, assigned, approved, rejected or needs_revision")
	}
	return t, nil
}

// Event is an immutable audit entry. Seq is assigned by the store on append
// and breaks ties between equal CreatedAt values.
type Event struct {
	Seq         int64
	ID          id.EventID
	RequestID   id.RequestID
	ProjectID   id.ProjectID
	Type        EventType
	Description string
	Metadata    map[string]any
	CreatedBy   id.UserID
	CreatedAt   time.Time
}

// Before orders events by creation time, then by append sequence.
func (e *Event) Before(other *Event) bool {
	if e.CreatedAt.Equal(other.CreatedAt) {
		return e.Seq < other.Seq
	}
	return e.CreatedAt.Before(other.CreatedAt)
}
