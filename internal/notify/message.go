// Package notify delivers committed verification events to external
// subscribers over Kafka.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"aip/internal/verification/models"
)

// Message is the JSON value written for each verification event. The record
// key is the verification ID so a request's events stay on one partition.
type Message struct {
	EventID        string         `json:"event_id"`
	VerificationID string         `json:"verification_id"`
	ProjectID      string         `json:"project_id"`
	EventType      string         `json:"event_type"`
	Description    string         `json:"description,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      string         `json:"created_at"`
	Sequence       int64          `json:"sequence"`
}

func NewMessage(e *models.Event) Message {
	m := Message{
		EventID:        e.ID.String(),
		VerificationID: e.RequestID.String(),
		ProjectID:      e.ProjectID.String(),
		EventType:      string(e.Type),
		Description:    e.Description,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339Nano),
		Sequence:       e.Seq,
	}
	if !e.CreatedBy.IsNil() {
		m.CreatedBy = e.CreatedBy.String()
	}
	return m
}

// Encode returns the record key and JSON value for an event.
func Encode(e *models.Event) (key, value []byte, err error) {
	value, err = json.Marshal(NewMessage(e))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal verification event: %w", err)
	}
	return []byte(e.RequestID.String()), value, nil
}
