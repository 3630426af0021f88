package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"aip/internal/platform/postgres"
	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

// PostgresStore is the append-only event log. There is no UPDATE or DELETE.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append locks the parent request row so concurrent appends for the same
// request serialize, then clamps created_at to the latest existing event.
func (s *PostgresStore) Append(ctx context.Context, e *models.Event) error {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}

	conn := postgres.Conn(ctx, s.db)
	var requestPK int64
	err = conn.QueryRowContext(ctx,
		`SELECT id FROM verification_requests WHERE uuid = $1 FOR UPDATE`, uuid.UUID(e.RequestID),
	).Scan(&requestPK)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock request for event: %w", err)
	}

	query := `
		INSERT INTO verification_events (uuid, request_id, event_type, description, metadata, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, GREATEST(
			$7::timestamptz,
			COALESCE((SELECT MAX(created_at) FROM verification_events WHERE request_id = $2), $7::timestamptz)
		))
		RETURNING id, created_at
	`
	if err := conn.QueryRowContext(ctx, query,
		uuid.UUID(e.ID),
		requestPK,
		string(e.Type),
		e.Description,
		string(raw),
		uuid.UUID(e.CreatedBy),
		e.CreatedAt,
	).Scan(&e.Seq, &e.CreatedAt); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.Event, error) {
	query := `
		SELECT e.id, e.uuid, r.uuid, p.uuid, e.event_type, e.description, e.metadata, e.created_by, e.created_at
		FROM verification_events e
		JOIN verification_requests r ON r.id = e.request_id
		JOIN aip_projects p ON p.id = r.project_id
		WHERE r.uuid = $1
		ORDER BY e.created_at, e.id
	`
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []*models.Event{}
	for rows.Next() {
		var (
			e                            models.Event
			eventUUID, reqUUID, projUUID uuid.UUID
			createdBy                    uuid.UUID
			eventType                    string
			metadata                     []byte
		)
		if err := rows.Scan(&e.Seq, &eventUUID, &reqUUID, &projUUID, &eventType, &e.Description, &metadata, &createdBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.ID = id.EventID(eventUUID)
		e.RequestID = id.RequestID(reqUUID)
		e.ProjectID = id.ProjectID(projUUID)
		e.Type = models.EventType(eventType)
		e.CreatedBy = id.UserID(createdBy)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode event metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
