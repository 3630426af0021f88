package check

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aip/internal/platform/postgres"
	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectCheck = `
	SELECT c.uuid, r.uuid, c.check_type, c.check_name, c.description, c.status, c.score, c.notes,
	       c.evidence_json, c.checked_by, c.checked_at, c.is_automated, c.automation_source,
	       c.created_at, c.updated_at
	FROM verification_checks c
	JOIN verification_requests r ON r.id = c.request_id
`

func (s *PostgresStore) Add(ctx context.Context, c *models.Check) error {
	evidence, err := marshalEvidence(c.Evidence)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO verification_checks (
			uuid, request_id, check_type, check_name, description, status, score, notes,
			evidence_json, checked_by, checked_at, is_automated, automation_source, created_at, updated_at
		)
		SELECT $1, r.id, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		FROM verification_requests r
		WHERE r.uuid = $2
	`
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.RequestID),
		string(c.Type),
		c.Name,
		c.Description,
		string(c.Status),
		nullInt(c.Score),
		c.Notes,
		evidence,
		nullUser(c.CheckedBy),
		nullTime(c.CheckedAt),
		c.IsAutomated,
		c.AutomationSource,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("add check: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add check rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID, checkID id.CheckID) (*models.Check, error) {
	query := selectCheck + ` WHERE c.uuid = $1 AND r.uuid = $2`
	c, err := scanCheck(postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(checkID), uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find check: %w", err)
	}
	return c, nil
}

// Update writes the reviewer-controlled fields of a check.
func (s *PostgresStore) Update(ctx context.Context, c *models.Check) error {
	evidence, err := marshalEvidence(c.Evidence)
	if err != nil {
		return err
	}
	query := `
		UPDATE verification_checks
		SET status = $2, score = $3, notes = $4, evidence_json = $5, checked_by = $6, checked_at = $7, updated_at = $8
		WHERE uuid = $1
	`
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		string(c.Status),
		nullInt(c.Score),
		c.Notes,
		evidence,
		nullUser(c.CheckedBy),
		nullTime(c.CheckedAt),
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update check: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update check rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.Check, error) {
	query := selectCheck + ` WHERE r.uuid = $1 ORDER BY c.created_at, c.id`
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	out := []*models.Check{}
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checks: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheck(row rowScanner) (*models.Check, error) {
	var (
		c                  models.Check
		checkUUID, reqUUID uuid.UUID
		checkType, status  string
		score              sql.NullInt64
		evidence           []byte
		checkedBy          uuid.NullUUID
		checkedAt          sql.NullTime
	)
	if err := row.Scan(
		&checkUUID, &reqUUID, &checkType, &c.Name, &c.Description, &status, &score, &c.Notes,
		&evidence, &checkedBy, &checkedAt, &c.IsAutomated, &c.AutomationSource, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.ID = id.CheckID(checkUUID)
	c.RequestID = id.RequestID(reqUUID)
	c.Type = models.CheckType(checkType)
	c.Status = models.CheckStatus(status)
	if score.Valid {
		v := int(score.Int64)
		c.Score = &v
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &c.Evidence); err != nil {
			return nil, fmt.Errorf("decode evidence: %w", err)
		}
	}
	if checkedBy.Valid {
		v := id.UserID(checkedBy.UUID)
		c.CheckedBy = &v
	}
	if checkedAt.Valid {
		t := checkedAt.Time
		c.CheckedAt = &t
	}
	return &c, nil
}

// marshalEvidence returns nil for an empty map so the column stays NULL.
func marshalEvidence(evidence map[string]any) (any, error) {
	if len(evidence) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	return string(b), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullUser(v *id.UserID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
