package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"aip/internal/platform/postgres"
	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

// PostgresStore persists verification requests. Finalizing writes are
// conditional on the stored status so concurrent deciders cannot both win.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectRequest = `
	SELECT r.uuid, p.uuid, r.from_level, r.to_level, r.status, r.assigned_to, r.assigned_org_id,
	       r.decision, r.decision_notes, r.decided_by, r.decided_at, r.requested_by, r.created_at, r.updated_at
	FROM verification_requests r
	JOIN aip_projects p ON p.id = r.project_id
`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO verification_requests (uuid, project_id, from_level, to_level, status, requested_by, created_at, updated_at)
		SELECT $1, p.id, $3, $4, $5, $6, $7, $8
		FROM aip_projects p
		WHERE p.uuid = $2
	`
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.ProjectID),
		int(req.FromLevel),
		int(req.ToLevel),
		string(req.Status),
		uuid.UUID(req.RequestedBy),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create verification request: %w", err)
	}
	return requireRow(res, sentinel.ErrNotFound)
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.findOne(ctx, selectRequest+` WHERE r.uuid = $1`, requestID)
}

func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.findOne(ctx, selectRequest+` WHERE r.uuid = $1 FOR UPDATE OF r`, requestID)
}

func (s *PostgresStore) FindByIDForShare(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.findOne(ctx, selectRequest+` WHERE r.uuid = $1 FOR SHARE OF r`, requestID)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, requestID id.RequestID) (*models.Request, error) {
	req, err := scanRequest(postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectID != nil {
		args = append(args, uuid.UUID(*filter.ProjectID))
		where = append(where, fmt.Sprintf("p.uuid = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)))
	}
	query := selectRequest
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verification requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveAssignmentIfOpen(ctx context.Context, req *models.Request) error {
	query := `
		UPDATE verification_requests
		SET assigned_to = $2, assigned_org_id = $3, status = $4, updated_at = $5
		WHERE uuid = $1 AND status NOT IN ('approved', 'rejected')
	`
	return s.updateIfOpen(ctx, "save assignment", query, req.ID,
		nullUUID((*uuid.UUID)(req.AssignedTo)),
		nullUUID((*uuid.UUID)(req.AssignedOrgID)),
		string(req.Status),
		req.UpdatedAt,
	)
}

func (s *PostgresStore) SaveDecisionIfOpen(ctx context.Context, req *models.Request) error {
	query := `
		UPDATE verification_requests
		SET status = $2, decision = $3, decision_notes = $4, decided_by = $5, decided_at = $6, updated_at = $7
		WHERE uuid = $1 AND status NOT IN ('approved', 'rejected')
	`
	var decision sql.NullString
	if req.Decision != nil {
		decision = sql.NullString{String: string(*req.Decision), Valid: true}
	}
	var decidedAt sql.NullTime
	if req.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: *req.DecidedAt, Valid: true}
	}
	return s.updateIfOpen(ctx, "save decision", query, req.ID,
		string(req.Status),
		decision,
		req.DecisionNotes,
		nullUUID((*uuid.UUID)(req.DecidedBy)),
		decidedAt,
		req.UpdatedAt,
	)
}

// updateIfOpen runs a status-guarded UPDATE. Zero affected rows means the
// request is missing or already terminal.
func (s *PostgresStore) updateIfOpen(ctx context.Context, op, query string, requestID id.RequestID, args ...any) error {
	conn := postgres.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, query, append([]any{uuid.UUID(requestID)}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verification_requests WHERE uuid = $1)`, uuid.UUID(requestID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("%s check exists: %w", op, err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req                                models.Request
		reqUUID, projUUID, requestedBy     uuid.UUID
		fromLevel, toLevel                 int
		status                             string
		assignedTo, assignedOrg, decidedBy uuid.NullUUID
		decision                           sql.NullString
		decidedAt                          sql.NullTime
	)
	if err := row.Scan(
		&reqUUID, &projUUID, &fromLevel, &toLevel, &status, &assignedTo, &assignedOrg,
		&decision, &req.DecisionNotes, &decidedBy, &decidedAt, &requestedBy, &req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.ID = id.RequestID(reqUUID)
	req.ProjectID = id.ProjectID(projUUID)
	req.FromLevel = models.Level(fromLevel)
	req.ToLevel = models.Level(toLevel)
	req.Status = models.RequestStatus(status)
	req.RequestedBy = id.UserID(requestedBy)
	if assignedTo.Valid {
		v := id.UserID(assignedTo.UUID)
		req.AssignedTo = &v
	}
	if assignedOrg.Valid {
		v := id.OrgID(assignedOrg.UUID)
		req.AssignedOrgID = &v
	}
	if decision.Valid {
		d := models.Decision(decision.String)
		req.Decision = &d
	}
	if decidedBy.Valid {
		v := id.UserID(decidedBy.UUID)
		req.DecidedBy = &v
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	return &req, nil
}

func nullUUID(u *uuid.UUID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *u, Valid: true}
}

func requireRow(res sql.Result, missing error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return missing
	}
	return nil
}
