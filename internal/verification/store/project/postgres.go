package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aip/internal/platform/postgres"
	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

// PostgresStore reads projects and applies the workflow's level changes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a project. Used for seeding and tests.
func (s *PostgresStore) Create(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO aip_projects (uuid, sponsor_org_id, name, current_verification_level, risk_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		uuid.UUID(p.SponsorOrgID),
		p.Name,
		int(p.CurrentLevel),
		nullInt(p.RiskScore),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	query := `
		SELECT uuid, sponsor_org_id, name, current_verification_level, risk_score, created_at, updated_at
		FROM aip_projects
		WHERE uuid = $1
	`
	var (
		p         models.Project
		projUUID  uuid.UUID
		orgUUID   uuid.UUID
		level     int
		riskScore sql.NullInt64
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(projectID)).Scan(
		&projUUID, &orgUUID, &p.Name, &level, &riskScore, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	p.ID = id.ProjectID(projUUID)
	p.SponsorOrgID = id.OrgID(orgUUID)
	p.CurrentLevel = models.Level(level)
	if riskScore.Valid {
		score := int(riskScore.Int64)
		p.RiskScore = &score
	}
	return &p, nil
}

// AdvanceLevelIfLower is a conditional write: the level only moves up.
func (s *PostgresStore) AdvanceLevelIfLower(ctx context.Context, projectID id.ProjectID, to models.Level, at time.Time) error {
	query := `
		UPDATE aip_projects
		SET current_verification_level = $2, updated_at = $3
		WHERE uuid = $1 AND current_verification_level < $2
	`
	conn := postgres.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, query, uuid.UUID(projectID), int(to), at)
	if err != nil {
		return fmt.Errorf("advance project level: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance project level rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM aip_projects WHERE uuid = $1)`, uuid.UUID(projectID)).Scan(&exists); err != nil {
		return fmt.Errorf("check project exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
