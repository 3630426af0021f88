package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aip/internal/anchor/models"
	"aip/internal/platform/postgres"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
	"aip/pkg/proofhash"
)

// PostgresStore persists blockchain records. Status changes are
// compare-and-set on status = 'pending'.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectRecord = `
	SELECT uuid, project_id, record_type, reference_id, chain_id, chain_name, contract_address,
	       tx_hash, block_number, data_hash, status, confirmations, gas_used, gas_price_gwei,
	       attempts, last_error, next_poll_at, created_by, created_at, confirmed_at, updated_at
	FROM blockchain_records
`

func (s *PostgresStore) Create(ctx context.Context, r *models.Record) error {
	query := `
		INSERT INTO blockchain_records (
			uuid, project_id, record_type, reference_id, chain_id, chain_name, contract_address,
			tx_hash, block_number, data_hash, status, confirmations, gas_used, gas_price_gwei,
			attempts, last_error, next_poll_at, created_by, created_at, confirmed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		uuid.UUID(r.ProjectID),
		string(r.RecordType),
		uuid.UUID(r.ReferenceID),
		r.ChainID,
		r.ChainName,
		r.ContractAddress,
		nullString(r.TxHash),
		nullUint(r.BlockNumber),
		r.DataHash.Hex(),
		string(r.Status),
		r.Confirmations,
		nullUint(r.GasUsed),
		decimal.NullDecimal{Decimal: derefDecimal(r.GasPriceGwei), Valid: r.GasPriceGwei != nil},
		r.Attempts,
		r.LastError,
		r.NextPollAt,
		uuid.UUID(r.CreatedBy),
		r.CreatedAt,
		nullTime(r.ConfirmedAt),
		r.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create blockchain record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	r, err := scanRecord(postgres.Conn(ctx, s.db).QueryRowContext(ctx, selectRecord+` WHERE uuid = $1`, uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find blockchain record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByReference(ctx context.Context, referenceID id.RequestID) ([]*models.Record, error) {
	return s.list(ctx, selectRecord+` WHERE reference_id = $1 ORDER BY created_at, id`, uuid.UUID(referenceID))
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Record, error) {
	return s.list(ctx, selectRecord+`
		WHERE status = 'pending' AND next_poll_at <= $1
		ORDER BY next_poll_at, id
		LIMIT $2`, now, limit)
}

func (s *PostgresStore) UpdateIfPending(ctx context.Context, r *models.Record) error {
	query := `
		UPDATE blockchain_records
		SET status = $2, tx_hash = $3, block_number = $4, confirmations = $5, gas_used = $6,
		    gas_price_gwei = $7, attempts = $8, last_error = $9, next_poll_at = $10,
		    confirmed_at = $11, updated_at = $12
		WHERE uuid = $1 AND status = 'pending'
	`
	conn := postgres.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, query,
		uuid.UUID(r.ID),
		string(r.Status),
		nullString(r.TxHash),
		nullUint(r.BlockNumber),
		r.Confirmations,
		nullUint(r.GasUsed),
		decimal.NullDecimal{Decimal: derefDecimal(r.GasPriceGwei), Valid: r.GasPriceGwei != nil},
		r.Attempts,
		r.LastError,
		r.NextPollAt,
		nullTime(r.ConfirmedAt),
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update blockchain record: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blockchain record rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blockchain_records WHERE uuid = $1)`, uuid.UUID(r.ID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check blockchain record exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blockchain records: %w", err)
	}
	defer rows.Close()

	out := []*models.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blockchain record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blockchain records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r                                     models.Record
		recUUID, projUUID, refUUID, createdBy uuid.UUID
		recordType, dataHash, status          string
		txHash                                sql.NullString
		blockNumber, gasUsed                  sql.NullInt64
		gasPrice                              decimal.NullDecimal
		confirmedAt                           sql.NullTime
	)
	if err := row.Scan(
		&recUUID, &projUUID, &recordType, &refUUID, &r.ChainID, &r.ChainName, &r.ContractAddress,
		&txHash, &blockNumber, &dataHash, &status, &r.Confirmations, &gasUsed, &gasPrice,
		&r.Attempts, &r.LastError, &r.NextPollAt, &createdBy, &r.CreatedAt, &confirmedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	hash, err := proofhash.Parse(dataHash)
	if err != nil {
		return nil, fmt.Errorf("stored data hash: %w", err)
	}
	r.ID = id.RecordID(recUUID)
	r.ProjectID = id.ProjectID(projUUID)
	r.ReferenceID = id.RequestID(refUUID)
	r.CreatedBy = id.UserID(createdBy)
	r.RecordType = models.RecordType(recordType)
	r.Status = models.Status(status)
	r.DataHash = hash
	r.TxHash = txHash.String
	if blockNumber.Valid {
		v := uint64(blockNumber.Int64)
		r.BlockNumber = &v
	}
	if gasUsed.Valid {
		v := uint64(gasUsed.Int64)
		r.GasUsed = &v
	}
	if gasPrice.Valid {
		v := gasPrice.Decimal
		r.GasPriceGwei = &v
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		r.ConfirmedAt = &t
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUint(v *uint64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
