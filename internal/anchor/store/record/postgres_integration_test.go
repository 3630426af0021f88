//go:build integration

package record_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"aip/internal/anchor/models"
	"aip/internal/anchor/store/record"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
	"aip/pkg/proofhash"
	"aip/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *record.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = record.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "blockchain_records"))
}

func newRecord(ref id.RequestID, txHash string) *models.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Record{
		ID:              id.NewRecordID(),
		ProjectID:       id.NewProjectID(),
		RecordType:      models.RecordVerificationDecision,
		ReferenceID:     ref,
		ChainID:         137,
		ChainName:       "polygon",
		ContractAddress: "0x2222222222222222222222222222222222222222",
		TxHash:          txHash,
		DataHash:        proofhash.Sum([]byte(uuid.NewString())),
		Status:          models.StatusPending,
		NextPollAt:      now,
		CreatedBy:       id.UserID(uuid.New()),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *PostgresStoreSuite) TestRoundTripAndConfirm() {
	ctx := context.Background()
	r := newRecord(id.NewRequestID(), proofhash.Sum([]byte("tx")).Hex())
	s.Require().NoError(s.store.Create(ctx, r))

	now := time.Now().UTC()
	r.Confirm(models.Receipt{BlockNumber: 50, Succeeded: true, GasUsed: 21000, GasPriceGwei: decimal.RequireFromString("31.25")}, 61, 12, now)
	s.Require().NoError(s.store.UpdateIfPending(ctx, r))

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, got.Status)
	s.Equal(12, got.Confirmations)
	s.Equal(uint64(50), *got.BlockNumber)
	s.True(got.GasPriceGwei.Equal(decimal.RequireFromString("31.25")))
	s.Equal(r.DataHash, got.DataHash)
	s.NotNil(got.ConfirmedAt)

	// Terminal records are immutable.
	got.Fail("late failure", now)
	s.ErrorIs(s.store.UpdateIfPending(ctx, got), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNullableTxHash() {
	ctx := context.Background()
	ref := id.NewRequestID()
	for i := 0; i < 2; i++ {
		r := newRecord(ref, "")
		r.Status = models.StatusFailed
		r.LastError = "rpc unreachable"
		s.Require().NoError(s.store.Create(ctx, r))
	}
	dup := proofhash.Sum([]byte("dup")).Hex()
	s.Require().NoError(s.store.Create(ctx, newRecord(ref, dup)))
	s.ErrorIs(s.store.Create(ctx, newRecord(ref, dup)), sentinel.ErrAlreadyUsed)

	records, err := s.store.ListByReference(ctx, ref)
	s.Require().NoError(err)
	s.Len(records, 3)
	s.Empty(records[0].TxHash)
}

func (s *PostgresStoreSuite) TestListDue() {
	ctx := context.Background()
	due := newRecord(id.NewRequestID(), proofhash.Sum([]byte("a")).Hex())
	due.NextPollAt = time.Now().Add(-time.Minute)
	later := newRecord(id.NewRequestID(), proofhash.Sum([]byte("b")).Hex())
	later.NextPollAt = time.Now().Add(time.Hour)
	s.Require().NoError(s.store.Create(ctx, due))
	s.Require().NoError(s.store.Create(ctx, later))

	got, err := s.store.ListDue(ctx, time.Now(), 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(due.ID, got[0].ID)
}
