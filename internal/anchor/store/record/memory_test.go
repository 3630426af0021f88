package record

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aip/internal/anchor/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
	"aip/pkg/proofhash"
)

func newRecord(ref id.RequestID, txHash string, nextPoll time.Time) *models.Record {
	now := time.Now()
	return &models.Record{
		ID:          id.NewRecordID(),
		ProjectID:   id.NewProjectID(),
		RecordType:  models.RecordVerificationDecision,
		ReferenceID: ref,
		ChainID:     137,
		TxHash:      txHash,
		DataHash:    proofhash.Sum([]byte(txHash)),
		Status:      models.StatusPending,
		NextPollAt:  nextPoll,
		CreatedBy:   id.UserID(uuid.New()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestInMemoryStore_UniqueTxHash(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	ref := id.NewRequestID()

	require.NoError(t, store.Create(ctx, newRecord(ref, "0x01", time.Now())))
	assert.ErrorIs(t, store.Create(ctx, newRecord(ref, "0x01", time.Now())), sentinel.ErrAlreadyUsed)

	// Failed submissions carry no hash and may repeat.
	require.NoError(t, store.Create(ctx, newRecord(ref, "", time.Now())))
	require.NoError(t, store.Create(ctx, newRecord(ref, "", time.Now())))

	records, err := store.ListByReference(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestInMemoryStore_ListDue(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()

	due := newRecord(id.NewRequestID(), "0x01", now.Add(-time.Minute))
	later := newRecord(id.NewRequestID(), "0x02", now.Add(time.Minute))
	done := newRecord(id.NewRequestID(), "0x03", now.Add(-time.Hour))
	done.Status = models.StatusConfirmed
	for _, r := range []*models.Record{due, later, done} {
		require.NoError(t, store.Create(ctx, r))
	}

	got, err := store.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestInMemoryStore_UpdateIfPending(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	r := newRecord(id.NewRequestID(), "0x01", time.Now())
	require.NoError(t, store.Create(ctx, r))

	r.Fail("reverted", time.Now())
	require.NoError(t, store.UpdateIfPending(ctx, r))

	r.Status = models.StatusConfirmed
	assert.ErrorIs(t, store.UpdateIfPending(ctx, r), sentinel.ErrConflict)

	stored, err := store.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Equal(t, "reverted", stored.LastError)

	missing := newRecord(id.NewRequestID(), "0x09", time.Now())
	assert.ErrorIs(t, store.UpdateIfPending(ctx, missing), sentinel.ErrNotFound)
}
