package project

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

func TestInMemoryStore_AdvanceLevelIfLower(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	p := &models.Project{ID: id.NewProjectID(), Name: "Solar Farm", CurrentLevel: models.LevelV1}
	require.NoError(t, store.Create(ctx, p))

	require.NoError(t, store.AdvanceLevelIfLower(ctx, p.ID, models.LevelV3, time.Now()))
	assert.ErrorIs(t, store.AdvanceLevelIfLower(ctx, p.ID, models.LevelV2, time.Now()), sentinel.ErrConflict)
	assert.ErrorIs(t, store.AdvanceLevelIfLower(ctx, p.ID, models.LevelV3, time.Now()), sentinel.ErrConflict)

	got, err := store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LevelV3, got.CurrentLevel)

	assert.ErrorIs(t, store.AdvanceLevelIfLower(ctx, id.NewProjectID(), models.LevelV1, time.Now()), sentinel.ErrNotFound)
}

func TestInMemoryStore_ConcurrentAdvanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	p := &models.Project{ID: id.NewProjectID(), CurrentLevel: models.LevelV0}
	require.NoError(t, store.Create(ctx, p))

	var wg sync.WaitGroup
	for _, lvl := range []models.Level{models.LevelV5, models.LevelV2, models.LevelV4, models.LevelV1, models.LevelV3} {
		wg.Add(1)
		go func(to models.Level) {
			defer wg.Done()
			_ = store.AdvanceLevelIfLower(ctx, p.ID, to, time.Now())
		}(lvl)
	}
	wg.Wait()

	got, err := store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LevelV5, got.CurrentLevel)
}
