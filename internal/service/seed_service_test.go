package service

import (
	"context"
	"testing"
	"time"

	"udm-tms-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRunResetsAndReloads(t *testing.T) {
	st := storetest.New(t)
	cache := newMemCache()
	svc := NewSeedService(st, cache, NewLocalLocker())
	ctx := context.Background()

	sum, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Vendors)
	assert.Equal(t, 2, sum.Batches)
	assert.Equal(t, 8, sum.Components)
	assert.Equal(t, 8, sum.Marks)
	assert.Equal(t, 8, sum.Inspections)
	assert.Equal(t, 2, sum.Assets)
	assert.Equal(t, "RID2025-00001234", sum.RIDs[0])
	assert.Equal(t, "RID2025-00001241", sum.RIDs[7])

	// reseeding wipes records added in between
	tms := NewTMSService(st, cache, NoopPublisher{})
	_, err = tms.RecordFitment(ctx, "ASSET-44523", &FitmentRequest{
		RID: "RID2025-00001234", FitmentDate: "2025-10-09", FittedBy: "ENG-431",
	})
	require.NoError(t, err)

	_, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.flushed)

	asset, err := tms.GetAsset(ctx, "ASSET-44523")
	require.NoError(t, err)
	assert.Equal(t, 0, asset.TotalFittedComponents)

	list, err := tms.ListInspections(ctx, InspectionQuery{})
	require.NoError(t, err)
	assert.Equal(t, 8, list.TotalFound)
}

func TestSeedRunRefusedWhileLocked(t *testing.T) {
	st := storetest.New(t)
	locker := NewLocalLocker()
	svc := NewSeedService(st, NoopCache{}, locker)
	ctx := context.Background()

	token, err := locker.AcquireLock(ctx, seedLockKey, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = svc.Run(ctx)
	assert.ErrorIs(t, err, ErrSeedInProgress)

	require.NoError(t, locker.ReleaseLock(ctx, seedLockKey, token))
	_, err = svc.Run(ctx)
	assert.NoError(t, err)
}

func TestLocalLockerExpiry(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	first, err := locker.AcquireLock(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	time.Sleep(5 * time.Millisecond)

	second, err := locker.AcquireLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, second)

	// the expired owner cannot free the new holder's lock
	require.NoError(t, locker.ReleaseLock(ctx, "k", first))
	third, err := locker.AcquireLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, third)
}
