package service

import (
	"context"
	"testing"
	"time"

	"udm-tms-service/internal/redisclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisComponentCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	cache := NewRedisComponentCache(client, time.Minute)

	_, ok := cache.Get(ctx, "RID2025-00001234")
	assert.False(t, ok)

	for _, rid := range []string{"RID2025-00001234", "RID2025-00001235"} {
		cache.Set(ctx, &ComponentView{RID: rid, ComponentType: "Elastic Rail Clip"})
	}
	require.NoError(t, mr.Set("unrelated", "keep"))
	assert.Equal(t, time.Minute, mr.TTL("component:RID2025-00001234"))

	view, ok := cache.Get(ctx, "RID2025-00001234")
	require.True(t, ok)
	assert.Equal(t, "Elastic Rail Clip", view.ComponentType)
	assert.Nil(t, view.Marking)

	cache.Evict(ctx, "RID2025-00001234")
	cache.Evict(ctx)
	_, ok = cache.Get(ctx, "RID2025-00001234")
	assert.False(t, ok)

	cache.Flush(ctx)
	assert.False(t, mr.Exists("component:RID2025-00001235"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisComponentCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cache := NewRedisComponentCache(client, time.Minute)
	mr.Close()

	ctx := context.Background()
	cache.Set(ctx, &ComponentView{RID: "RID2025-00001234"})
	_, ok := cache.Get(ctx, "RID2025-00001234")
	assert.False(t, ok)
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	token, err := locker.AcquireLock(ctx, "seed", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := locker.AcquireLock(ctx, "seed", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, locker.ReleaseLock(ctx, "seed", "stale-token"))
	again, _ = locker.AcquireLock(ctx, "seed", time.Minute)
	assert.Empty(t, again)

	require.NoError(t, locker.ReleaseLock(ctx, "seed", token))
	again, _ = locker.AcquireLock(ctx, "seed", time.Minute)
	assert.NotEmpty(t, again)
}
