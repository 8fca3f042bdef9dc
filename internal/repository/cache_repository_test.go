package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, "spa:"), mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "candidates:2025-01-10:1", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "candidates:2025-01-10:1", map[string]int{"staff": 3}, time.Minute))
	assert.True(t, mr.Exists("spa:candidates:2025-01-10:1"))
	require.NoError(t, repo.Get(ctx, "candidates:2025-01-10:1", &out))
	assert.Equal(t, 3, out["staff"])

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "candidates:2025-01-10:1", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	for i := 0; i < 3*scanBatch+5; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("candidates:2025-01-10:%d", i), i, 0))
	}
	require.NoError(t, repo.Set(ctx, "candidates:2025-01-11:1", 1, 0))

	require.NoError(t, repo.DeleteByPattern(ctx, "candidates:2025-01-10:*"))
	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("spa:candidates:2025-01-11:1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "")
	var out int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, 0))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}
