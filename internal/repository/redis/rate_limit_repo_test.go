package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	redisrepo "github.com/dom/progress-tracker/internal/repository/redis"
	"github.com/dom/progress-tracker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitRepository(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	repo := redisrepo.NewRateLimitRepository(rdb)
	ctx := context.Background()
	start := time.UnixMilli(time.Now().UnixMilli())

	_, err := repo.Get(ctx, "register_10.0.0.2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Create(ctx, &domain.RateLimitEntry{
		Identifier:   "register_10.0.0.2",
		Attempts:     1,
		FirstAttempt: start,
		LastAttempt:  start,
	}, time.Hour))
	require.NoError(t, repo.Increment(ctx, "register_10.0.0.2", start.Add(time.Second)))

	entry, err := repo.Get(ctx, "register_10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Attempts)
	assert.True(t, entry.FirstAttempt.Equal(start))
	assert.True(t, entry.LastAttempt.Equal(start.Add(time.Second)))

	ttl, err := rdb.TTL(ctx, "ratelimit:register_10.0.0.2").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	t.Run("delete expired keeps a live window", func(t *testing.T) {
		require.NoError(t, repo.DeleteExpired(ctx, "register_10.0.0.2", start.Add(-time.Minute)))
		_, err := repo.Get(ctx, "register_10.0.0.2")
		assert.NoError(t, err)
	})

	t.Run("delete expired drops an old window", func(t *testing.T) {
		require.NoError(t, repo.DeleteExpired(ctx, "register_10.0.0.2", start.Add(time.Minute)))
		_, err := repo.Get(ctx, "register_10.0.0.2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("half written hash counts as expired", func(t *testing.T) {
		require.NoError(t, rdb.HSet(ctx, "ratelimit:partial", "attempts", 4).Err())

		entry, err := repo.Get(ctx, "partial")
		require.NoError(t, err)
		assert.Equal(t, 4, entry.Attempts)

		require.NoError(t, repo.DeleteExpired(ctx, "partial", start))
		_, err = repo.Get(ctx, "partial")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
