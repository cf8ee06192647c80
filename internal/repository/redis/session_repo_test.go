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

func TestSessionRepository(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	repo := redisrepo.NewSessionRepository(rdb, time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	newSession := func(id string) *domain.Session {
		return &domain.Session{
			ID:               id,
			CSRFToken:        "token-" + id,
			LastActivity:     now,
			LastRegeneration: now,
		}
	}

	t.Run("create sets a ttl", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newSession("a")))

		ttl, err := rdb.TTL(ctx, "session:a").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)

		assert.Error(t, repo.Create(ctx, newSession("a")), "ids never collide silently")
	})

	t.Run("get round trip", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "token-a", got.CSRFToken)
		assert.True(t, got.LastActivity.Equal(now))

		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update only existing keys", func(t *testing.T) {
		s := newSession("a")
		userID := uint(3)
		s.UserID = &userID
		s.Username = "alice"
		require.NoError(t, repo.Update(ctx, s))

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.True(t, got.IsAuthenticated())

		assert.ErrorIs(t, repo.Update(ctx, newSession("ghost")), domain.ErrNotFound)
	})

	t.Run("rotate", func(t *testing.T) {
		require.NoError(t, repo.Rotate(ctx, "a", newSession("b")))

		_, err := repo.GetByID(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByID(ctx, "b")
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "b"))
		_, err := repo.GetByID(ctx, "b")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
