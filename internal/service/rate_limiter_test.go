package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/progress-tracker/internal/logging"
	"github.com/dom/progress-tracker/internal/service"
	"github.com/stretchr/testify/assert"
)

func newRateLimiter(repo *memRateLimitRepo) *service.RateLimiter {
	return service.NewRateLimiter(repo, service.RateLimiterOptions{Retention: time.Hour}, logging.Discard())
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	loginRule := service.RateLimitRule{MaxAttempts: 5, Window: 15 * time.Minute}

	t.Run("denies after max attempts in the window", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		clk := newClock()
		limiter := newRateLimiter(repo)
		limiter.SetClock(clk.Now)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule), "attempt %d", i+1)
			clk.Advance(time.Second)
		}
		assert.False(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))
		assert.False(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))
		assert.Equal(t, 5, repo.attempts("login_1.2.3.4"), "denied attempts are not counted")
	})

	t.Run("identifiers are independent", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		limiter := newRateLimiter(repo)
		rule := service.RateLimitRule{MaxAttempts: 1, Window: time.Hour}

		assert.True(t, limiter.Allow(ctx, "register_1.1.1.1", rule))
		assert.False(t, limiter.Allow(ctx, "register_1.1.1.1", rule))
		assert.True(t, limiter.Allow(ctx, "register_2.2.2.2", rule))
	})

	t.Run("window restarts after expiry", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		clk := newClock()
		limiter := newRateLimiter(repo)
		limiter.SetClock(clk.Now)

		for i := 0; i < 5; i++ {
			limiter.Allow(ctx, "login_1.2.3.4", loginRule)
		}
		assert.False(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))

		clk.Advance(15*time.Minute + time.Second)
		assert.True(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))
		assert.Equal(t, 1, repo.attempts("login_1.2.3.4"))
	})

	t.Run("window is anchored at the first attempt", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		clk := newClock()
		limiter := newRateLimiter(repo)
		limiter.SetClock(clk.Now)

		for i := 0; i < 5; i++ {
			limiter.Allow(ctx, "login_1.2.3.4", loginRule)
			clk.Advance(3 * time.Minute)
		}
		// 15 minutes after the first attempt, later attempts do not extend it
		clk.Advance(time.Second)
		assert.True(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))
	})

	t.Run("fails open when the store is unavailable", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		repo.fail = errStoreDown
		limiter := newRateLimiter(repo)

		for i := 0; i < 10; i++ {
			assert.True(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))
		}
	})

	t.Run("new windows purge entries abandoned by other identifiers", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		clk := newClock()
		limiter := newRateLimiter(repo)
		limiter.SetClock(clk.Now)

		limiter.Allow(ctx, "login_9.9.9.9", loginRule)
		clk.Advance(30 * time.Minute)
		limiter.Allow(ctx, "register_8.8.8.8", loginRule)
		assert.True(t, repo.has("login_9.9.9.9"), "entries younger than the retention are kept")

		clk.Advance(31 * time.Minute)
		assert.True(t, limiter.Allow(ctx, "login_1.2.3.4", loginRule))
		assert.False(t, repo.has("login_9.9.9.9"))
		assert.True(t, repo.has("register_8.8.8.8"))
		assert.True(t, repo.has("login_1.2.3.4"))
	})

	t.Run("purge is skipped without a retention", func(t *testing.T) {
		repo := newMemRateLimitRepo()
		clk := newClock()
		limiter := service.NewRateLimiter(repo, service.RateLimiterOptions{}, logging.Discard())
		limiter.SetClock(clk.Now)

		limiter.Allow(ctx, "login_9.9.9.9", loginRule)
		clk.Advance(24 * time.Hour)
		limiter.Allow(ctx, "login_1.2.3.4", loginRule)
		assert.True(t, repo.has("login_9.9.9.9"))
	})
}
