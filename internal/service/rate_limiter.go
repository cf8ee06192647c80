package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository"
)

// RateLimitRule is a maximum number of attempts per window.
type RateLimitRule struct {
	MaxAttempts int
	Window      time.Duration
}

type RateLimiterOptions struct {
	// Retention is how long an entry is kept before any identifier's new
	// window may purge it. It must cover the longest rule window. Zero
	// disables the purge.
	Retention time.Duration
}

// RateLimiter counts attempts per identifier in a window anchored at the
// first attempt. It is advisory: storage failures allow the request.
type RateLimiter struct {
	repo      repository.RateLimitRepository
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewRateLimiter(repo repository.RateLimitRepository, opts RateLimiterOptions, log *slog.Logger) *RateLimiter {
	return &RateLimiter{repo: repo, retention: opts.Retention, now: time.Now, log: log}
}

// Allow reports whether another attempt fits in the window and records it.
// Denied attempts are not counted.
func (l *RateLimiter) Allow(ctx context.Context, identifier string, rule RateLimitRule) bool {
	now := l.now()

	if err := l.repo.DeleteExpired(ctx, identifier, now.Add(-rule.Window)); err != nil {
		return l.failOpen(ctx, identifier, err)
	}

	entry, err := l.repo.Get(ctx, identifier)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return l.failOpen(ctx, identifier, err)
		}
		err = l.repo.Create(ctx, &domain.RateLimitEntry{
			Identifier:   identifier,
			Attempts:     1,
			FirstAttempt: now,
			LastAttempt:  now,
		}, rule.Window)
		if err != nil {
			return l.failOpen(ctx, identifier, err)
		}
		l.purge(ctx, now)
		return true
	}

	if entry.Attempts >= rule.MaxAttempts {
		return false
	}

	if err := l.repo.Increment(ctx, identifier, now); err != nil {
		return l.failOpen(ctx, identifier, err)
	}
	return true
}

// purge drops entries left behind by identifiers that never came back.
func (l *RateLimiter) purge(ctx context.Context, now time.Time) {
	if l.retention <= 0 {
		return
	}
	if err := l.repo.PurgeExpired(ctx, now.Add(-l.retention)); err != nil {
		l.log.WarnContext(ctx, "failed to purge expired rate limit entries", "error", err)
	}
}

func (l *RateLimiter) failOpen(ctx context.Context, identifier string, err error) bool {
	l.log.WarnContext(ctx, "rate limiter unavailable, allowing request", "identifier", identifier, "error", err)
	return true
}
