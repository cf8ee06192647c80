package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimitRepository stores each entry as a hash that expires with its window.
type RateLimitRepository struct {
	rdb *redis.Client
}

func NewRateLimitRepository(rdb *redis.Client) *RateLimitRepository {
	return &RateLimitRepository{rdb: rdb}
}

func rateLimitKey(identifier string) string {
	return rateLimitKeyPrefix + identifier
}

func (r *RateLimitRepository) Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error) {
	fields, err := r.rdb.HGetAll(ctx, rateLimitKey(identifier)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	attempts := 0
	if v := fields["attempts"]; v != "" {
		if attempts, err = strconv.Atoi(v); err != nil {
			return nil, err
		}
	}
	first, err := parseMillis(fields["first_attempt"])
	if err != nil {
		return nil, err
	}
	last, err := parseMillis(fields["last_attempt"])
	if err != nil {
		return nil, err
	}

	return &domain.RateLimitEntry{
		Identifier:   identifier,
		Attempts:     attempts,
		FirstAttempt: first,
		LastAttempt:  last,
	}, nil
}

// parseMillis treats a missing field as the epoch so a half-written hash is
// purged as expired on the next check.
func parseMillis(v string) (time.Time, error) {
	if v == "" {
		return time.UnixMilli(0), nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (r *RateLimitRepository) Create(ctx context.Context, entry *domain.RateLimitEntry, window time.Duration) error {
	key := rateLimitKey(entry.Identifier)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"attempts", entry.Attempts,
			"first_attempt", entry.FirstAttempt.UnixMilli(),
			"last_attempt", entry.LastAttempt.UnixMilli(),
		)
		pipe.Expire(ctx, key, window)
		return nil
	})
	return err
}

func (r *RateLimitRepository) Increment(ctx context.Context, identifier string, at time.Time) error {
	key := rateLimitKey(identifier)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "attempts", 1)
		pipe.HSet(ctx, key, "last_attempt", at.UnixMilli())
		return nil
	})
	return err
}

func (r *RateLimitRepository) DeleteExpired(ctx context.Context, identifier string, windowStart time.Time) error {
	entry, err := r.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if entry.FirstAttempt.Before(windowStart) {
		return r.rdb.Del(ctx, rateLimitKey(identifier)).Err()
	}
	return nil
}

// PurgeExpired is a no-op; every key carries the TTL of its window.
func (r *RateLimitRepository) PurgeExpired(context.Context, time.Time) error {
	return nil
}
