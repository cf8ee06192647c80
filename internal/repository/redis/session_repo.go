package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionRepository keeps sessions as JSON values. Keys expire after ttl of
// inactivity, which replaces the idle purge the postgres store needs.
type SessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, sessionKey(session.ID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("session id collision")
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetXX(ctx, sessionKey(session.ID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Rotate(ctx context.Context, oldID string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(oldID))
		pipe.Set(ctx, sessionKey(session.ID), data, r.ttl)
		return nil
	})
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

// DeleteIdle is a no-op; idle sessions expire through their TTL.
func (r *SessionRepository) DeleteIdle(context.Context, time.Time) error {
	return nil
}
