package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
)

var errStoreDown = errors.New("store down")

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	fail     error

	// vanishOnUpdate drops the session on the next Update, as if it had
	// been deleted concurrently.
	vanishOnUpdate bool
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]domain.Session{}}
}

func (r *memSessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) Update(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if r.vanishOnUpdate {
		delete(r.sessions, s.ID)
		r.vanishOnUpdate = false
	}
	if _, ok := r.sessions[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *memSessionRepo) Rotate(_ context.Context, oldID string, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	delete(r.sessions, oldID)
	r.sessions[s.ID] = *s
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteIdle(_ context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.LastActivity.Before(before) {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memSessionRepo) get(id string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *memSessionRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

type memRateLimitRepo struct {
	mu      sync.Mutex
	entries map[string]domain.RateLimitEntry
	fail    error
}

func newMemRateLimitRepo() *memRateLimitRepo {
	return &memRateLimitRepo{entries: map[string]domain.RateLimitEntry{}}
}

func (r *memRateLimitRepo) Get(_ context.Context, id string) (*domain.RateLimitEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r *memRateLimitRepo) Create(_ context.Context, e *domain.RateLimitEntry, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.entries[e.Identifier] = *e
	return nil
}

func (r *memRateLimitRepo) Increment(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	e := r.entries[id]
	e.Attempts++
	e.LastAttempt = at
	r.entries[id] = e
	return nil
}

func (r *memRateLimitRepo) DeleteExpired(_ context.Context, id string, windowStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if e, ok := r.entries[id]; ok && e.FirstAttempt.Before(windowStart) {
		delete(r.entries, id)
	}
	return nil
}

func (r *memRateLimitRepo) PurgeExpired(_ context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	for id, e := range r.entries {
		if e.FirstAttempt.Before(before) {
			delete(r.entries, id)
		}
	}
	return nil
}

func (r *memRateLimitRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

func (r *memRateLimitRepo) attempts(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id].Attempts
}

// clock is a manually advanced time source.
type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
