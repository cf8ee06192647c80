package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/logging"
	"github.com/dom/progress-tracker/internal/repository"
	"github.com/google/uuid"
)

type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticated
	StateExpired
	StateLoggedOut
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// SessionContext is the session resolved for a single request. Handlers
// receive it explicitly and hand it to the manager for every transition.
type SessionContext struct {
	session *domain.Session
	state   SessionState
}

func newSessionContext(s *domain.Session) *SessionContext {
	state := StateAnonymous
	if s.IsAuthenticated() {
		state = StateAuthenticated
	}
	return &SessionContext{session: s, state: state}
}

// ID is empty once the session has ended.
func (sc *SessionContext) ID() string {
	if sc.session == nil {
		return ""
	}
	return sc.session.ID
}

func (sc *SessionContext) State() SessionState { return sc.state }

func (sc *SessionContext) IsAuthenticated() bool { return sc.state == StateAuthenticated }

func (sc *SessionContext) UserID() (uint, bool) {
	if !sc.IsAuthenticated() {
		return 0, false
	}
	return *sc.session.UserID, true
}

func (sc *SessionContext) Username() string {
	if !sc.IsAuthenticated() {
		return ""
	}
	return sc.session.Username
}

type SessionOptions struct {
	Timeout         time.Duration
	RegenerateAfter time.Duration
}

type SessionManager struct {
	repo            repository.SessionRepository
	timeout         time.Duration
	regenerateAfter time.Duration
	now             func() time.Time
	log             *slog.Logger
}

func NewSessionManager(repo repository.SessionRepository, opts SessionOptions, log *slog.Logger) *SessionManager {
	return &SessionManager{
		repo:            repo,
		timeout:         opts.Timeout,
		regenerateAfter: opts.RegenerateAfter,
		now:             time.Now,
		log:             log,
	}
}

// Start resolves the session named by the cookie value, or creates a new
// anonymous one when there is none. Stale ids are rotated before returning.
func (m *SessionManager) Start(ctx context.Context, id string) (*SessionContext, error) {
	now := m.now()

	if id != "" {
		s, err := m.repo.GetByID(ctx, id)
		switch {
		case err == nil && s.IsAuthenticated():
			// activity on authenticated sessions is recorded by Touch
			sc := newSessionContext(s)
			if err := m.RotateIfStale(ctx, sc); err != nil {
				return nil, err
			}
			return sc, nil
		case err == nil && now.Sub(s.LastActivity) <= m.timeout:
			sc, err := m.resumeAnonymous(ctx, s, now)
			if err == nil {
				return sc, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		case err == nil:
			// idle anonymous session; replace it
			if err := m.repo.Delete(ctx, id); err != nil {
				m.log.WarnContext(ctx, "failed to delete idle session", "error", err)
			}
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load session: %w: %w", domain.ErrPersistence, err)
		}
	}

	s := &domain.Session{
		ID:               newSessionID(),
		LastActivity:     now,
		LastRegeneration: now,
		CreatedAt:        now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w: %w", domain.ErrPersistence, err)
	}

	if err := m.repo.DeleteIdle(ctx, now.Add(-m.timeout)); err != nil {
		m.log.WarnContext(ctx, "failed to purge idle sessions", "error", err)
	}

	return newSessionContext(s), nil
}

// resumeAnonymous records the request as activity, so an anonymous session
// idles out from its last use rather than from its creation.
func (m *SessionManager) resumeAnonymous(ctx context.Context, s *domain.Session, now time.Time) (*SessionContext, error) {
	id := s.ID
	s.LastActivity = now
	sc := newSessionContext(s)

	// a rotation already persists the new activity time
	if err := m.RotateIfStale(ctx, sc); err != nil {
		return nil, err
	}
	if sc.ID() != id {
		return sc, nil
	}

	if err := m.repo.Update(ctx, s); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resume session: %w: %w", domain.ErrPersistence, err)
	}
	return sc, nil
}

// Login authenticates the session under a fresh id and a fresh CSRF token.
// On failure the context is left untouched.
func (m *SessionManager) Login(ctx context.Context, sc *SessionContext, user *domain.User) error {
	if sc.session == nil {
		return domain.ErrUnauthenticated
	}

	token, err := newCSRFToken()
	if err != nil {
		return err
	}

	now := m.now()
	userID := user.ID
	next := *sc.session
	next.ID = newSessionID()
	next.UserID = &userID
	next.Username = user.Username
	next.CSRFToken = token
	next.LoginTime = &now
	next.LastActivity = now
	next.LastRegeneration = now

	if err := m.repo.Rotate(ctx, sc.session.ID, &next); err != nil {
		return fmt.Errorf("login: %w: %w", domain.ErrPersistence, err)
	}

	sc.session = &next
	sc.state = StateAuthenticated
	return nil
}

// Touch records activity on an authenticated session, ending it when it has
// been idle longer than the timeout.
func (m *SessionManager) Touch(ctx context.Context, sc *SessionContext) error {
	if !sc.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}

	now := m.now()
	if now.Sub(sc.session.LastActivity) > m.timeout {
		logging.SecurityEvent(ctx, m.log, "session_expired", "user_id", *sc.session.UserID)
		if err := m.end(ctx, sc, StateExpired); err != nil {
			return err
		}
		return domain.ErrSessionExpired
	}

	sc.session.LastActivity = now
	if err := m.repo.Update(ctx, sc.session); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			sc.session = nil
			sc.state = StateLoggedOut
			return domain.ErrUnauthenticated
		}
		return fmt.Errorf("touch session: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// RotateIfStale moves the session to a new id, keeping its contents, once the
// current id is older than the regeneration interval.
func (m *SessionManager) RotateIfStale(ctx context.Context, sc *SessionContext) error {
	if sc.session == nil || m.regenerateAfter <= 0 {
		return nil
	}

	now := m.now()
	if now.Sub(sc.session.LastRegeneration) <= m.regenerateAfter {
		return nil
	}

	next := *sc.session
	next.ID = newSessionID()
	next.LastRegeneration = now
	if err := m.repo.Rotate(ctx, sc.session.ID, &next); err != nil {
		return fmt.Errorf("rotate session: %w: %w", domain.ErrPersistence, err)
	}
	sc.session = &next
	return nil
}

// Logout is terminal. The context is cleared even if the store delete fails.
func (m *SessionManager) Logout(ctx context.Context, sc *SessionContext) error {
	return m.end(ctx, sc, StateLoggedOut)
}

func (m *SessionManager) end(ctx context.Context, sc *SessionContext, state SessionState) error {
	id := sc.ID()
	sc.session = nil
	sc.state = state
	if id == "" {
		return nil
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		m.log.ErrorContext(ctx, "failed to delete session", "error", err)
		return fmt.Errorf("end session: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// IssueCSRFToken returns the session's token, creating it on first use.
func (m *SessionManager) IssueCSRFToken(ctx context.Context, sc *SessionContext) (string, error) {
	if sc.session == nil {
		return "", domain.ErrUnauthenticated
	}
	if sc.session.CSRFToken != "" {
		return sc.session.CSRFToken, nil
	}

	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	sc.session.CSRFToken = token
	if err := m.repo.Update(ctx, sc.session); err != nil {
		sc.session.CSRFToken = ""
		return "", fmt.Errorf("issue csrf token: %w: %w", domain.ErrPersistence, err)
	}
	return token, nil
}

func (m *SessionManager) VerifyCSRFToken(sc *SessionContext, token string) bool {
	if sc == nil || sc.session == nil || sc.session.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sc.session.CSRFToken), []byte(token)) == 1
}

func newSessionID() string {
	return uuid.New().String()
}

func newCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
