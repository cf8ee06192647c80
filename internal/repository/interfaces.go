package repository

import (
	"context"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
)

type UserRepository interface {
	// CreateWithBackfill stores the user and gives them a pending progress row
	// for every existing task, all in one transaction.
	CreateWithBackfill(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListRoster returns users ordered by id.
	ListRoster(ctx context.Context, limit int) ([]*domain.User, error)
}

type TaskRepository interface {
	// CreateWithParticipants stores the task and one pending progress row per
	// current user, all in one transaction.
	CreateWithParticipants(ctx context.Context, task *domain.SharedTask) error
	UpdateProgress(ctx context.Context, taskID, userID uint, isCompleted bool, notes *string, at time.Time) error
	ListWithProgress(ctx context.Context, userID uint) ([]domain.TaskView, error)
	CountProgress(ctx context.Context, userID uint) (completed, total int64, err error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	// Rotate replaces oldID with session.ID atomically.
	Rotate(ctx context.Context, oldID string, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteIdle(ctx context.Context, lastActivityBefore time.Time) error
}

type RateLimitRepository interface {
	Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error)
	Create(ctx context.Context, entry *domain.RateLimitEntry, window time.Duration) error
	Increment(ctx context.Context, identifier string, at time.Time) error
	DeleteExpired(ctx context.Context, identifier string, windowStart time.Time) error
	// PurgeExpired removes entries of every identifier whose window started
	// before the given time.
	PurgeExpired(ctx context.Context, before time.Time) error
}

type Repositories struct {
	User      UserRepository
	Task      TaskRepository
	Session   SessionRepository
	RateLimit RateLimitRepository
}
