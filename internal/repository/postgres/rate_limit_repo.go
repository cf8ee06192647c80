package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"gorm.io/gorm"
)

type rateLimitRepository struct {
	db *gorm.DB
}

func NewRateLimitRepository(db *gorm.DB) *rateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error) {
	var entry domain.RateLimitEntry
	err := r.db.WithContext(ctx).First(&entry, "identifier = ?", identifier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Create ignores window; expired rows are purged by DeleteExpired.
func (r *rateLimitRepository) Create(ctx context.Context, entry *domain.RateLimitEntry, _ time.Duration) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *rateLimitRepository) Increment(ctx context.Context, identifier string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.RateLimitEntry{}).
		Where("identifier = ?", identifier).
		UpdateColumns(map[string]any{
			"attempts":     gorm.Expr("attempts + 1"),
			"last_attempt": at,
		}).Error
}

func (r *rateLimitRepository) DeleteExpired(ctx context.Context, identifier string, windowStart time.Time) error {
	return r.db.WithContext(ctx).
		Delete(&domain.RateLimitEntry{}, "identifier = ? AND first_attempt < ?", identifier, windowStart).Error
}

func (r *rateLimitRepository) PurgeExpired(ctx context.Context, before time.Time) error {
	return r.db.WithContext(ctx).
		Delete(&domain.RateLimitEntry{}, "first_attempt < ?", before).Error
}
