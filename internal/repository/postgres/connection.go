package postgres

import (
	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates every table the tracker owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.SharedTask{},
		&domain.UserTaskProgress{},
		&domain.Session{},
		&domain.RateLimitEntry{},
	)
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:      NewUserRepository(db),
		Task:      NewTaskRepository(db),
		Session:   NewSessionRepository(db),
		RateLimit: NewRateLimitRepository(db),
	}
}
