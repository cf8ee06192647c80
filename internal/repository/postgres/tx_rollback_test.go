package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestTaskRepository_CreateWithParticipants_RollsBack(t *testing.T) {
	t.Run("roster lock fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := postgres.NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err := repo.CreateWithParticipants(context.Background(), &domain.SharedTask{Title: "t", CreatedBy: 1})
		assert.ErrorContains(t, err, "lock timeout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("participant lookup fails after insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := postgres.NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "shared_tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT "id" FROM "users"`).WillReturnError(errors.New("db down"))
		mock.ExpectRollback()

		err := repo.CreateWithParticipants(context.Background(), &domain.SharedTask{Title: "t", CreatedBy: 1})
		assert.ErrorContains(t, err, "db down")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_CreateWithBackfill_RollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO user_task_progress`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.CreateWithBackfill(context.Background(), &domain.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
