package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// rosterLockKey serializes changes to the participant roster with task
// fan-out, so a task never misses a user registered concurrently.
const rosterLockKey int64 = 0x5452434b

func lockRoster(tx *gorm.DB) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", rosterLockKey).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
