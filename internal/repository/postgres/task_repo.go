package postgres

import (
	"context"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateWithParticipants(ctx context.Context, task *domain.SharedTask) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRoster(tx); err != nil {
			return err
		}

		if err := tx.Create(task).Error; err != nil {
			return err
		}

		var userIDs []uint
		if err := tx.Model(&domain.User{}).Order("id").Pluck("id", &userIDs).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}

		rows := make([]*domain.UserTaskProgress, 0, len(userIDs))
		for _, userID := range userIDs {
			rows = append(rows, &domain.UserTaskProgress{
				TaskID:      task.ID,
				UserID:      userID,
				IsCompleted: false,
			})
		}
		return tx.Create(&rows).Error
	})
}

func (r *taskRepository) UpdateProgress(ctx context.Context, taskID, userID uint, isCompleted bool, notes *string, at time.Time) error {
	var completedAt any
	if isCompleted {
		completedAt = at
	}

	updates := map[string]any{
		"is_completed": isCompleted,
		"completed_at": completedAt,
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := r.db.WithContext(ctx).
		Model(&domain.UserTaskProgress{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const listWithProgressQuery = `
SELECT
	st.id,
	st.title,
	COALESCE(st.description, '') AS description,
	st.created_by,
	st.created_at,
	COALESCE(creator.username, '') AS created_by_name,
	COALESCE(mine.is_completed, FALSE) AS is_completed,
	mine.completed_at,
	COALESCE(mine.notes, '') AS notes,
	(SELECT COUNT(*) FROM user_task_progress p WHERE p.task_id = st.id AND p.is_completed) AS total_completed,
	(SELECT COUNT(*) FROM user_task_progress p WHERE p.task_id = st.id) AS total_assigned
FROM shared_tasks st
LEFT JOIN user_task_progress mine ON mine.task_id = st.id AND mine.user_id = ?
LEFT JOIN users creator ON creator.id = st.created_by
ORDER BY st.created_at DESC, st.id DESC`

func (r *taskRepository) ListWithProgress(ctx context.Context, userID uint) ([]domain.TaskView, error) {
	views := []domain.TaskView{}
	if err := r.db.WithContext(ctx).Raw(listWithProgressQuery, userID).Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *taskRepository) CountProgress(ctx context.Context, userID uint) (int64, int64, error) {
	var counts struct {
		Completed int64
		Total     int64
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) FILTER (WHERE is_completed) AS completed,
			COUNT(*) AS total
		 FROM user_task_progress WHERE user_id = ?`,
		userID,
	).Scan(&counts).Error
	if err != nil {
		return 0, 0, err
	}
	return counts.Completed, counts.Total, nil
}
