package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository"
	"github.com/go-playground/validator/v10"
)

const maxTitleLength = 255

type TaskService struct {
	tasks    repository.TaskRepository
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger
}

func NewTaskService(tasks repository.TaskRepository, log *slog.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		validate: NewValidator(),
		now:      time.Now,
		log:      log,
	}
}

// CreateTask shares a new task with every participant. Either the task and
// all of its progress rows exist afterwards, or nothing does.
func (s *TaskService) CreateTask(ctx context.Context, creatorID uint, title, description string) (uint, error) {
	title = strings.TrimSpace(title)
	if err := s.validate.Var(title, fmt.Sprintf("required,max=%d,safe_text", maxTitleLength)); err != nil {
		return 0, domain.ErrInvalidTitle
	}
	if !isSafeText(description) {
		return 0, domain.ErrInvalidText
	}

	task := &domain.SharedTask{
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedBy:   creatorID,
		CreatedAt:   s.now(),
	}

	if err := s.tasks.CreateWithParticipants(ctx, task); err != nil {
		s.log.ErrorContext(ctx, "failed to create task", "creator_id", creatorID, "error", err)
		return 0, fmt.Errorf("create task: %w: %w", domain.ErrPersistence, err)
	}

	return task.ID, nil
}

// UpdateProgress changes only the caller's own row. A nil notes keeps the
// stored notes.
func (s *TaskService) UpdateProgress(ctx context.Context, taskID, userID uint, isCompleted bool, notes *string) error {
	if notes != nil {
		if !isSafeText(*notes) {
			return domain.ErrInvalidText
		}
		trimmed := strings.TrimSpace(*notes)
		notes = &trimmed
	}

	err := s.tasks.UpdateProgress(ctx, taskID, userID, isCompleted, notes, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s.log.ErrorContext(ctx, "failed to update progress", "task_id", taskID, "user_id", userID, "error", err)
		return fmt.Errorf("update progress: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *TaskService) ListTasksWithProgress(ctx context.Context, userID uint) ([]domain.TaskView, error) {
	views, err := s.tasks.ListWithProgress(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list tasks", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list tasks: %w: %w", domain.ErrPersistence, err)
	}
	return views, nil
}
