package service

import (
	"context"
	"fmt"
	"math"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository"
)

// rosterSize is the number of participants the comparison view assumes.
// The counterpart lookup is only meaningful for two.
const rosterSize = 2

const unknownParticipantName = "Other User"

type TeamProgress struct {
	FullyCompleted int `json:"fully_completed"`
	InProgress     int `json:"in_progress"`
}

type ParticipantProgress struct {
	UserID         uint    `json:"id,omitempty"`
	Username       string  `json:"username"`
	Progress       float64 `json:"progress"`
	CompletedTasks int64   `json:"completed_tasks"`
}

type Dashboard struct {
	Username         string               `json:"username"`
	Tasks            []domain.TaskView    `json:"tasks"`
	MyProgress       float64              `json:"my_progress"`
	MyCompletedTasks int                  `json:"my_completed_tasks"`
	TotalTasks       int                  `json:"total_tasks"`
	OtherUser        *ParticipantProgress `json:"other_user"`
	Team             TeamProgress         `json:"team"`
}

type ProgressService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
}

func NewProgressService(tasks repository.TaskRepository, users repository.UserRepository) *ProgressService {
	return &ProgressService{tasks: tasks, users: users}
}

// Percent is 100*completed/total rounded to one decimal, or 0 with no tasks.
func Percent(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)*1000/float64(total)) / 10
}

func (s *ProgressService) UserProgressPercent(ctx context.Context, userID uint) (float64, error) {
	completed, total, err := s.tasks.CountProgress(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count progress: %w: %w", domain.ErrPersistence, err)
	}
	return Percent(completed, total), nil
}

func (s *ProgressService) TeamProgress(tasks []domain.TaskView) TeamProgress {
	var team TeamProgress
	for _, t := range tasks {
		if t.FullyCompleted() {
			team.FullyCompleted++
		}
	}
	team.InProgress = len(tasks) - team.FullyCompleted
	return team
}

// CompletedCount counts tasks the viewer has completed.
func CompletedCount(tasks []domain.TaskView) int {
	n := 0
	for _, t := range tasks {
		if t.IsCompleted {
			n++
		}
	}
	return n
}

// OtherParticipantProgress resolves the counterpart as the first roster
// member that is not the current user.
func (s *ProgressService) OtherParticipantProgress(ctx context.Context, currentUserID uint) (*ParticipantProgress, error) {
	roster, err := s.users.ListRoster(ctx, rosterSize)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w: %w", domain.ErrPersistence, err)
	}

	var other *domain.User
	for _, u := range roster {
		if u.ID != currentUserID {
			other = u
			break
		}
	}
	if other == nil {
		return &ParticipantProgress{Username: unknownParticipantName}, nil
	}

	completed, total, err := s.tasks.CountProgress(ctx, other.ID)
	if err != nil {
		return nil, fmt.Errorf("count progress: %w: %w", domain.ErrPersistence, err)
	}

	return &ParticipantProgress{
		UserID:         other.ID,
		Username:       other.Username,
		Progress:       Percent(completed, total),
		CompletedTasks: completed,
	}, nil
}

func (s *ProgressService) Dashboard(ctx context.Context, userID uint, username string) (*Dashboard, error) {
	tasks, err := s.tasks.ListWithProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w: %w", domain.ErrPersistence, err)
	}

	mine, err := s.UserProgressPercent(ctx, userID)
	if err != nil {
		return nil, err
	}

	other, err := s.OtherParticipantProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Username:         username,
		Tasks:            tasks,
		MyProgress:       mine,
		MyCompletedTasks: CompletedCount(tasks),
		TotalTasks:       len(tasks),
		OtherUser:        other,
		Team:             s.TeamProgress(tasks),
	}, nil
}
