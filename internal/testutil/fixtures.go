package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword satisfies every password rule
const DefaultPassword = "Abcdef12"

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		username: fmt.Sprintf("user_%s", uuid.New().String()[:8]),
		password: DefaultPassword,
	}
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.username = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build stores the user through the repository so existing tasks are backfilled,
// and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, repos *repository.Repositories) (*domain.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Username:     b.username,
		PasswordHash: string(hash),
	}
	if err := repos.User.CreateWithBackfill(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// TaskBuilder creates shared tasks with a builder pattern
type TaskBuilder struct {
	title       string
	description string
	creator     *domain.User
}

// NewTaskBuilder creates a new TaskBuilder with default values
func NewTaskBuilder() *TaskBuilder {
	return &TaskBuilder{
		title: fmt.Sprintf("task %s", uuid.New().String()[:8]),
	}
}

// WithTitle sets the task title
func (b *TaskBuilder) WithTitle(title string) *TaskBuilder {
	b.title = title
	return b
}

// WithDescription sets the task description
func (b *TaskBuilder) WithDescription(description string) *TaskBuilder {
	b.description = description
	return b
}

// WithCreator sets the task creator
func (b *TaskBuilder) WithCreator(user *domain.User) *TaskBuilder {
	b.creator = user
	return b
}

// Build creates the task and one progress row per existing user
func (b *TaskBuilder) Build(t *testing.T, repos *repository.Repositories) *domain.SharedTask {
	t.Helper()

	if b.creator == nil {
		b.creator, _ = NewUserBuilder().Build(t, repos)
	}

	task := &domain.SharedTask{
		Title:       b.title,
		Description: b.description,
		CreatedBy:   b.creator.ID,
	}
	if err := repos.Task.CreateWithParticipants(context.Background(), task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	return task
}
