package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository/postgres"
	"github.com/dom/progress-tracker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRepository_CreateWithParticipants(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, repos)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, repos)

	task := testutil.NewTaskBuilder().WithCreator(alice).WithTitle("Write spec").Build(t, repos)
	require.NotZero(t, task.ID)

	var rows []domain.UserTaskProgress
	require.NoError(t, testDB.DB.Where("task_id = ?", task.ID).Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, alice.ID, rows[0].UserID)
	assert.Equal(t, bob.ID, rows[1].UserID)
	assert.False(t, rows[0].IsCompleted)
	assert.False(t, rows[1].IsCompleted)
}

func TestTaskRepository_UpdateProgress(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, repos)
	task := testutil.NewTaskBuilder().WithCreator(alice).Build(t, repos)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	load := func(t *testing.T) domain.UserTaskProgress {
		t.Helper()
		var row domain.UserTaskProgress
		require.NoError(t, testDB.DB.Where("task_id = ? AND user_id = ?", task.ID, alice.ID).First(&row).Error)
		return row
	}

	t.Run("complete with notes", func(t *testing.T) {
		notes := "done"
		require.NoError(t, repos.Task.UpdateProgress(ctx, task.ID, alice.ID, true, &notes, at))

		row := load(t)
		assert.True(t, row.IsCompleted)
		require.NotNil(t, row.CompletedAt)
		assert.True(t, row.CompletedAt.Equal(at))
		assert.Equal(t, "done", row.Notes)
	})

	t.Run("nil notes keep the stored notes", func(t *testing.T) {
		require.NoError(t, repos.Task.UpdateProgress(ctx, task.ID, alice.ID, false, nil, at))

		row := load(t)
		assert.False(t, row.IsCompleted)
		assert.Nil(t, row.CompletedAt)
		assert.Equal(t, "done", row.Notes)
	})

	t.Run("unknown task", func(t *testing.T) {
		err := repos.Task.UpdateProgress(ctx, task.ID+100, alice.ID, true, nil, at)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("user without a progress row", func(t *testing.T) {
		err := repos.Task.UpdateProgress(ctx, task.ID, alice.ID+100, true, nil, at)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTaskRepository_ListWithProgress(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().WithUsername("alice").Build(t, repos)
	bob, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, repos)

	older := testutil.NewTaskBuilder().WithCreator(alice).WithTitle("older").Build(t, repos)
	newer := testutil.NewTaskBuilder().WithCreator(bob).WithTitle("newer").WithDescription("details").Build(t, repos)

	require.NoError(t, repos.Task.UpdateProgress(ctx, older.ID, alice.ID, true, nil, time.Now()))
	require.NoError(t, repos.Task.UpdateProgress(ctx, older.ID, bob.ID, true, nil, time.Now()))
	require.NoError(t, repos.Task.UpdateProgress(ctx, newer.ID, bob.ID, true, nil, time.Now()))

	views, err := repos.Task.ListWithProgress(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// newest first
	assert.Equal(t, newer.ID, views[0].ID)
	assert.Equal(t, "bob", views[0].CreatedByName)
	assert.Equal(t, "details", views[0].Description)
	assert.False(t, views[0].IsCompleted)
	assert.Equal(t, 1, views[0].TotalCompleted)
	assert.Equal(t, 2, views[0].TotalAssigned)
	assert.False(t, views[0].FullyCompleted())

	assert.Equal(t, older.ID, views[1].ID)
	assert.True(t, views[1].IsCompleted)
	assert.NotNil(t, views[1].CompletedAt)
	assert.True(t, views[1].FullyCompleted())

	t.Run("counts", func(t *testing.T) {
		completed, total, err := repos.Task.CountProgress(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), completed)
		assert.Equal(t, int64(2), total)
	})

	t.Run("empty", func(t *testing.T) {
		testDB.Truncate(t)

		views, err := repos.Task.ListWithProgress(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, views)

		completed, total, err := repos.Task.CountProgress(ctx, alice.ID)
		require.NoError(t, err)
		assert.Zero(t, completed)
		assert.Zero(t, total)
	})
}
