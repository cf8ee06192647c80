package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/repository/postgres"
	"github.com/dom/progress-tracker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateWithBackfill(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	t.Run("duplicate username", func(t *testing.T) {
		testDB.Truncate(t)

		require.NoError(t, repos.User.CreateWithBackfill(ctx, &domain.User{Username: "alice", PasswordHash: "x"}))

		err := repos.User.CreateWithBackfill(ctx, &domain.User{Username: "alice", PasswordHash: "y"})
		assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	})

	t.Run("late joiner receives every existing task", func(t *testing.T) {
		testDB.Truncate(t)

		creator, _ := testutil.NewUserBuilder().WithUsername("creator").Build(t, repos)
		first := testutil.NewTaskBuilder().WithCreator(creator).WithTitle("first").Build(t, repos)
		second := testutil.NewTaskBuilder().WithCreator(creator).WithTitle("second").Build(t, repos)

		joiner, _ := testutil.NewUserBuilder().WithUsername("joiner").Build(t, repos)

		var rows []domain.UserTaskProgress
		require.NoError(t, testDB.DB.Where("user_id = ?", joiner.ID).Order("task_id").Find(&rows).Error)
		require.Len(t, rows, 2)
		assert.Equal(t, first.ID, rows[0].TaskID)
		assert.Equal(t, second.ID, rows[1].TaskID)
		for _, row := range rows {
			assert.False(t, row.IsCompleted)
			assert.Nil(t, row.CompletedAt)
		}
	})
}

func TestUserRepository_Lookups(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithUsername("lookup_user").Build(t, repos)

	t.Run("by id", func(t *testing.T) {
		got, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "lookup_user", got.Username)
	})

	t.Run("by username", func(t *testing.T) {
		got, err := repos.User.GetByUsername(ctx, "lookup_user")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repos.User.GetByID(ctx, user.ID+100)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repos.User.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUserRepository_ListRoster(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	a, _ := testutil.NewUserBuilder().WithUsername("a").Build(t, repos)
	b, _ := testutil.NewUserBuilder().WithUsername("b").Build(t, repos)
	testutil.NewUserBuilder().WithUsername("c").Build(t, repos)

	roster, err := repos.User.ListRoster(ctx, 2)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, a.ID, roster[0].ID)
	assert.Equal(t, b.ID, roster[1].ID)
}
