package repository

import (
	"context"
	"testing"
	"time"

	"noblechain/repository/testutil"
	"noblechain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.CreateTestUser("u1", "alice")
		require.NoError(t, repo.Create(ctx, user))

		byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, "u1", byEmail.ID)
		assert.False(t, byEmail.HasLoggedInBefore)
		assert.Nil(t, byEmail.LastLogin)

		byName, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, byName)
		assert.Equal(t, byEmail.Email, byName.Email)

		missing, err := repo.GetByID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("duplicates map to service errors", func(t *testing.T) {
		testDB.Truncate(t)

		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser("u1", "alice")))

		dupEmail := testutil.CreateTestUser("u2", "alice2")
		dupEmail.Email = "alice@example.com"
		assert.ErrorIs(t, repo.Create(ctx, dupEmail), service.ErrDuplicateEmail)

		dupName := testutil.CreateTestUser("u3", "alice")
		dupName.Email = "other@example.com"
		assert.ErrorIs(t, repo.Create(ctx, dupName), service.ErrDuplicateUsername)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("mark first login flips once", func(t *testing.T) {
		testDB.Truncate(t)

		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser("u1", "alice")))

		first, err := repo.MarkFirstLogin(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, first)

		again, err := repo.MarkFirstLogin(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("update last login and list in order", func(t *testing.T) {
		testDB.Truncate(t)

		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser("u1", "alice")))
		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser("u2", "bob")))

		user, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		now := time.Now().UTC().Truncate(time.Microsecond)
		user.LastLogin = &now
		require.NoError(t, repo.Update(ctx, user))

		users, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "bob", users[1].Username)
		require.NotNil(t, users[0].LastLogin)
		assert.True(t, now.Equal(*users[0].LastLogin))
	})
}
