package repository

import (
	"context"
	"testing"

	"noblechain/events"
	"noblechain/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitAndRollback(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	ctx := context.Background()
	testDB.Truncate(t)

	var received []events.Event
	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, e events.Event) {
		received = append(received, e)
	})

	t.Run("rollback discards writes and events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("u1", "alice")))
		uow.EventBus().Publish(events.UserRegisteredEvent{UserID: "u1"})
		require.NoError(t, uow.Rollback())

		bus.Wait()
		assert.Empty(t, received)

		user, err := NewUserRepository(testDB.DB).GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("commit persists and flushes events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("u1", "alice")))
		uow.EventBus().Publish(events.UserRegisteredEvent{UserID: "u1"})
		require.NoError(t, uow.Commit())
		require.NoError(t, uow.Rollback())

		bus.Wait()
		assert.Len(t, received, 1)

		user, err := NewUserRepository(testDB.DB).GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.NotNil(t, user)
	})

	t.Run("repository access before begin panics", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.UserRepository() })
	})
}
