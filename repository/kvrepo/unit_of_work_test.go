package kvrepo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"noblechain/events"
	"noblechain/kvstore"
	"noblechain/models"
	"noblechain/repository/testutil"
	"noblechain/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func begin(t *testing.T, factory service.UnitOfWorkFactory) service.UnitOfWork {
	t.Helper()
	uow := factory.Create()
	require.NoError(t, uow.Begin(context.Background()))
	return uow
}

func TestUnitOfWork_CommitPersistsAndFlushesEvents(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(store, bus)

	var delivered atomic.Int32
	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, e events.Event) {
		delivered.Add(1)
	})

	uow := begin(t, factory)
	require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("u1", "alice")))
	uow.EventBus().Publish(events.UserRegisteredEvent{UserID: "u1"})

	// Staged writes are not in the base store yet
	_, err := store.Get(ctx, userKey("u1"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, uow.Commit())
	bus.Wait()

	assert.Equal(t, int32(1), delivered.Load())

	read := begin(t, factory)
	defer read.Rollback()
	user, err := read.UserRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), bus)

	var delivered atomic.Int32
	bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		delivered.Add(1)
	})

	uow := begin(t, factory)
	require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("u1", "alice")))
	uow.EventBus().Publish(events.UserRegisteredEvent{UserID: "u1"})
	require.NoError(t, uow.Rollback())
	bus.Wait()

	assert.Equal(t, int32(0), delivered.Load())

	read := begin(t, factory)
	defer read.Rollback()
	count, err := read.UserRepository().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// rejectingStore fails every batch write
type rejectingStore struct {
	*kvstore.MemoryStore
	batches atomic.Int32
}

func (s *rejectingStore) Apply(ctx context.Context, ops []kvstore.Op) error {
	s.batches.Add(1)
	return fmt.Errorf("storage quota exceeded")
}

func TestUnitOfWork_FailedCommitWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := &rejectingStore{MemoryStore: kvstore.NewMemoryStore()}
	bus := events.NewBus()
	factory := NewUnitOfWorkFactory(store, bus)

	var delivered atomic.Int32
	bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		delivered.Add(1)
	})

	uow := begin(t, factory)
	require.NoError(t, uow.WalletRepository().Save(ctx, testutil.CreateTestWallet("alice", 60)))
	require.NoError(t, uow.WalletRepository().Save(ctx, testutil.CreateTestWallet("bob", 40)))
	require.NoError(t, uow.TransactionRepository().Record(ctx, testutil.CreateTestTransaction("t1", "alice", models.TransactionTypeSend, 40)))
	uow.EventBus().Publish(events.UserRegisteredEvent{UserID: "alice"})

	err := uow.Commit()
	require.Error(t, err)
	assert.Equal(t, "failed to apply staged writes: storage quota exceeded", err.Error())
	assert.Equal(t, int32(1), store.batches.Load(), "all staged writes go out in one batch")
	bus.Wait()
	assert.Equal(t, int32(0), delivered.Load())

	_, err = store.Get(ctx, walletKey("alice"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	_, err = store.Get(ctx, walletKey("bob"))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	// the factory lock was released
	next := begin(t, factory)
	assert.NoError(t, next.Rollback())
}

func TestUnitOfWork_RollbackAfterCommitIsNoop(t *testing.T) {
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())
	uow := begin(t, factory)
	require.NoError(t, uow.Commit())
	assert.NoError(t, uow.Rollback())

	// The factory lock was released, so a new unit of work can start
	next := begin(t, factory)
	assert.NoError(t, next.Rollback())
}

func TestUnitOfWork_RepositoriesRequireBegin(t *testing.T) {
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())
	uow := factory.Create()
	assert.PanicsWithValue(t, "unit of work not started - call Begin() first", func() {
		uow.WalletRepository()
	})
}

func TestUnitOfWork_Serialises(t *testing.T) {
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())
	first := begin(t, factory)

	started := make(chan struct{})
	go func() {
		second := factory.Create()
		if err := second.Begin(context.Background()); err != nil {
			return
		}
		close(started)
		second.Rollback()
	}()

	select {
	case <-started:
		t.Fatal("second unit of work began while the first was open")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Rollback())
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("second unit of work never began")
	}
}

func TestUserRepository_Duplicates(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())

	uow := begin(t, factory)
	require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("u1", "alice")))
	require.NoError(t, uow.Commit())

	uow = begin(t, factory)
	defer uow.Rollback()

	sameEmail := testutil.CreateTestUser("u2", "alice2")
	sameEmail.Email = "alice@example.com"
	assert.ErrorIs(t, uow.UserRepository().Create(ctx, sameEmail), service.ErrDuplicateEmail)

	sameName := testutil.CreateTestUser("u3", "alice")
	sameName.Email = "other@example.com"
	assert.ErrorIs(t, uow.UserRepository().Create(ctx, sameName), service.ErrDuplicateUsername)
}

func TestUserRepository_MarkFirstLoginOnce(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())

	uow := begin(t, factory)
	require.NoError(t, uow.UserRepository().Create(ctx, testutil.CreateTestUser("u1", "alice")))
	first, err := uow.UserRepository().MarkFirstLogin(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, first)

	// Update must not reset the flag
	user, err := uow.UserRepository().GetByID(ctx, "u1")
	require.NoError(t, err)
	user.HasLoggedInBefore = false
	now := time.Now().UTC()
	user.LastLogin = &now
	require.NoError(t, uow.UserRepository().Update(ctx, user))

	again, err := uow.UserRepository().MarkFirstLogin(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, again)
	require.NoError(t, uow.Commit())
}

func TestWalletRepository_DecimalRoundTrip(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())

	wallet := testutil.CreateTestWallet("u1", 0)
	wallet.CashBalance = decimal.RequireFromString("100.25")
	wallet.Holdings["BTC"] = &models.Holding{
		Balance:     decimal.RequireFromString("0.00000001"),
		AverageCost: decimal.NewFromInt(40000),
	}

	uow := begin(t, factory)
	require.NoError(t, uow.WalletRepository().Create(ctx, wallet))
	require.NoError(t, uow.Commit())

	uow = begin(t, factory)
	defer uow.Rollback()
	got, err := uow.WalletRepository().GetForUpdate(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "100.25", got.CashBalance.String())
	assert.Equal(t, "0.00000001", got.Holdings["BTC"].Balance.String())

	missing, err := uow.WalletRepository().GetByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNotificationRepository_CapAndOrder(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())

	// Spread across units of work so both the staged and stored paths are trimmed
	for i := 1; i <= 5; i++ {
		uow := begin(t, factory)
		n := testutil.CreateTestNotification(fmt.Sprintf("n%d", i), "u1", fmt.Sprintf("notice %d", i))
		require.NoError(t, uow.NotificationRepository().Add(ctx, n, 3))
		if i == 5 {
			extra := testutil.CreateTestNotification("n6", "u1", "notice 6")
			require.NoError(t, uow.NotificationRepository().Add(ctx, extra, 3))
			staged, err := uow.NotificationRepository().GetByRecipient(ctx, "u1")
			require.NoError(t, err)
			assert.Len(t, staged, 3)
		}
		require.NoError(t, uow.Commit())
	}

	uow := begin(t, factory)
	defer uow.Rollback()
	list, err := uow.NotificationRepository().GetByRecipient(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"n6", "n5", "n4"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestSessionRepository_ReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())

	uow := begin(t, factory)
	require.NoError(t, uow.SessionRepository().Save(ctx, &models.Session{Token: "t1", UserID: "u1"}))
	require.NoError(t, uow.Commit())

	uow = begin(t, factory)
	require.NoError(t, uow.SessionRepository().Save(ctx, &models.Session{Token: "t2", UserID: "u1"}))
	require.NoError(t, uow.Commit())

	uow = begin(t, factory)
	old, err := uow.SessionRepository().GetByToken(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, old)

	current, err := uow.SessionRepository().GetByToken(ctx, "t2")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "u1", current.UserID)

	require.NoError(t, uow.SessionRepository().Delete(ctx, "u1"))
	require.NoError(t, uow.Commit())

	uow = begin(t, factory)
	defer uow.Rollback()
	gone, err := uow.SessionRepository().GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestLogRepositories_OldestFirst(t *testing.T) {
	ctx := context.Background()
	factory := NewUnitOfWorkFactory(kvstore.NewMemoryStore(), events.NewBus())

	uow := begin(t, factory)
	require.NoError(t, uow.TransactionRepository().Record(ctx, testutil.CreateTestTransaction("t1", "u1", models.TransactionTypeDeposit, 10)))
	require.NoError(t, uow.TransactionRepository().Record(ctx, testutil.CreateTestTransaction("t2", "u2", models.TransactionTypeDeposit, 20)))
	require.NoError(t, uow.TransactionRepository().Record(ctx, testutil.CreateTestTransaction("t3", "u1", models.TransactionTypeSend, 5)))
	require.NoError(t, uow.LoginAuditRepository().Record(ctx, &models.LoginAudit{ID: "a1", Email: "ghost@x.com"}))
	require.NoError(t, uow.SupportChatRepository().Record(ctx, &models.SupportMessage{ID: "s1", UserID: "u1", Message: "hi"}))
	require.NoError(t, uow.Commit())

	uow = begin(t, factory)
	defer uow.Rollback()

	mine, err := uow.TransactionRepository().GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "t1", mine[0].ID)
	assert.Equal(t, "t3", mine[1].ID)

	all, err := uow.TransactionRepository().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	audits, err := uow.LoginAuditRepository().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Empty(t, audits[0].UserID)

	chats, err := uow.SupportChatRepository().GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}
