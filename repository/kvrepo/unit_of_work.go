// Package kvrepo implements the service repositories on top of a kvstore.Store.
// One record per key; collections are kvstore lists of records.
package kvrepo

import (
	"context"
	"fmt"
	"sync"

	"noblechain/events"
	"noblechain/kvstore"
	"noblechain/service"
)

// unitOfWork stages writes and holds the factory lock between Begin and
// Commit/Rollback, so units of work on one factory are serialised.
type unitOfWork struct {
	factory          *unitOfWorkFactory
	ctx              context.Context
	staged           *stagedStore
	transactionalBus *events.TransactionalBus
	active           bool

	userRepo         *userRepository
	walletRepo       *walletRepository
	transactionRepo  *transactionRepository
	auditRepo        *loginAuditRepository
	sessionRepo      *sessionRepository
	notificationRepo *notificationRepository
	pinRepo          *pinRepository
	supportRepo      *supportChatRepository
}

type unitOfWorkFactory struct {
	store    kvstore.Store
	eventBus *events.Bus
	mu       sync.Mutex
}

// NewUnitOfWorkFactory creates a UnitOfWork factory over a KV store
func NewUnitOfWorkFactory(store kvstore.Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		factory:          f,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new unit of work
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}

	u.factory.mu.Lock()
	u.active = true
	u.ctx = ctx
	u.staged = newStagedStore(u.factory.store)

	u.userRepo = &userRepository{s: u.staged}
	u.walletRepo = &walletRepository{s: u.staged}
	u.transactionRepo = &transactionRepository{s: u.staged}
	u.auditRepo = &loginAuditRepository{s: u.staged}
	u.sessionRepo = &sessionRepository{s: u.staged}
	u.notificationRepo = &notificationRepository{s: u.staged}
	u.pinRepo = &pinRepository{s: u.staged}
	u.supportRepo = &supportChatRepository{s: u.staged}

	return nil
}

// Commit applies staged writes and flushes pending events
func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.staged.apply(u.ctx)
	u.active = false
	u.factory.mu.Unlock()

	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to apply staged writes: %w", err)
	}

	u.transactionalBus.Flush(u.ctx)
	return nil
}

// Rollback drops staged writes
func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil
	}

	u.staged = nil
	u.active = false
	u.factory.mu.Unlock()
	u.transactionalBus.Discard()
	return nil
}

func (u *unitOfWork) mustBegin() {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	u.mustBegin()
	return u.userRepo
}

func (u *unitOfWork) WalletRepository() service.WalletRepository {
	u.mustBegin()
	return u.walletRepo
}

func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	u.mustBegin()
	return u.transactionRepo
}

func (u *unitOfWork) LoginAuditRepository() service.LoginAuditRepository {
	u.mustBegin()
	return u.auditRepo
}

func (u *unitOfWork) SessionRepository() service.SessionRepository {
	u.mustBegin()
	return u.sessionRepo
}

func (u *unitOfWork) NotificationRepository() service.NotificationRepository {
	u.mustBegin()
	return u.notificationRepo
}

func (u *unitOfWork) PinRepository() service.PinRepository {
	u.mustBegin()
	return u.pinRepo
}

func (u *unitOfWork) SupportChatRepository() service.SupportChatRepository {
	u.mustBegin()
	return u.supportRepo
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	u.mustBegin()
	return u.transactionalBus
}
