package repository

import (
	"context"
	"errors"
	"fmt"

	"noblechain/database"
	"noblechain/events"
	"noblechain/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	walletRepo       service.WalletRepository
	transactionRepo  service.TransactionRepository
	auditRepo        service.LoginAuditRepository
	sessionRepo      service.SessionRepository
	notificationRepo service.NotificationRepository
	pinRepo          service.PinRepository
	supportRepo      service.SupportChatRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepositoryWithTx(tx)
	u.walletRepo = newWalletRepositoryWithTx(tx)
	u.transactionRepo = newTransactionRepositoryWithTx(tx)
	u.auditRepo = newLoginAuditRepositoryWithTx(tx)
	u.sessionRepo = newSessionRepositoryWithTx(tx)
	u.notificationRepo = newNotificationRepositoryWithTx(tx)
	u.pinRepo = newPinRepositoryWithTx(tx)
	u.supportRepo = newSupportChatRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) mustBegin() {
	if u.tx == nil {
		panic("unit of work not started - call Begin() first")
	}
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	u.mustBegin()
	return u.userRepo
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	u.mustBegin()
	return u.walletRepo
}

// TransactionRepository returns the transaction log for this unit of work
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

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	u.mustBegin()
	return u.transactionalBus
}
