package service

import (
	"context"
	"fmt"
	"time"

	"noblechain/events"
	"noblechain/models"
)

// RecordTransaction appends a transaction inside uow and announces it once uow commits.
// This is the single entry point for every ledger-affecting record.
func RecordTransaction(ctx context.Context, uow UnitOfWork, tx *models.Transaction, fromTransfer bool) error {
	if tx.ID == "" {
		tx.ID = newID()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if tx.Status == "" {
		tx.Status = models.TransactionStatusCompleted
	}

	if err := uow.TransactionRepository().Record(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	uow.EventBus().Publish(events.TransactionRecordedEvent{
		Transaction:  *tx,
		FromTransfer: fromTransfer,
	})
	return nil
}

type transactionService struct {
	uowFactory UnitOfWorkFactory
}

// NewTransactionService creates a new transaction log service
func NewTransactionService(uowFactory UnitOfWorkFactory) TransactionService {
	return &transactionService{
		uowFactory: uowFactory,
	}
}

// Record appends tx and returns it with id, timestamp and status filled in
func (s *transactionService) Record(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := RecordTransaction(ctx, uow, tx, false); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tx, nil
}

// ListFor returns the user's transactions oldest first
func (s *transactionService) ListFor(ctx context.Context, userID string) ([]*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().GetByUser(ctx, userID)
}

func (s *transactionService) ListAll(ctx context.Context) ([]*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.TransactionRepository().GetAll(ctx)
}
