package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"noblechain/database"
	"noblechain/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the append-only transaction log
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends a transaction
func (r *TransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	var metadata []byte
	if tx.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(tx.Metadata); err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	query := `
		INSERT INTO transactions (id, user_id, type, asset, amount, counterparty, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
	`
	_, err := r.q.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Type,
		tx.Asset,
		tx.Amount.String(),
		tx.Counterparty,
		tx.Status,
		metadata,
		tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction for user %s: %w", tx.UserID, err)
	}
	return nil
}

const transactionSelect = `
	SELECT id, user_id, type, asset, amount::text, counterparty, status, metadata, created_at
	FROM transactions
`

// GetByUser returns a user's transactions oldest first
func (r *TransactionRepository) GetByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, transactionSelect+` WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %s: %w", userID, err)
	}
	return collectTransactions(rows)
}

// GetAll returns every transaction oldest first
func (r *TransactionRepository) GetAll(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, transactionSelect+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var (
			tx       models.Transaction
			amount   string
			metadata []byte
		)
		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Type,
			&tx.Asset,
			&amount,
			&tx.Counterparty,
			&tx.Status,
			&metadata,
			&tx.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if tx.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}
		txs = append(txs, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}
