package repository

import (
	"context"
	"errors"
	"fmt"

	"noblechain/database"
	"noblechain/models"

	"github.com/jackc/pgx/v5"
)

// WalletRepository implements the WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

// Create inserts the wallet row and its holdings
func (r *WalletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	query := `INSERT INTO wallets (user_id, cash_balance) VALUES ($1, $2::numeric)`
	if _, err := r.q.Exec(ctx, query, wallet.UserID, wallet.CashBalance.String()); err != nil {
		return fmt.Errorf("failed to create wallet for user %s: %w", wallet.UserID, err)
	}
	return r.saveHoldings(ctx, wallet)
}

// GetByUserID retrieves a wallet with its holdings
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.get(ctx, `SELECT user_id, cash_balance::text FROM wallets WHERE user_id = $1`, userID)
}

// GetForUpdate retrieves a wallet and holds a row lock until the transaction ends
func (r *WalletRepository) GetForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.get(ctx, `SELECT user_id, cash_balance::text FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *WalletRepository) get(ctx context.Context, query, userID string) (*models.Wallet, error) {
	var cash string
	wallet := models.NewWallet(userID)
	err := r.q.QueryRow(ctx, query, userID).Scan(&wallet.UserID, &cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for user %s: %w", userID, err)
	}
	if wallet.CashBalance, err = parseDecimal(cash); err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT symbol, balance::text, average_cost::text
		FROM wallet_holdings
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings for user %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var symbol, balance, cost string
		if err := rows.Scan(&symbol, &balance, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h := &models.Holding{}
		if h.Balance, err = parseDecimal(balance); err != nil {
			return nil, err
		}
		if h.AverageCost, err = parseDecimal(cost); err != nil {
			return nil, err
		}
		wallet.Holdings[symbol] = h
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return wallet, nil
}

// Save persists the cash balance and upserts every holding
func (r *WalletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	query := `
		UPDATE wallets
		SET cash_balance = $1::numeric, updated_at = NOW()
		WHERE user_id = $2
	`
	result, err := r.q.Exec(ctx, query, wallet.CashBalance.String(), wallet.UserID)
	if err != nil {
		return fmt.Errorf("failed to save wallet for user %s: %w", wallet.UserID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet for user %s not found", wallet.UserID)
	}
	return r.saveHoldings(ctx, wallet)
}

func (r *WalletRepository) saveHoldings(ctx context.Context, wallet *models.Wallet) error {
	query := `
		INSERT INTO wallet_holdings (user_id, symbol, balance, average_cost)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		ON CONFLICT (user_id, symbol) DO UPDATE
		SET balance = EXCLUDED.balance, average_cost = EXCLUDED.average_cost
	`
	for symbol, h := range wallet.Holdings {
		if _, err := r.q.Exec(ctx, query, wallet.UserID, symbol, h.Balance.String(), h.AverageCost.String()); err != nil {
			return fmt.Errorf("failed to save holding %s for user %s: %w", symbol, wallet.UserID, err)
		}
	}
	return nil
}
