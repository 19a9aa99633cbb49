package service

import (
	"context"
	"fmt"
	"time"

	"noblechain/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const demoPassword = "password"

var (
	demoBTCUnit = decimal.RequireFromString("0.01")
	demoBTCCost = decimal.NewFromInt(40000)
)

// SeedDemoData creates count demo users when no users exist yet.
// It returns the number of users created.
func SeedDemoData(ctx context.Context, uowFactory UnitOfWorkFactory, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.UserRepository().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.MinCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash demo password: %w", err)
	}

	now := time.Now().UTC()
	for i := 1; i <= count; i++ {
		lastLogin := now.Add(-time.Duration(i) * time.Hour)
		user := &models.User{
			ID:                newID(),
			Email:             fmt.Sprintf("demo%d@example.com", i),
			Username:          fmt.Sprintf("demo_user_%d", i),
			PasswordHash:      string(hash),
			CreatedAt:         now.Add(-time.Duration(i) * 24 * time.Hour),
			LastLogin:         &lastLogin,
			HasLoggedInBefore: true,
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return 0, fmt.Errorf("failed to create demo user %s: %w", user.Username, err)
		}

		cash := decimal.NewFromInt(int64(1000 * i))
		wallet := models.NewWallet(user.ID)
		wallet.CashBalance = cash
		wallet.Holdings["BTC"] = &models.Holding{
			Balance:     demoBTCUnit.Mul(decimal.NewFromInt(int64(i))),
			AverageCost: demoBTCCost,
		}
		if err := uow.WalletRepository().Create(ctx, wallet); err != nil {
			return 0, fmt.Errorf("failed to create demo wallet: %w", err)
		}

		tx := &models.Transaction{
			ID:        newID(),
			UserID:    user.ID,
			Type:      models.TransactionTypeReceive,
			Asset:     models.CashAsset,
			Amount:    cash,
			Timestamp: lastLogin,
			Status:    models.TransactionStatusCompleted,
		}
		if err := uow.TransactionRepository().Record(ctx, tx); err != nil {
			return 0, fmt.Errorf("failed to record demo transaction: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("count", count).Info("Seeded demo users")
	return count, nil
}
