package testutil

import (
	"fmt"
	"time"

	"noblechain/models"

	"github.com/shopspring/decimal"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(id, username string) *models.User {
	return &models.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateTestWallet creates a wallet holding only cash
func CreateTestWallet(userID string, cash int64) *models.Wallet {
	wallet := models.NewWallet(userID)
	wallet.CashBalance = decimal.NewFromInt(cash)
	return wallet
}

// CreateTestTransaction creates a completed transaction
func CreateTestTransaction(id, userID string, txType models.TransactionType, amount int64) *models.Transaction {
	return &models.Transaction{
		ID:        id,
		UserID:    userID,
		Type:      txType,
		Asset:     models.CashAsset,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Status:    models.TransactionStatusCompleted,
		Metadata: map[string]any{
			"test": true,
		},
	}
}

// CreateTestNotification creates an unread notification
func CreateTestNotification(id, recipientID, title string) *models.Notification {
	return &models.Notification{
		ID:          id,
		RecipientID: recipientID,
		Title:       title,
		Message:     title + " body",
		Category:    models.NotificationCategoryInfo,
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
	}
}
