package kvrepo

import (
	"context"
	"fmt"

	"noblechain/models"
)

type walletRepository struct {
	s *stagedStore
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	existing, err := r.GetByUserID(ctx, wallet.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("wallet for user %s already exists", wallet.UserID)
	}
	return setJSON(r.s, walletKey(wallet.UserID), wallet)
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	wallet, err := getJSON[models.Wallet](ctx, r.s, walletKey(userID))
	if err != nil || wallet == nil {
		return wallet, err
	}
	if wallet.Holdings == nil {
		wallet.Holdings = make(map[string]*models.Holding)
	}
	return wallet, nil
}

// GetForUpdate needs no row lock: the unit of work already holds the store lock
func (r *walletRepository) GetForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *walletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	return setJSON(r.s, walletKey(wallet.UserID), wallet)
}
