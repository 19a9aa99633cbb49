package models

import (
	"github.com/shopspring/decimal"
)

// CashAsset is the asset symbol used for cash movements
const CashAsset = "USD"

// Holding is the quantity of one asset owned by a wallet
type Holding struct {
	Balance     decimal.Decimal `json:"balance"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

// Wallet is the per-user record of cash plus asset holdings
type Wallet struct {
	UserID      string              `db:"user_id" json:"user_id"`
	CashBalance decimal.Decimal     `db:"cash_balance" json:"cash_balance"`
	Holdings    map[string]*Holding `json:"holdings"`
}

// NewWallet creates an empty wallet for a user
func NewWallet(userID string) *Wallet {
	return &Wallet{
		UserID:      userID,
		CashBalance: decimal.Zero,
		Holdings:    make(map[string]*Holding),
	}
}

// Clone returns a deep copy so callers can mutate without touching stored state
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := &Wallet{
		UserID:      w.UserID,
		CashBalance: w.CashBalance,
		Holdings:    make(map[string]*Holding, len(w.Holdings)),
	}
	for symbol, h := range w.Holdings {
		hc := *h
		c.Holdings[symbol] = &hc
	}
	return c
}

// WalletSummary is a wallet together with its valuation
type WalletSummary struct {
	Wallet     *Wallet         `json:"wallet"`
	TotalValue decimal.Decimal `json:"total_value"`
}
