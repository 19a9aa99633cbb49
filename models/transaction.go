package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of ledger-affecting action
type TransactionType string

const (
	TransactionTypeSend    TransactionType = "send"
	TransactionTypeReceive TransactionType = "receive"
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeAsset   TransactionType = "asset_credit"
)

// TransactionStatus is the settlement state of a transaction
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Metadata directions for transfer legs
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// Transaction is an immutable entry in the transaction log
type Transaction struct {
	ID           string            `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"user_id"`
	Type         TransactionType   `db:"type" json:"type"`
	Asset        string            `db:"asset" json:"asset"`
	Amount       decimal.Decimal   `db:"amount" json:"amount"`
	Counterparty string            `db:"counterparty" json:"counterparty,omitempty"`
	Timestamp    time.Time         `db:"created_at" json:"timestamp"`
	Status       TransactionStatus `db:"status" json:"status"`
	Metadata     map[string]any    `db:"metadata" json:"metadata,omitempty"`
}

// TransferResult holds both legs of a completed transfer
type TransferResult struct {
	Outgoing      *Transaction    `json:"outgoing"`
	Incoming      *Transaction    `json:"incoming"`
	SenderBalance decimal.Decimal `json:"sender_balance"`
}
