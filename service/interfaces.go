package service

import (
	"context"

	"noblechain/events"
	"noblechain/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new user, failing with ErrDuplicateEmail or ErrDuplicateUsername
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by id, returning nil if absent
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by exact email, returning nil if absent
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByUsername retrieves a user by exact username, returning nil if absent
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// Update persists mutable user fields (last login, transfer PIN mirror)
	Update(ctx context.Context, user *models.User) error

	// MarkFirstLogin flips the first-login flag and reports whether this call flipped it
	MarkFirstLogin(ctx context.Context, id string) (bool, error)

	// GetAll returns all users in registration order
	GetAll(ctx context.Context) ([]*models.User, error)

	// Count returns the number of registered users
	Count(ctx context.Context) (int, error)
}

// WalletRepository defines the interface for wallet data access
type WalletRepository interface {
	// Create stores a new wallet
	Create(ctx context.Context, wallet *models.Wallet) error

	// GetByUserID retrieves a wallet, returning nil if absent
	GetByUserID(ctx context.Context, userID string) (*models.Wallet, error)

	// GetForUpdate retrieves a wallet and locks it for the rest of the unit of work
	GetForUpdate(ctx context.Context, userID string) (*models.Wallet, error)

	// Save persists cash balance and holdings
	Save(ctx context.Context, wallet *models.Wallet) error
}

// TransactionRepository defines the append-only transaction log
type TransactionRepository interface {
	// Record appends a transaction
	Record(ctx context.Context, tx *models.Transaction) error

	// GetByUser returns a user's transactions oldest first
	GetByUser(ctx context.Context, userID string) ([]*models.Transaction, error)

	// GetAll returns every transaction oldest first
	GetAll(ctx context.Context) ([]*models.Transaction, error)
}

// LoginAuditRepository defines the login audit log
type LoginAuditRepository interface {
	Record(ctx context.Context, audit *models.LoginAudit) error
	GetByUser(ctx context.Context, userID string) ([]*models.LoginAudit, error)
	GetAll(ctx context.Context) ([]*models.LoginAudit, error)
}

// SessionRepository defines storage of the active-session pointer
type SessionRepository interface {
	// Save replaces the user's active session
	Save(ctx context.Context, session *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	GetByUserID(ctx context.Context, userID string) (*models.Session, error)
	// Delete clears the user's active session
	Delete(ctx context.Context, userID string) error
}

// NotificationRepository defines the capped, most-recent-first notice lists
type NotificationRepository interface {
	// Add prepends a notification, dropping the oldest beyond limit
	Add(ctx context.Context, n *models.Notification, limit int) error
	GetByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error)
}

// PinRepository defines storage of transfer PIN slots
type PinRepository interface {
	Get(ctx context.Context, userID string) (*models.PinSlot, error)
	Save(ctx context.Context, slot *models.PinSlot) error
}

// SupportChatRepository defines the support chat log
type SupportChatRepository interface {
	Record(ctx context.Context, msg *models.SupportMessage) error
	GetByUser(ctx context.Context, userID string) ([]*models.SupportMessage, error)
	GetAll(ctx context.Context) ([]*models.SupportMessage, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// PriceSource provides current market prices for valuation
type PriceSource interface {
	// Price returns the current price, zero for unknown symbols
	Price(symbol string) decimal.Decimal
}

// IdentityService defines signup, login and session operations
type IdentityService interface {
	Register(ctx context.Context, email, password, username string) (*models.User, *models.Session, error)
	Authenticate(ctx context.Context, email, password, device string) (*models.User, *models.Session, error)
	EndSession(ctx context.Context, userID string) error
	CurrentSession(ctx context.Context, token string) (*models.Session, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	LoginHistory(ctx context.Context, userID string) ([]*models.LoginAudit, error)
}

// PinService defines the transfer PIN gate
type PinService interface {
	ProvisionPinSlot(ctx context.Context, userID string) error
	SetPin(ctx context.Context, userID, pin string) error
	VerifyPin(ctx context.Context, userID, pin string) error
}

// TransferRequest carries the inputs of a wallet transfer
type TransferRequest struct {
	SenderID          string
	RecipientUsername string
	Amount            decimal.Decimal
	// Pin is only checked when transfers require a PIN
	Pin string
}

// WalletService defines the ledger operations
type WalletService interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	TotalValue(ctx context.Context, userID string) (decimal.Decimal, error)
	Transfer(ctx context.Context, req TransferRequest) (*models.TransferResult, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, note string) (*models.Transaction, error)
	AddAsset(ctx context.Context, userID, symbol string) error
	CreditHolding(ctx context.Context, userID, symbol string, quantity, unitCost decimal.Decimal) error
	WalletAddress(userID, symbol string) string
}

// TransactionService defines read access to the transaction log
type TransactionService interface {
	Record(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	ListFor(ctx context.Context, userID string) ([]*models.Transaction, error)
	ListAll(ctx context.Context) ([]*models.Transaction, error)
}

// NotificationService defines in-app notices
type NotificationService interface {
	Notify(ctx context.Context, recipientID, title, message string, category models.NotificationCategory) (*models.Notification, error)
	List(ctx context.Context, recipientID string) ([]*models.Notification, error)
}

// SupportService defines the support chat stub
type SupportService interface {
	SendMessage(ctx context.Context, userID, message string, isAdmin bool, senderType string) (*models.SupportMessage, error)
	Chats(ctx context.Context, userID string) ([]*models.SupportMessage, error)
	ChatReply(message string) string
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction; no-op once committed
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	WalletRepository() WalletRepository
	TransactionRepository() TransactionRepository
	LoginAuditRepository() LoginAuditRepository
	SessionRepository() SessionRepository
	NotificationRepository() NotificationRepository
	PinRepository() PinRepository
	SupportChatRepository() SupportChatRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
