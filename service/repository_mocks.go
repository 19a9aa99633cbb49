package service

import (
	"context"

	"noblechain/events"
	"noblechain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) MarkFirstLogin(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetAll(ctx context.Context) ([]*models.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// MockLoginAuditRepository is a mock implementation of LoginAuditRepository
type MockLoginAuditRepository struct {
	mock.Mock
}

func (m *MockLoginAuditRepository) Record(ctx context.Context, audit *models.LoginAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

func (m *MockLoginAuditRepository) GetByUser(ctx context.Context, userID string) ([]*models.LoginAudit, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LoginAudit), args.Error(1)
}

func (m *MockLoginAuditRepository) GetAll(ctx context.Context) ([]*models.LoginAudit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LoginAudit), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) GetByUserID(ctx context.Context, userID string) (*models.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Add(ctx context.Context, n *models.Notification, limit int) error {
	args := m.Called(ctx, n, limit)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

// MockPinRepository is a mock implementation of PinRepository
type MockPinRepository struct {
	mock.Mock
}

func (m *MockPinRepository) Get(ctx context.Context, userID string) (*models.PinSlot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PinSlot), args.Error(1)
}

func (m *MockPinRepository) Save(ctx context.Context, slot *models.PinSlot) error {
	args := m.Called(ctx, slot)
	return args.Error(0)
}

// MockSupportChatRepository is a mock implementation of SupportChatRepository
type MockSupportChatRepository struct {
	mock.Mock
}

func (m *MockSupportChatRepository) Record(ctx context.Context, msg *models.SupportMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockSupportChatRepository) GetByUser(ctx context.Context, userID string) ([]*models.SupportMessage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SupportMessage), args.Error(1)
}

func (m *MockSupportChatRepository) GetAll(ctx context.Context) ([]*models.SupportMessage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SupportMessage), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockPriceSource is a mock implementation of PriceSource
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) Price(symbol string) decimal.Decimal {
	args := m.Called(symbol)
	return args.Get(0).(decimal.Decimal)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields; only the transaction lifecycle goes through mock.Mock.
type MockUnitOfWork struct {
	mock.Mock
	UserRepo         *MockUserRepository
	WalletRepo       *MockWalletRepository
	TransactionRepo  *MockTransactionRepository
	AuditRepo        *MockLoginAuditRepository
	SessionRepo      *MockSessionRepository
	NotificationRepo *MockNotificationRepository
	PinRepo          *MockPinRepository
	SupportRepo      *MockSupportChatRepository
	Publisher        *MockEventPublisher
}

// NewMockUnitOfWork creates a unit of work with a fresh mock for every repository
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		UserRepo:         new(MockUserRepository),
		WalletRepo:       new(MockWalletRepository),
		TransactionRepo:  new(MockTransactionRepository),
		AuditRepo:        new(MockLoginAuditRepository),
		SessionRepo:      new(MockSessionRepository),
		NotificationRepo: new(MockNotificationRepository),
		PinRepo:          new(MockPinRepository),
		SupportRepo:      new(MockSupportChatRepository),
		Publisher:        new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository                 { return m.UserRepo }
func (m *MockUnitOfWork) WalletRepository() WalletRepository             { return m.WalletRepo }
func (m *MockUnitOfWork) TransactionRepository() TransactionRepository   { return m.TransactionRepo }
func (m *MockUnitOfWork) LoginAuditRepository() LoginAuditRepository     { return m.AuditRepo }
func (m *MockUnitOfWork) SessionRepository() SessionRepository           { return m.SessionRepo }
func (m *MockUnitOfWork) NotificationRepository() NotificationRepository { return m.NotificationRepo }
func (m *MockUnitOfWork) PinRepository() PinRepository                   { return m.PinRepo }
func (m *MockUnitOfWork) SupportChatRepository() SupportChatRepository   { return m.SupportRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                       { return m.Publisher }

// AssertRepositories checks expectations on every repository mock
func (m *MockUnitOfWork) AssertRepositories(t mock.TestingT) {
	m.UserRepo.AssertExpectations(t)
	m.WalletRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.AuditRepo.AssertExpectations(t)
	m.SessionRepo.AssertExpectations(t)
	m.NotificationRepo.AssertExpectations(t)
	m.PinRepo.AssertExpectations(t)
	m.SupportRepo.AssertExpectations(t)
	m.Publisher.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
