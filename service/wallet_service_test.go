package service

import (
	"context"
	"strings"
	"testing"

	"noblechain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWalletServiceWithMocks() (WalletService, *MockUnitOfWork, *MockPriceSource) {
	mockUoW := NewMockUnitOfWork()
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUoW)
	prices := new(MockPriceSource)
	return NewWalletService(mockFactory, prices), mockUoW, prices
}

func setupBasicTransactionMocks(mockUoW *MockUnitOfWork) {
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
}

func TestWalletService_TotalValue(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, prices := newWalletServiceWithMocks()
	setupBasicTransactionMocks(mockUoW)

	wallet := models.NewWallet("u1")
	wallet.CashBalance = decimal.NewFromInt(100)
	wallet.Holdings["BTC"] = &models.Holding{Balance: decimal.RequireFromString("0.5")}
	wallet.Holdings["ZZZ"] = &models.Holding{Balance: decimal.NewFromInt(10)}
	mockUoW.WalletRepo.On("GetByUserID", ctx, "u1").Return(wallet, nil)
	prices.On("Price", "BTC").Return(decimal.NewFromInt(40000))
	prices.On("Price", "ZZZ").Return(decimal.Zero)

	first, err := service.TotalValue(ctx, "u1")
	require.NoError(t, err)
	second, err := service.TotalValue(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "20100", first.String())
	assert.True(t, first.Equal(second))
	mockUoW.WalletRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestWalletService_TotalValue_NoWallet(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, _ := newWalletServiceWithMocks()
	setupBasicTransactionMocks(mockUoW)
	mockUoW.WalletRepo.On("GetByUserID", ctx, "ghost").Return(nil, nil)

	total, err := service.TotalValue(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestWalletService_Transfer_CheckOrder(t *testing.T) {
	ctx := context.Background()
	session := &models.Session{Token: "tok", UserID: "alice"}

	t.Run("no session", func(t *testing.T) {
		service, mockUoW, _ := newWalletServiceWithMocks()
		setupBasicTransactionMocks(mockUoW)
		mockUoW.SessionRepo.On("GetByUserID", ctx, "alice").Return(nil, nil)

		// an invalid amount still reports the missing session first
		_, err := service.Transfer(ctx, TransferRequest{SenderID: "alice", RecipientUsername: "bob", Amount: decimal.Zero})
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("invalid amount before recipient lookup", func(t *testing.T) {
		for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5), decimal.RequireFromString("0.00000000001")} {
			service, mockUoW, _ := newWalletServiceWithMocks()
			setupBasicTransactionMocks(mockUoW)
			mockUoW.SessionRepo.On("GetByUserID", ctx, "alice").Return(session, nil)

			_, err := service.Transfer(ctx, TransferRequest{SenderID: "alice", RecipientUsername: "nobody", Amount: amount})
			assert.ErrorIs(t, err, ErrInvalidAmount)
			mockUoW.UserRepo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		service, mockUoW, _ := newWalletServiceWithMocks()
		setupBasicTransactionMocks(mockUoW)
		mockUoW.SessionRepo.On("GetByUserID", ctx, "alice").Return(session, nil)
		mockUoW.UserRepo.On("GetByUsername", ctx, "nobody").Return(nil, nil)

		_, err := service.Transfer(ctx, TransferRequest{SenderID: "alice", RecipientUsername: "nobody", Amount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, ErrRecipientNotFound)
		mockUoW.WalletRepo.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("insufficient balance writes nothing", func(t *testing.T) {
		service, mockUoW, _ := newWalletServiceWithMocks()
		setupBasicTransactionMocks(mockUoW)
		mockUoW.SessionRepo.On("GetByUserID", ctx, "alice").Return(session, nil)
		mockUoW.UserRepo.On("GetByUsername", ctx, "bob").Return(&models.User{ID: "bob", Username: "bob"}, nil)
		mockUoW.UserRepo.On("GetByID", ctx, "alice").Return(&models.User{ID: "alice", Username: "alice"}, nil)
		mockUoW.UserRepo.On("GetByID", ctx, "bob").Return(&models.User{ID: "bob", Username: "bob"}, nil)

		aliceWallet := models.NewWallet("alice")
		aliceWallet.CashBalance = decimal.NewFromInt(60)
		mockUoW.WalletRepo.On("GetForUpdate", ctx, "alice").Return(aliceWallet, nil)
		mockUoW.WalletRepo.On("GetForUpdate", ctx, "bob").Return(models.NewWallet("bob"), nil)

		_, err := service.Transfer(ctx, TransferRequest{SenderID: "alice", RecipientUsername: "bob", Amount: decimal.NewFromInt(1000)})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		mockUoW.WalletRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		mockUoW.TransactionRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestWalletService_Transfer_PinGate(t *testing.T) {
	ctx := context.Background()

	mockUoW := NewMockUnitOfWork()
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUoW)
	setupBasicTransactionMocks(mockUoW)

	pins := NewPinService(mockFactory, 4)
	service := NewWalletService(mockFactory, new(MockPriceSource), WithTransferPin(pins))

	mockUoW.SessionRepo.On("GetByUserID", ctx, "alice").Return(&models.Session{UserID: "alice"}, nil)
	mockUoW.UserRepo.On("GetByUsername", ctx, "bob").Return(&models.User{ID: "bob"}, nil)
	mockUoW.PinRepo.On("Get", ctx, "alice").Return(nil, nil)

	_, err := service.Transfer(ctx, TransferRequest{SenderID: "alice", RecipientUsername: "bob", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrPinNotSet)
	mockUoW.WalletRepo.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
}

func TestWalletService_CreditHolding_AveragesCost(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, _ := newWalletServiceWithMocks()
	setupBasicTransactionMocks(mockUoW)

	wallet := models.NewWallet("u1")
	wallet.Holdings["BTC"] = &models.Holding{Balance: decimal.NewFromInt(1), AverageCost: decimal.NewFromInt(100)}
	mockUoW.WalletRepo.On("GetForUpdate", ctx, "u1").Return(wallet, nil)
	mockUoW.WalletRepo.On("Save", ctx, wallet).Return(nil)
	mockUoW.TransactionRepo.On("Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Type == models.TransactionTypeAsset && tx.Asset == "BTC"
	})).Return(nil)
	mockUoW.Publisher.On("Publish", mock.AnythingOfType("events.TransactionRecordedEvent")).Return()

	err := service.CreditHolding(ctx, "u1", "btc", decimal.NewFromInt(3), decimal.NewFromInt(200))
	require.NoError(t, err)

	h := wallet.Holdings["BTC"]
	assert.Equal(t, "4", h.Balance.String())
	assert.Equal(t, "175", h.AverageCost.String())
}

func TestWalletService_Credit_RejectsNonPositive(t *testing.T) {
	service, mockUoW, _ := newWalletServiceWithMocks()

	_, err := service.Credit(context.Background(), "u1", decimal.NewFromInt(-1), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	mockUoW.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestWalletService_RejectsAmountsFinerThanStorage(t *testing.T) {
	ctx := context.Background()
	tiny := decimal.RequireFromString("0.00000000001")
	service, mockUoW, _ := newWalletServiceWithMocks()

	_, err := service.Credit(ctx, "u1", decimal.NewFromInt(1).Add(tiny), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	err = service.CreditHolding(ctx, "u1", "BTC", tiny, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	err = service.CreditHolding(ctx, "u1", "BTC", decimal.NewFromInt(1), tiny)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	mockUoW.AssertNotCalled(t, "Begin", mock.Anything)
	assert.True(t, fitsAmountScale(decimal.RequireFromString("0.0000000001")))
	assert.True(t, fitsAmountScale(decimal.RequireFromString("12.500000000000")))
}

func TestWalletService_EmptySymbolIsInvalidAsset(t *testing.T) {
	ctx := context.Background()
	service, mockUoW, _ := newWalletServiceWithMocks()

	assert.ErrorIs(t, service.AddAsset(ctx, "u1", "!!"), ErrInvalidAsset)
	assert.ErrorIs(t, service.CreditHolding(ctx, "u1", "", decimal.NewFromInt(1), decimal.Zero), ErrInvalidAsset)
	mockUoW.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestWalletService_WalletAddress(t *testing.T) {
	service, _, _ := newWalletServiceWithMocks()

	addr := service.WalletAddress("user-123", "b-t-c")
	parts := strings.Split(addr, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "NBL", parts[0])
	assert.Equal(t, "BTC", parts[1])
	assert.Equal(t, "dXNlci0x", parts[2])
	assert.Len(t, parts[3], 4)
}

func TestAccountLocks_DeduplicatesSelfTransfer(t *testing.T) {
	locks := newAccountLocks()

	unlock := locks.lock("a", "a")
	unlock()

	// both orderings take the same locks without deadlocking
	unlock = locks.lock("b", "a")
	unlock()
	unlock = locks.lock("a", "b")
	unlock()
}
