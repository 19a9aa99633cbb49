package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"noblechain/events"
	"noblechain/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type walletService struct {
	uowFactory UnitOfWorkFactory
	prices     PriceSource
	pins       PinService
	requirePin bool
	locks      *accountLocks
}

// WalletOption configures a wallet service
type WalletOption func(*walletService)

// WithTransferPin makes every transfer verify the sender's PIN before balances are checked
func WithTransferPin(pins PinService) WalletOption {
	return func(s *walletService) {
		s.pins = pins
		s.requirePin = true
	}
}

// NewWalletService creates the wallet ledger. prices values holdings in TotalValue.
func NewWalletService(uowFactory UnitOfWorkFactory, prices PriceSource, opts ...WalletOption) WalletService {
	s := &walletService{
		uowFactory: uowFactory,
		prices:     prices,
		locks:      newAccountLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWallet returns the user's wallet, or nil when the user has none
func (s *walletService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.WalletRepository().GetByUserID(ctx, userID)
}

// TotalValue returns cash plus every holding at the current market price
func (s *walletService) TotalValue(ctx context.Context, userID string) (decimal.Decimal, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if wallet == nil {
		return decimal.Zero, nil
	}

	total := wallet.CashBalance
	for symbol, h := range wallet.Holdings {
		total = total.Add(h.Balance.Mul(s.prices.Price(symbol)))
	}
	return total, nil
}

// Transfer moves cash from the sender to the named recipient.
// Failures are reported in the order: not authenticated, invalid amount,
// recipient not found, PIN (when required), insufficient balance.
func (s *walletService) Transfer(ctx context.Context, req TransferRequest) (*models.TransferResult, error) {
	recipientID, err := s.checkTransfer(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.requirePin {
		if err := s.pins.VerifyPin(ctx, req.SenderID, req.Pin); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.lock(req.SenderID, recipientID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	sender, err := uow.UserRepository().GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	recipient, err := uow.UserRepository().GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	if sender == nil {
		return nil, ErrNotAuthenticated
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	wallets, err := lockWallets(ctx, uow, sender.ID, recipient.ID)
	if err != nil {
		return nil, err
	}
	senderWallet, recipientWallet := wallets[sender.ID], wallets[recipient.ID]

	if senderWallet.CashBalance.LessThan(req.Amount) {
		return nil, ErrInsufficientBalance
	}

	senderWallet.CashBalance = senderWallet.CashBalance.Sub(req.Amount)
	recipientWallet.CashBalance = recipientWallet.CashBalance.Add(req.Amount)

	if err := uow.WalletRepository().Save(ctx, senderWallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}
	if recipient.ID != sender.ID {
		if err := uow.WalletRepository().Save(ctx, recipientWallet); err != nil {
			return nil, fmt.Errorf("failed to save wallet: %w", err)
		}
	}

	outgoing := &models.Transaction{
		UserID:       sender.ID,
		Type:         models.TransactionTypeSend,
		Asset:        models.CashAsset,
		Amount:       req.Amount,
		Counterparty: recipient.Username,
		Metadata:     map[string]any{"direction": models.DirectionOutgoing},
	}
	if err := RecordTransaction(ctx, uow, outgoing, true); err != nil {
		return nil, fmt.Errorf("failed to record outgoing transfer: %w", err)
	}

	incoming := &models.Transaction{
		UserID:       recipient.ID,
		Type:         models.TransactionTypeReceive,
		Asset:        models.CashAsset,
		Amount:       req.Amount,
		Counterparty: sender.Username,
		Metadata:     map[string]any{"direction": models.DirectionIncoming},
	}
	if err := RecordTransaction(ctx, uow, incoming, true); err != nil {
		return nil, fmt.Errorf("failed to record incoming transfer: %w", err)
	}

	uow.EventBus().Publish(events.TransferCompletedEvent{
		SenderID:          sender.ID,
		SenderUsername:    sender.Username,
		RecipientID:       recipient.ID,
		RecipientUsername: recipient.Username,
		Asset:             models.CashAsset,
		Amount:            req.Amount,
		OutgoingTxID:      outgoing.ID,
		IncomingTxID:      incoming.ID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"sender":    sender.Username,
		"recipient": recipient.Username,
		"amount":    req.Amount.String(),
	}).Info("Transfer completed")

	return &models.TransferResult{
		Outgoing:      outgoing,
		Incoming:      incoming,
		SenderBalance: senderWallet.CashBalance,
	}, nil
}

// checkTransfer runs the checks that need no account lock and resolves the recipient id
func (s *walletService) checkTransfer(ctx context.Context, req TransferRequest) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByUserID(ctx, req.SenderID)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return "", ErrNotAuthenticated
	}

	if !req.Amount.IsPositive() || !fitsAmountScale(req.Amount) {
		return "", ErrInvalidAmount
	}

	recipient, err := uow.UserRepository().GetByUsername(ctx, req.RecipientUsername)
	if err != nil {
		return "", fmt.Errorf("failed to get recipient: %w", err)
	}
	if recipient == nil {
		return "", ErrRecipientNotFound
	}
	return recipient.ID, nil
}

// lockWallets loads each distinct wallet for update in id order, so row locks
// are taken in the same order as the account mutexes
func lockWallets(ctx context.Context, uow UnitOfWork, userIDs ...string) (map[string]*models.Wallet, error) {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)

	wallets := make(map[string]*models.Wallet, len(ids))
	for _, id := range ids {
		if _, ok := wallets[id]; ok {
			continue
		}
		w, err := uow.WalletRepository().GetForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to lock wallet: %w", err)
		}
		if w == nil {
			return nil, fmt.Errorf("wallet for user %s not found", id)
		}
		wallets[id] = w
	}
	return wallets, nil
}

// Credit deposits cash into the user's wallet and records a deposit
func (s *walletService) Credit(ctx context.Context, userID string, amount decimal.Decimal, note string) (*models.Transaction, error) {
	if !amount.IsPositive() || !fitsAmountScale(amount) {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrUserNotFound
	}

	wallet.CashBalance = wallet.CashBalance.Add(amount)
	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	tx := &models.Transaction{
		UserID: userID,
		Type:   models.TransactionTypeDeposit,
		Asset:  models.CashAsset,
		Amount: amount,
	}
	if note != "" {
		tx.Metadata = map[string]any{"note": note}
	}
	if err := RecordTransaction(ctx, uow, tx, false); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tx, nil
}

// AddAsset creates an empty holding for symbol if the wallet has none
func (s *walletService) AddAsset(ctx context.Context, userID, symbol string) error {
	symbol = cleanSymbol(symbol)
	if symbol == "" {
		return ErrInvalidAsset
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return ErrUserNotFound
	}
	if _, ok := wallet.Holdings[symbol]; ok {
		return nil
	}

	wallet.Holdings[symbol] = &models.Holding{}
	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return uow.Commit()
}

// CreditHolding adds quantity of symbol bought at unitCost and re-averages the cost basis
func (s *walletService) CreditHolding(ctx context.Context, userID, symbol string, quantity, unitCost decimal.Decimal) error {
	symbol = cleanSymbol(symbol)
	if symbol == "" {
		return ErrInvalidAsset
	}
	if !quantity.IsPositive() || unitCost.IsNegative() ||
		!fitsAmountScale(quantity) || !fitsAmountScale(unitCost) {
		return ErrInvalidAmount
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return ErrUserNotFound
	}

	h, ok := wallet.Holdings[symbol]
	if !ok {
		h = &models.Holding{}
		wallet.Holdings[symbol] = h
	}
	newBalance := h.Balance.Add(quantity)
	cost := h.Balance.Mul(h.AverageCost).Add(quantity.Mul(unitCost))
	h.AverageCost = cost.DivRound(newBalance, amountScale)
	h.Balance = newBalance

	if err := uow.WalletRepository().Save(ctx, wallet); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}

	tx := &models.Transaction{
		UserID: userID,
		Type:   models.TransactionTypeAsset,
		Asset:  symbol,
		Amount: quantity,
		Metadata: map[string]any{
			"unit_cost": unitCost.String(),
		},
	}
	if err := RecordTransaction(ctx, uow, tx, false); err != nil {
		return err
	}
	return uow.Commit()
}

// amountScale is the number of fractional digits the ledger columns store
const amountScale = 10

// fitsAmountScale reports whether d survives storage without rounding
func fitsAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(amountScale))
}

var symbolChars = regexp.MustCompile(`[^A-Za-z0-9]`)

func cleanSymbol(symbol string) string {
	return strings.ToUpper(symbolChars.ReplaceAllString(symbol, ""))
}

const addressAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// WalletAddress returns a display address of the form NBL-<SYMBOL>-<user>-<nonce>.
// The nonce differs on every call.
func (s *walletService) WalletAddress(userID, symbol string) string {
	userPart := base64.StdEncoding.EncodeToString([]byte(userID))
	if len(userPart) > 8 {
		userPart = userPart[:8]
	}

	nonce := make([]byte, 4)
	for i := range nonce {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(addressAlphabet))))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		nonce[i] = addressAlphabet[n.Int64()]
	}

	return fmt.Sprintf("NBL-%s-%s-%s", cleanSymbol(symbol), userPart, nonce)
}
