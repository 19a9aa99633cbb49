package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"noblechain/events"
	"noblechain/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var pinFormat = regexp.MustCompile(`^\d{4,6}$`)

type pinService struct {
	uowFactory UnitOfWorkFactory
	bcryptCost int
}

// NewPinService creates the transfer PIN service
func NewPinService(uowFactory UnitOfWorkFactory, bcryptCost int) PinService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &pinService{
		uowFactory: uowFactory,
		bcryptCost: bcryptCost,
	}
}

// ProvisionPinSlot creates an empty slot that must be set before use.
// Provisioning again resets the slot.
func (s *pinService) ProvisionPinSlot(ctx context.Context, userID string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := time.Now().UTC()
	slot := &models.PinSlot{
		UserID:      userID,
		MustSetPin:  true,
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := uow.PinRepository().Save(ctx, slot); err != nil {
		return fmt.Errorf("failed to provision pin slot: %w", err)
	}
	return uow.Commit()
}

func (s *pinService) SetPin(ctx context.Context, userID, pin string) error {
	if !pinFormat.MatchString(pin) {
		return ErrInvalidPinFormat
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	slot, err := uow.PinRepository().Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get pin slot: %w", err)
	}
	if slot == nil {
		return ErrPinSetupRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}
	hashed := string(hash)

	slot.PinHash = &hashed
	slot.MustSetPin = false
	slot.LastUpdated = time.Now().UTC()
	if err := uow.PinRepository().Save(ctx, slot); err != nil {
		return fmt.Errorf("failed to save pin slot: %w", err)
	}

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		user.TransferPinHash = hashed
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to mirror pin onto user: %w", err)
		}
	}

	uow.EventBus().Publish(events.PinChangedEvent{UserID: userID})

	return uow.Commit()
}

// VerifyPin checks pin against the stored hash. A mismatch is announced
// before the error returns.
func (s *pinService) VerifyPin(ctx context.Context, userID, pin string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	slot, err := uow.PinRepository().Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get pin slot: %w", err)
	}
	if !slot.HasPin() {
		return ErrPinNotSet
	}

	if bcrypt.CompareHashAndPassword([]byte(*slot.PinHash), []byte(pin)) != nil {
		uow.EventBus().Publish(events.PinVerificationFailedEvent{UserID: userID})
		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		log.WithField("userID", userID).Warn("Transfer PIN verification failed")
		return ErrInvalidPin
	}
	return nil
}
