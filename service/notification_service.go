package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"noblechain/events"
	"noblechain/models"

	log "github.com/sirupsen/logrus"
)

// NotificationLimit caps each recipient's notification list
const NotificationLimit = 100

type notificationService struct {
	uowFactory UnitOfWorkFactory
}

// NewNotificationService creates a new notification service
func NewNotificationService(uowFactory UnitOfWorkFactory) NotificationService {
	return &notificationService{
		uowFactory: uowFactory,
	}
}

// Notify prepends a notice to the recipient's list, dropping the oldest past NotificationLimit
func (s *notificationService) Notify(ctx context.Context, recipientID, title, message string, category models.NotificationCategory) (*models.Notification, error) {
	if category == "" {
		category = models.NotificationCategoryInfo
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	n := &models.Notification{
		ID:          newID(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Category:    category,
		Timestamp:   time.Now().UTC(),
	}
	if err := uow.NotificationRepository().Add(ctx, n, NotificationLimit); err != nil {
		return nil, fmt.Errorf("failed to add notification: %w", err)
	}

	uow.EventBus().Publish(events.NotificationAddedEvent{Notification: *n})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// List returns the recipient's notices newest first
func (s *notificationService) List(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.NotificationRepository().GetByRecipient(ctx, recipientID)
}

// SubscribeNotifications turns domain events into notices. A failing notice is
// logged and dropped; the operation that raised the event has already committed.
func SubscribeNotifications(bus *events.Bus, notifications NotificationService) {
	notify := func(ctx context.Context, recipientID, title, message string, category models.NotificationCategory) {
		if _, err := notifications.Notify(ctx, recipientID, title, message, category); err != nil {
			log.WithFields(log.Fields{
				"recipient": recipientID,
				"title":     title,
				"error":     err,
			}).Error("Failed to deliver notification")
		}
	}

	bus.Subscribe(events.EventTypeTransferCompleted, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.TransferCompletedEvent)
		if !ok {
			return
		}
		notify(ctx, e.SenderID, "Transfer Sent",
			fmt.Sprintf("You sent $%s to %s", e.Amount.String(), e.RecipientUsername),
			models.NotificationCategoryTransaction)
		notify(ctx, e.RecipientID, "Transfer Received",
			fmt.Sprintf("%s sent you $%s", e.SenderUsername, e.Amount.String()),
			models.NotificationCategoryTransaction)
	})

	bus.Subscribe(events.EventTypeFirstLogin, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.FirstLoginEvent)
		if !ok {
			return
		}
		notify(ctx, models.AdminRecipient, "New User Registration",
			fmt.Sprintf("%s (%s) signed in for the first time", e.Username, e.Email),
			models.NotificationCategoryAdmin)
	})

	bus.Subscribe(events.EventTypePinChanged, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.PinChangedEvent)
		if !ok {
			return
		}
		notify(ctx, e.UserID, "Transfer PIN Changed",
			"Your transfer PIN was changed. If this wasn't you, contact support.",
			models.NotificationCategorySecurity)
	})

	bus.Subscribe(events.EventTypePinVerificationFailed, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.PinVerificationFailedEvent)
		if !ok {
			return
		}
		notify(ctx, e.UserID, "Transfer PIN Verification Failed",
			"An incorrect transfer PIN was entered on your account.",
			models.NotificationCategorySecurity)
	})

	// transfer legs already produce Sent/Received notices
	bus.Subscribe(events.EventTypeTransactionRecorded, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.TransactionRecordedEvent)
		if !ok || e.FromTransfer {
			return
		}
		tx := e.Transaction
		message := fmt.Sprintf("%s %s", tx.Amount.String(), tx.Asset)
		if tx.Counterparty != "" {
			message += " - " + tx.Counterparty
		}
		notify(ctx, tx.UserID,
			"Transaction: "+strings.ReplaceAll(string(tx.Type), "_", " "),
			message,
			models.NotificationCategoryTransaction)
	})
}
