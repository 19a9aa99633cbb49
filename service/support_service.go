package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"noblechain/models"
)

// Canned support replies
const (
	replyEmpty    = "Thanks for reaching out - we'll get back to you shortly."
	replyBalance  = "You can view your balances on the dashboard. If something looks wrong, contact support with details."
	replyTransfer = "To send funds, open Send Money from your dashboard and enter the recipient's username and amount."
	replyFees     = "Our platform charges minimal network fees for crypto transfers; internal USD transfers are instant and fee-free in this demo."
	replyGeneric  = "Thanks for your message. A support agent will reply soon. For quick help, include your username and a short description."
)

// SenderUser and SenderAI label who wrote a support message
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

type supportService struct {
	uowFactory UnitOfWorkFactory
}

// NewSupportService creates the support chat service
func NewSupportService(uowFactory UnitOfWorkFactory) SupportService {
	return &supportService{
		uowFactory: uowFactory,
	}
}

// SendMessage appends to the support chat log. Messages without a user go to the admin thread.
func (s *supportService) SendMessage(ctx context.Context, userID, message string, isAdmin bool, senderType string) (*models.SupportMessage, error) {
	if userID == "" {
		userID = models.AdminRecipient
	}
	if senderType == "" {
		senderType = SenderUser
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	msg := &models.SupportMessage{
		ID:         newID(),
		UserID:     userID,
		Message:    message,
		IsAdmin:    isAdmin,
		SenderType: senderType,
		Timestamp:  time.Now().UTC(),
	}
	if err := uow.SupportChatRepository().Record(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record support message: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return msg, nil
}

// Chats returns one user's chat, or every chat for an empty id
func (s *supportService) Chats(ctx context.Context, userID string) ([]*models.SupportMessage, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if userID == "" {
		return uow.SupportChatRepository().GetAll(ctx)
	}
	return uow.SupportChatRepository().GetByUser(ctx, userID)
}

// ChatReply picks a canned reply by keyword
func (s *supportService) ChatReply(message string) string {
	if message == "" {
		return replyEmpty
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "balance"):
		return replyBalance
	case strings.Contains(msg, "send"), strings.Contains(msg, "transfer"):
		return replyTransfer
	case strings.Contains(msg, "fees"):
		return replyFees
	default:
		return replyGeneric
	}
}
