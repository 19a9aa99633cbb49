package kvrepo

import (
	"context"

	"noblechain/models"
)

type transactionRepository struct {
	s *stagedStore
}

func (r *transactionRepository) Record(ctx context.Context, tx *models.Transaction) error {
	return appendJSON(r.s, tx, userTransactionsKey(tx.UserID), keyAllTransactions)
}

func (r *transactionRepository) GetByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return listJSON[models.Transaction](ctx, r.s, userTransactionsKey(userID))
}

func (r *transactionRepository) GetAll(ctx context.Context) ([]*models.Transaction, error) {
	return listJSON[models.Transaction](ctx, r.s, keyAllTransactions)
}

type loginAuditRepository struct {
	s *stagedStore
}

func (r *loginAuditRepository) Record(ctx context.Context, audit *models.LoginAudit) error {
	keys := []string{keyAllAudits}
	if audit.UserID != "" {
		keys = append(keys, userAuditsKey(audit.UserID))
	}
	return appendJSON(r.s, audit, keys...)
}

func (r *loginAuditRepository) GetByUser(ctx context.Context, userID string) ([]*models.LoginAudit, error) {
	return listJSON[models.LoginAudit](ctx, r.s, userAuditsKey(userID))
}

func (r *loginAuditRepository) GetAll(ctx context.Context) ([]*models.LoginAudit, error) {
	return listJSON[models.LoginAudit](ctx, r.s, keyAllAudits)
}

type supportChatRepository struct {
	s *stagedStore
}

func (r *supportChatRepository) Record(ctx context.Context, msg *models.SupportMessage) error {
	return appendJSON(r.s, msg, userSupportKey(msg.UserID), keyAllSupport)
}

func (r *supportChatRepository) GetByUser(ctx context.Context, userID string) ([]*models.SupportMessage, error) {
	return listJSON[models.SupportMessage](ctx, r.s, userSupportKey(userID))
}

func (r *supportChatRepository) GetAll(ctx context.Context) ([]*models.SupportMessage, error) {
	return listJSON[models.SupportMessage](ctx, r.s, keyAllSupport)
}

type notificationRepository struct {
	s *stagedStore
}

func (r *notificationRepository) Add(ctx context.Context, n *models.Notification, limit int) error {
	raw, err := encodeRecord(n)
	if err != nil {
		return err
	}
	r.s.Prepend(notificationsKey(n.RecipientID), raw, limit)
	return nil
}

func (r *notificationRepository) GetByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	return listJSON[models.Notification](ctx, r.s, notificationsKey(recipientID))
}
