package repository

import (
	"context"
	"fmt"

	"noblechain/database"
	"noblechain/models"

	"github.com/jackc/pgx/v5"
)

// LoginAuditRepository stores every login attempt
type LoginAuditRepository struct {
	q queryable
}

// NewLoginAuditRepository creates a new login audit repository
func NewLoginAuditRepository(db *database.DB) *LoginAuditRepository {
	return &LoginAuditRepository{q: db.Pool}
}

func newLoginAuditRepositoryWithTx(tx queryable) *LoginAuditRepository {
	return &LoginAuditRepository{q: tx}
}

// Record appends an audit entry
func (r *LoginAuditRepository) Record(ctx context.Context, audit *models.LoginAudit) error {
	query := `
		INSERT INTO login_audits (id, user_id, email, success, device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.Exec(ctx, query, audit.ID, audit.UserID, audit.Email, audit.Success, audit.Device, audit.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record login audit for %s: %w", audit.Email, err)
	}
	return nil
}

const auditSelect = `SELECT id, user_id, email, success, device, created_at FROM login_audits`

// GetByUser returns a user's audits oldest first
func (r *LoginAuditRepository) GetByUser(ctx context.Context, userID string) ([]*models.LoginAudit, error) {
	rows, err := r.q.Query(ctx, auditSelect+` WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get login audits for user %s: %w", userID, err)
	}
	return collectAudits(rows)
}

// GetAll returns every audit oldest first
func (r *LoginAuditRepository) GetAll(ctx context.Context) ([]*models.LoginAudit, error) {
	rows, err := r.q.Query(ctx, auditSelect+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to get login audits: %w", err)
	}
	return collectAudits(rows)
}

func collectAudits(rows pgx.Rows) ([]*models.LoginAudit, error) {
	defer rows.Close()

	var audits []*models.LoginAudit
	for rows.Next() {
		var a models.LoginAudit
		if err := rows.Scan(&a.ID, &a.UserID, &a.Email, &a.Success, &a.Device, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan login audit: %w", err)
		}
		audits = append(audits, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate login audits: %w", err)
	}
	return audits, nil
}

// NotificationRepository stores capped per-recipient notices
type NotificationRepository struct {
	q queryable
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{q: db.Pool}
}

func newNotificationRepositoryWithTx(tx queryable) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

// Add inserts a notification and deletes the recipient's oldest beyond limit
func (r *NotificationRepository) Add(ctx context.Context, n *models.Notification, limit int) error {
	query := `
		INSERT INTO notifications (id, recipient_id, title, message, category, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.Exec(ctx, query, n.ID, n.RecipientID, n.Title, n.Message, n.Category, n.Read, n.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to add notification for %s: %w", n.RecipientID, err)
	}

	trim := `
		DELETE FROM notifications
		WHERE recipient_id = $1 AND id NOT IN (
			SELECT id FROM notifications
			WHERE recipient_id = $1
			ORDER BY seq DESC
			LIMIT $2
		)
	`
	if _, err := r.q.Exec(ctx, trim, n.RecipientID, limit); err != nil {
		return fmt.Errorf("failed to trim notifications for %s: %w", n.RecipientID, err)
	}
	return nil
}

// GetByRecipient returns notices newest first
func (r *NotificationRepository) GetByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	query := `
		SELECT id, recipient_id, title, message, category, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY seq DESC
	`
	rows, err := r.q.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for %s: %w", recipientID, err)
	}
	defer rows.Close()

	var notices []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Category, &n.Read, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notices = append(notices, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notices, nil
}

// SupportChatRepository stores support chat messages
type SupportChatRepository struct {
	q queryable
}

// NewSupportChatRepository creates a new support chat repository
func NewSupportChatRepository(db *database.DB) *SupportChatRepository {
	return &SupportChatRepository{q: db.Pool}
}

func newSupportChatRepositoryWithTx(tx queryable) *SupportChatRepository {
	return &SupportChatRepository{q: tx}
}

// Record appends a chat message
func (r *SupportChatRepository) Record(ctx context.Context, msg *models.SupportMessage) error {
	query := `
		INSERT INTO support_messages (id, user_id, message, is_admin, sender_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.Exec(ctx, query, msg.ID, msg.UserID, msg.Message, msg.IsAdmin, msg.SenderType, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record support message for user %s: %w", msg.UserID, err)
	}
	return nil
}

const supportSelect = `SELECT id, user_id, message, is_admin, sender_type, created_at FROM support_messages`

// GetByUser returns a user's chat oldest first
func (r *SupportChatRepository) GetByUser(ctx context.Context, userID string) ([]*models.SupportMessage, error) {
	rows, err := r.q.Query(ctx, supportSelect+` WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get support messages for user %s: %w", userID, err)
	}
	return collectSupportMessages(rows)
}

// GetAll returns every chat message oldest first
func (r *SupportChatRepository) GetAll(ctx context.Context) ([]*models.SupportMessage, error) {
	rows, err := r.q.Query(ctx, supportSelect+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to get support messages: %w", err)
	}
	return collectSupportMessages(rows)
}

func collectSupportMessages(rows pgx.Rows) ([]*models.SupportMessage, error) {
	defer rows.Close()

	var msgs []*models.SupportMessage
	for rows.Next() {
		var m models.SupportMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Message, &m.IsAdmin, &m.SenderType, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan support message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate support messages: %w", err)
	}
	return msgs, nil
}
