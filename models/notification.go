package models

import "time"

// AdminRecipient is the reserved recipient id for administrative notices
const AdminRecipient = "admin"

// NotificationCategory groups notifications for display
type NotificationCategory string

const (
	NotificationCategoryInfo        NotificationCategory = "info"
	NotificationCategoryTransaction NotificationCategory = "transaction"
	NotificationCategorySecurity    NotificationCategory = "security"
	NotificationCategoryAdmin       NotificationCategory = "admin"
)

// Notification is an in-app notice
type Notification struct {
	ID          string               `db:"id" json:"id"`
	RecipientID string               `db:"recipient_id" json:"recipient_id"`
	Title       string               `db:"title" json:"title"`
	Message     string               `db:"message" json:"message"`
	Category    NotificationCategory `db:"category" json:"category"`
	Timestamp   time.Time            `db:"created_at" json:"timestamp"`
	Read        bool                 `db:"read" json:"read"`
}

// SupportMessage is one entry of the support chat log
type SupportMessage struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Message    string    `db:"message" json:"message"`
	IsAdmin    bool      `db:"is_admin" json:"is_admin"`
	SenderType string    `db:"sender_type" json:"sender_type"`
	Timestamp  time.Time `db:"created_at" json:"timestamp"`
}
