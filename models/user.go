package models

import (
	"time"
)

// User represents a registered wallet holder
type User struct {
	ID                string     `db:"id" json:"id"`
	Email             string     `db:"email" json:"email"`
	Username          string     `db:"username" json:"username"`
	PasswordHash      string     `db:"password_hash" json:"password_hash"`
	TransferPinHash   string     `db:"transfer_pin_hash" json:"transfer_pin_hash,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	LastLogin         *time.Time `db:"last_login" json:"last_login,omitempty"`
	HasLoggedInBefore bool       `db:"has_logged_in_before" json:"has_logged_in_before"`
}

// Session is the active-session pointer for a user
type Session struct {
	Token     string    `db:"token" json:"token"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LoginAudit records a single authentication attempt.
// UserID is empty when the attempted email did not match any account.
type LoginAudit struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	Success   bool      `db:"success" json:"success"`
	Device    string    `db:"device" json:"device"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// PinSlot holds the transfer PIN credential for a user
type PinSlot struct {
	UserID      string    `db:"user_id" json:"user_id"`
	PinHash     *string   `db:"pin_hash" json:"pin_hash,omitempty"`
	MustSetPin  bool      `db:"must_set_pin" json:"must_set_pin"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// HasPin reports whether a PIN has been set on the slot
func (p *PinSlot) HasPin() bool {
	return p != nil && p.PinHash != nil && *p.PinHash != ""
}
