package repository

import (
	"context"
	"errors"
	"fmt"

	"noblechain/database"
	"noblechain/models"

	"github.com/jackc/pgx/v5"
)

// SessionRepository stores one active session per user
type SessionRepository struct {
	q queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

func newSessionRepositoryWithTx(tx queryable) *SessionRepository {
	return &SessionRepository{q: tx}
}

// Save replaces the user's active session
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, token, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token, created_at = EXCLUDED.created_at
	`
	if _, err := r.q.Exec(ctx, query, session.UserID, session.Token, session.CreatedAt); err != nil {
		return fmt.Errorf("failed to save session for user %s: %w", session.UserID, err)
	}
	return nil
}

// GetByToken returns the session owning token, or nil
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.getOne(ctx, `SELECT token, user_id, created_at FROM sessions WHERE token = $1`, token)
}

// GetByUserID returns the user's active session, or nil
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) (*models.Session, error) {
	return r.getOne(ctx, `SELECT token, user_id, created_at FROM sessions WHERE user_id = $1`, userID)
}

func (r *SessionRepository) getOne(ctx context.Context, query, arg string) (*models.Session, error) {
	var s models.Session
	err := r.q.QueryRow(ctx, query, arg).Scan(&s.Token, &s.UserID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Delete clears the user's active session
func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete session for user %s: %w", userID, err)
	}
	return nil
}

// PinRepository stores transfer PIN slots
type PinRepository struct {
	q queryable
}

// NewPinRepository creates a new PIN slot repository
func NewPinRepository(db *database.DB) *PinRepository {
	return &PinRepository{q: db.Pool}
}

func newPinRepositoryWithTx(tx queryable) *PinRepository {
	return &PinRepository{q: tx}
}

// Get returns the user's PIN slot, or nil if never provisioned
func (r *PinRepository) Get(ctx context.Context, userID string) (*models.PinSlot, error) {
	query := `
		SELECT user_id, pin_hash, must_set_pin, created_at, last_updated
		FROM pin_slots
		WHERE user_id = $1
	`
	var slot models.PinSlot
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&slot.UserID,
		&slot.PinHash,
		&slot.MustSetPin,
		&slot.CreatedAt,
		&slot.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pin slot for user %s: %w", userID, err)
	}
	return &slot, nil
}

// Save upserts a PIN slot
func (r *PinRepository) Save(ctx context.Context, slot *models.PinSlot) error {
	query := `
		INSERT INTO pin_slots (user_id, pin_hash, must_set_pin, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET pin_hash = EXCLUDED.pin_hash,
		    must_set_pin = EXCLUDED.must_set_pin,
		    last_updated = EXCLUDED.last_updated
	`
	_, err := r.q.Exec(ctx, query, slot.UserID, slot.PinHash, slot.MustSetPin, slot.CreatedAt, slot.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save pin slot for user %s: %w", slot.UserID, err)
	}
	return nil
}
