package repository

import (
	"context"
	"errors"
	"fmt"

	"noblechain/database"
	"noblechain/models"
	"noblechain/service"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, email, username, password_hash, transfer_pin_hash, created_at, last_login, has_logged_in_before`

// Create inserts a new user; unique constraints decide duplicate email/username
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, transfer_pin_hash, created_at, has_logged_in_before)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.TransferPinHash,
		user.CreatedAt,
		user.HasLoggedInBefore,
	)
	switch uniqueConstraint(err) {
	case "users_email_key":
		return service.ErrDuplicateEmail
	case "users_username_key":
		return service.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by exact email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByUsername retrieves a user by exact username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", arg, err)
	}
	return user, nil
}

// Update persists last login and the mirrored transfer PIN hash
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET last_login = $1, transfer_pin_hash = $2
		WHERE id = $3
	`
	result, err := r.q.Exec(ctx, query, user.LastLogin, user.TransferPinHash, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", user.ID)
	}
	return nil
}

// MarkFirstLogin flips has_logged_in_before with a conditional update so only one caller wins
func (r *UserRepository) MarkFirstLogin(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE users
		SET has_logged_in_before = TRUE
		WHERE id = $1 AND has_logged_in_before = FALSE
	`
	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark first login for user %s: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetAll returns all users in registration order
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.TransferPinHash,
		&user.CreatedAt,
		&user.LastLogin,
		&user.HasLoggedInBefore,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
