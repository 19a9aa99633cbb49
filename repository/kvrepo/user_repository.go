package kvrepo

import (
	"context"
	"fmt"

	"noblechain/models"
	"noblechain/service"
)

type userRepository struct {
	s *stagedStore
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if _, taken, err := r.s.getOK(ctx, userEmailKey(user.Email)); err != nil {
		return fmt.Errorf("failed to check email %s: %w", user.Email, err)
	} else if taken {
		return service.ErrDuplicateEmail
	}
	if _, taken, err := r.s.getOK(ctx, userUsernameKey(user.Username)); err != nil {
		return fmt.Errorf("failed to check username %s: %w", user.Username, err)
	} else if taken {
		return service.ErrDuplicateUsername
	}

	if err := setJSON(r.s, userKey(user.ID), user); err != nil {
		return err
	}
	r.s.Set(userEmailKey(user.Email), []byte(user.ID))
	r.s.Set(userUsernameKey(user.Username), []byte(user.ID))
	r.s.Append(keyUsers, []byte(user.ID))
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return getJSON[models.User](ctx, r.s, userKey(id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.byIndex(ctx, userEmailKey(email))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.byIndex(ctx, userUsernameKey(username))
}

func (r *userRepository) byIndex(ctx context.Context, indexKey string) (*models.User, error) {
	id, ok, err := r.s.getOK(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", indexKey, err)
	}
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, string(id))
}

// Update only touches the mutable fields; the first-login flag moves through MarkFirstLogin
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	existing, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("user %s not found", user.ID)
	}
	existing.LastLogin = user.LastLogin
	existing.TransferPinHash = user.TransferPinHash
	return setJSON(r.s, userKey(user.ID), existing)
}

func (r *userRepository) MarkFirstLogin(ctx context.Context, id string) (bool, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, fmt.Errorf("user %s not found", id)
	}
	if user.HasLoggedInBefore {
		return false, nil
	}
	user.HasLoggedInBefore = true
	return true, setJSON(r.s, userKey(id), user)
}

func (r *userRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	ids, err := r.s.List(ctx, keyUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.GetByID(ctx, string(id))
		if err != nil {
			return nil, err
		}
		if user != nil {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	ids, err := r.s.List(ctx, keyUsers)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return len(ids), nil
}
