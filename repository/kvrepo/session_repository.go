package kvrepo

import (
	"context"

	"noblechain/models"
)

type sessionRepository struct {
	s *stagedStore
}

func (r *sessionRepository) Save(ctx context.Context, session *models.Session) error {
	if err := r.Delete(ctx, session.UserID); err != nil {
		return err
	}
	if err := setJSON(r.s, sessionUserKey(session.UserID), session); err != nil {
		return err
	}
	r.s.Set(sessionTokenKey(session.Token), []byte(session.UserID))
	return nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	userID, ok, err := r.s.getOK(ctx, sessionTokenKey(token))
	if err != nil || !ok {
		return nil, err
	}
	session, err := r.GetByUserID(ctx, string(userID))
	if err != nil || session == nil {
		return nil, err
	}
	// The token index may outlive a replaced session
	if session.Token != token {
		return nil, nil
	}
	return session, nil
}

func (r *sessionRepository) GetByUserID(ctx context.Context, userID string) (*models.Session, error) {
	return getJSON[models.Session](ctx, r.s, sessionUserKey(userID))
}

func (r *sessionRepository) Delete(ctx context.Context, userID string) error {
	existing, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	r.s.Remove(sessionTokenKey(existing.Token))
	r.s.Remove(sessionUserKey(userID))
	return nil
}

type pinRepository struct {
	s *stagedStore
}

func (r *pinRepository) Get(ctx context.Context, userID string) (*models.PinSlot, error) {
	return getJSON[models.PinSlot](ctx, r.s, pinKey(userID))
}

func (r *pinRepository) Save(ctx context.Context, slot *models.PinSlot) error {
	return setJSON(r.s, pinKey(slot.UserID), slot)
}
