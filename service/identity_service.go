package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noblechain/events"
	"noblechain/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// identityService implements the IdentityService interface
type identityService struct {
	uowFactory UnitOfWorkFactory
	bcryptCost int
}

// NewIdentityService creates a new identity service. A cost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func NewIdentityService(uowFactory UnitOfWorkFactory, bcryptCost int) IdentityService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &identityService{
		uowFactory: uowFactory,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user with a zero-balance wallet and signs them in
func (s *identityService) Register(ctx context.Context, email, password, username string) (*models.User, *models.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users := uow.UserRepository()

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrDuplicateEmail
	}

	existing, err = users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrDuplicateUsername
	}

	user := &models.User{
		ID:           newID(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		// the repository reports races lost on the unique constraints with the same sentinels
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := uow.WalletRepository().Create(ctx, models.NewWallet(user.ID)); err != nil {
		return nil, nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	session, err := startSession(ctx, uow, user.ID)
	if err != nil {
		return nil, nil, err
	}

	uow.EventBus().Publish(events.UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	})

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   user.ID,
		"username": user.Username,
	}).Info("User registered")

	return user, session, nil
}

// Authenticate checks credentials and audits the attempt whatever the outcome
func (s *identityService) Authenticate(ctx context.Context, email, password, device string) (*models.User, *models.Session, error) {
	if device == "" {
		device = "Unknown"
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	audit := &models.LoginAudit{
		ID:        newID(),
		Email:     email,
		Device:    device,
		Timestamp: time.Now().UTC(),
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		if user != nil {
			audit.UserID = user.ID
		}
		if err := uow.LoginAuditRepository().Record(ctx, audit); err != nil {
			return nil, nil, fmt.Errorf("failed to record login audit: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		log.WithFields(log.Fields{
			"email":  email,
			"device": device,
		}).Warn("Failed login attempt")
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update last login: %w", err)
	}

	session, err := startSession(ctx, uow, user.ID)
	if err != nil {
		return nil, nil, err
	}

	audit.UserID = user.ID
	audit.Success = true
	if err := uow.LoginAuditRepository().Record(ctx, audit); err != nil {
		return nil, nil, fmt.Errorf("failed to record login audit: %w", err)
	}

	first, err := uow.UserRepository().MarkFirstLogin(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if first {
		user.HasLoggedInBefore = true
		uow.EventBus().Publish(events.FirstLoginEvent{
			UserID:   user.ID,
			Email:    user.Email,
			Username: user.Username,
		})
	}

	uow.EventBus().Publish(events.UserLoggedInEvent{
		UserID: user.ID,
		Device: device,
	})

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, session, nil
}

func startSession(ctx context.Context, uow UnitOfWork, userID string) (*models.Session, error) {
	session := &models.Session{
		Token:     newSessionToken(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := uow.SessionRepository().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// EndSession clears the user's active session
func (s *identityService) EndSession(ctx context.Context, userID string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return uow.Commit()
}

// CurrentSession resolves a bearer token to its session
func (s *identityService) CurrentSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	return session, nil
}

func (s *identityService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns every user in registration order
func (s *identityService) ListUsers(ctx context.Context) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.UserRepository().GetAll(ctx)
}

// LoginHistory returns the user's audit entries, or every entry for an empty id
func (s *identityService) LoginHistory(ctx context.Context, userID string) ([]*models.LoginAudit, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if userID == "" {
		return uow.LoginAuditRepository().GetAll(ctx)
	}
	return uow.LoginAuditRepository().GetByUser(ctx, userID)
}
