package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/finledger/finledger-be/internal/ledger"
	"github.com/finledger/finledger-be/internal/models"
	"github.com/finledger/finledger-be/internal/storage"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	CreateUser(ctx context.Context, name, email, password string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	store  storage.Store
	events EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(store storage.Store, events EventServiceProvider) *UserService {
	return &UserService{store: store, events: events}
}

// CreateUser registers a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, name, email, password string) (models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.User{}, ledger.ErrEmailTaken
		}
		return models.User{}, err
	}

	if s.events != nil {
		if err := s.events.Record(ctx, "user.registered", "info", "new account registered", &user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record registration event")
		}
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, ledger.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ledger.ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, ledger.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Compile-time check: UserService implements UserServiceProvider.
var _ UserServiceProvider = (*UserService)(nil)
