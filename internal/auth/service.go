package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/entities"
)

// ErrValidation marks input rejected before it reaches the database.
var ErrValidation = errors.New("validation failed")

var (
	ErrFirstNameRequired = fmt.Errorf("%w: first name is required", ErrValidation)
	ErrLastNameRequired  = fmt.Errorf("%w: last name is required", ErrValidation)
	ErrUsernameRequired  = fmt.Errorf("%w: username is required", ErrValidation)
	ErrPasswordRequired  = fmt.Errorf("%w: password is required", ErrValidation)

	ErrUserExists   = fmt.Errorf("user already exists: %w", database.ErrConflict)
	ErrUserNotFound = fmt.Errorf("user not found: %w", database.ErrNotFound)
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	CreateUser(ctx context.Context, user *entities.User) error
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Service handles account creation and credential checks.
type Service struct {
	users  UserRepository
	config config.Auth
	dummy  *dummyHasher
}

// NewService creates a new authentication service.
func NewService(users UserRepository, cfg config.Auth) *Service {
	return &Service{
		users:  users,
		config: cfg,
		dummy:  &dummyHasher{cost: cfg.BcryptCost},
	}
}

// UsernameExists reports whether username is taken. Registration uses it to
// word the error early; the unique index remains the real guard.
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.users.UsernameExists(ctx, username)
}

// CreateUser validates the fields, hashes the password and stores the account.
func (s *Service) CreateUser(ctx context.Context, firstName, lastName, username, password string) (*entities.User, error) {
	switch {
	case isBlank(firstName):
		return nil, ErrFirstNameRequired
	case isBlank(lastName):
		return nil, ErrLastNameRequired
	case isBlank(username):
		return nil, ErrUsernameRequired
	case isBlank(password):
		return nil, ErrPasswordRequired
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Username:     username,
		PasswordHash: passwordHash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return user, nil
}

// ValidateCredentials reports whether username and password match a stored
// account. Unknown usernames take as long as wrong passwords.
func (s *Service) ValidateCredentials(ctx context.Context, username, password string) (bool, error) {
	_, err := s.GetUserByCredentials(ctx, username, password)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// GetUserByCredentials returns the account matching username and password,
// or ErrUserNotFound.
func (s *Service) GetUserByCredentials(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.dummy.compare(password)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CountUsers returns the number of registered accounts.
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountUsers(ctx)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
