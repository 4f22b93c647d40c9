package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/tosinxt/lendsqr/internal/logging"
	"github.com/tosinxt/lendsqr/internal/user"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrFirstNameRequired  = errors.New("first name is required")
	ErrLastNameRequired   = errors.New("last name is required")
)

// Service handles the register/login business logic. The HTTP layer does its
// own input-shape checks, but the service revalidates everything it depends
// on rather than trusting the caller.
type Service struct {
	users  UserRepository
	logger *logging.Logger
}

func NewService(users UserRepository, logger *logging.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger,
	}
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new user account with a hashed credential.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	newUser, err := s.users.Create(ctx, input.Email, input.Password, input.FirstName, input.LastName)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", newUser.ID)

	return newUser, nil
}

// Login verifies credentials and returns the matching user. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*user.User, error) {
	if email == "" || plaintext == "" {
		return nil, user.ErrInvalidCredentials
	}

	existingUser, err := s.users.VerifyCredentials(ctx, email, plaintext)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return nil, user.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	return existingUser, nil
}

// GetUser retrieves a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.users.FindByID(ctx, id)
}

// UpdateProfile applies a partial profile update. Email is immutable and not
// part of the update surface.
func (s *Service) UpdateProfile(ctx context.Context, id int64, fields user.ProfileUpdate) (*user.User, error) {
	if fields.FirstName != nil && *fields.FirstName == "" {
		return nil, ErrFirstNameRequired
	}
	if fields.LastName != nil && *fields.LastName == "" {
		return nil, ErrLastNameRequired
	}

	return s.users.UpdateProfile(ctx, id, fields)
}

// ChangePassword validates and stores a new credential for the user.
func (s *Service) ChangePassword(ctx context.Context, id int64, newPlaintext string) error {
	if newPlaintext == "" {
		return ErrPasswordRequired
	}
	if len(newPlaintext) < 8 {
		return ErrPasswordTooShort
	}

	return s.users.ChangePassword(ctx, id, newPlaintext)
}

// DeleteUser removes a user and returns the affected row count.
func (s *Service) DeleteUser(ctx context.Context, id int64) (int64, error) {
	count, err := s.users.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("user deleted", "user_id", id)
	}
	return count, nil
}

func validateRegisterInput(input RegisterInput) error {
	if input.Email == "" {
		return ErrEmailRequired
	}
	if len(input.Email) > 254 {
		return ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return ErrInvalidEmailFormat
	}
	if input.Password == "" {
		return ErrPasswordRequired
	}
	if len(input.Password) < 8 {
		return ErrPasswordTooShort
	}
	if input.FirstName == "" {
		return ErrFirstNameRequired
	}
	if input.LastName == "" {
		return ErrLastNameRequired
	}
	return nil
}
