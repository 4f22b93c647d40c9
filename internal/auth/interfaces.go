package auth

import (
	"context"

	"github.com/tosinxt/lendsqr/internal/user"
)

// UserRepository defines the persistence operations the auth service needs.
// Satisfied by *user.Repository.
type UserRepository interface {
	Create(ctx context.Context, email, plaintext, firstName, lastName string) (*user.User, error)
	FindByID(ctx context.Context, id int64) (*user.User, error)
	UpdateProfile(ctx context.Context, id int64, fields user.ProfileUpdate) (*user.User, error)
	ChangePassword(ctx context.Context, id int64, newPlaintext string) error
	Delete(ctx context.Context, id int64) (int64, error)
	VerifyCredentials(ctx context.Context, email, plaintext string) (*user.User, error)
}

// RateLimiter defines the request throttling the handlers apply to
// credential endpoints. Satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequest(ctx context.Context, ip, purpose string) error
}
