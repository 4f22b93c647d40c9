package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/tosinxt/lendsqr/internal/password"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// Repository handles user data persistence. All credential writes go through
// the hasher, so a plaintext password never reaches a query.
type Repository struct {
	db     *bun.DB
	hasher password.Hasher
}

func NewRepository(db *bun.DB, hasher password.Hasher) *Repository {
	return &Repository{db: db, hasher: hasher}
}

// Create hashes the password and inserts a new user. The created row is
// re-read by its generated id so the caller always sees the server-assigned
// fields (id, timestamps).
func (r *Repository) Create(ctx context.Context, email, plaintext, firstName, lastName string) (*User, error) {
	hash, err := r.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser := &User{
		Email:     email,
		Password:  hash,
		FirstName: firstName,
		LastName:  lastName,
	}

	_, err = r.db.NewInsert().
		Model(dbUser).
		Returning("id").
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.FindByID(ctx, dbUser.ID)
}

// FindByEmail retrieves a user by email. A miss is ErrNotFound, not a
// storage failure.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return dbUser, nil
}

// FindByID retrieves a user by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	dbUser := new(User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return dbUser, nil
}

// ProfileUpdate lists the updatable profile columns. A nil field is left
// untouched. Email is immutable and deliberately absent; password changes go
// through ChangePassword.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

// UpdateProfile applies the provided fields and stamps updated_at regardless
// of which fields changed. Returns ErrNotFound if the id does not exist.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, fields ProfileUpdate) (*User, error) {
	q := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id)

	if fields.FirstName != nil {
		q = q.Set("first_name = ?", *fields.FirstName)
	}
	if fields.LastName != nil {
		q = q.Set("last_name = ?", *fields.LastName)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.FindByID(ctx, id)
}

// ChangePassword hashes the new password and stores it, stamping updated_at.
// The plaintext never reaches the persisted state.
func (r *Repository) ChangePassword(ctx context.Context, id int64, newPlaintext string) error {
	hash, err := r.hasher.Hash(newPlaintext)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("password = ?", hash).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete hard-deletes a user and returns the number of rows removed.
// Deleting an absent id is a no-op with count 0, not an error.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// VerifyCredentials looks up a user by email and checks the password.
// Unknown email and wrong password both come back as ErrInvalidCredentials,
// so the response shape never reveals which accounts exist.
func (r *Repository) VerifyCredentials(ctx context.Context, email, plaintext string) (*User, error) {
	dbUser, err := r.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !r.hasher.Check(plaintext, dbUser.Password) {
		return nil, ErrInvalidCredentials
	}

	return dbUser, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
