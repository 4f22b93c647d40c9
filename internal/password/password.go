// Package password isolates credential hashing from plain string comparison.
// Hashing is deliberately slow and self-salting: two hashes of the same
// plaintext never match, and verification reads the salt back out of the
// stored hash.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor. Fixed so stored hashes stay verifiable
// across deploys; raising it only affects newly written hashes.
const Cost = 10

// Hasher defines the interface for password hashing and verification,
// keeping the repository independent of the underlying algorithm.
type Hasher interface {
	// Hash generates a salted hash from a plaintext password.
	Hash(plaintext string) (string, error)

	// Check reports whether plaintext matches the stored hash.
	// A malformed hash is a mismatch, not an error.
	Check(plaintext, hash string) bool
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: Cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Check delegates the timing-safe comparison to bcrypt, which recomputes
// the digest with the salt embedded in hash.
func (h *BcryptHasher) Check(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
