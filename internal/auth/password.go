// Package auth provides authentication utilities including session tokens
// and password handling. Password strength rules live in the validation
// package; this package only hashes and compares.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Password hashing cost. 12 is a good balance between security and performance.
const bcryptCost = 12

// ErrInvalidPassword is returned when a password does not match or cannot be hashed.
var ErrInvalidPassword = errors.New("invalid password")

// Hasher hashes and checks passwords. Tests swap in a cheaper cost.
type Hasher struct {
	cost int
}

// NewHasher returns a bcrypt Hasher. A cost of 0 selects the default.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcryptCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	// bcrypt ignores everything past 72 bytes; refuse rather than truncate.
	if password == "" || len(password) > 72 {
		return "", ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Check verifies a password against its hash.
func (h *Hasher) Check(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

// HashToken hashes a refresh token for storage.
// We use SHA-256 for refresh tokens since they're already high-entropy.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CompareTokenHash securely compares a token against its stored hash.
func CompareTokenHash(token, hash string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
