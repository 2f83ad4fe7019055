// Package storage defines the repository interfaces for data persistence.
//
// These interfaces keep the services independent of PostgreSQL and let
// tests run against in-memory implementations.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/validation"
)

// UserRepository defines the operations for user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email. Returns ErrNotFound if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update saves changes to an existing user. Uses optimistic locking via version.
	// Returns ErrVersionMismatch if the version doesn't match.
	// Returns ErrNotFound if the user doesn't exist.
	Update(ctx context.Context, user *domain.User) error

	// Delete performs a soft delete. Returns ErrNotFound if the user doesn't exist.
	Delete(ctx context.Context, id string) error

	// List retrieves users with pagination and optional filtering.
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)
}

// UserFilter contains options for filtering and paginating user lists.
type UserFilter struct {
	Role   *validation.Role
	Search string // Searches email and name
	Offset int
	Limit  int
}

// WordRepository defines operations on a user's saved words. Every lookup
// is scoped to the owner so one user can never reach another's words.
type WordRepository interface {
	// Create stores a new word and sets its ID. Returns ErrAlreadyExists if
	// the user already saved the same word in the same direction.
	Create(ctx context.Context, word *domain.Word) error

	// GetByID retrieves one of the user's words. Returns ErrNotFound otherwise.
	GetByID(ctx context.Context, userID string, id int) (*domain.Word, error)

	// Delete removes one of the user's words. Returns ErrNotFound otherwise.
	Delete(ctx context.Context, userID string, id int) error

	// Search lists the user's words matching filter, newest first, and the
	// total number of matches.
	Search(ctx context.Context, userID string, filter WordFilter) ([]domain.Word, int64, error)

	// Random picks up to filter.Count of the user's words for a quiz.
	Random(ctx context.Context, userID string, filter QuizFilter) ([]domain.Word, error)

	// RecordAnswer counts one quiz attempt and returns the updated word.
	RecordAnswer(ctx context.Context, userID string, id int, correct bool) (*domain.Word, error)
}

// WordFilter narrows a word search. Nil fields match everything; Word is
// matched as a case-insensitive prefix.
type WordFilter struct {
	validation.WordsSearchParams
	Offset int
	Limit  int
}

// QuizFilter selects the words a quiz may ask about.
type QuizFilter struct {
	LangFrom *validation.Language
	LangTo   *validation.Language
	Count    int
}

// TokenRepository defines operations for refresh token persistence.
type TokenRepository interface {
	// Create stores a new refresh token.
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetByHash retrieves a token by its hash.
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)

	// Revoke marks a token as revoked.
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeAllForUser revokes all tokens for a user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// DeleteExpired removes tokens that expired before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repositories bundles all repositories together.
// This makes it easy to pass around and inject dependencies.
type Repositories struct {
	Users  UserRepository
	Words  WordRepository
	Tokens TokenRepository
}

// Transactor provides transaction support for operations that need atomicity.
// Not all operations need transactions, so we keep this separate.
type Transactor interface {
	// WithTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
