// Package memory implements the storage interfaces in process memory.
// It backs the service and transport tests and mirrors the constraints the
// PostgreSQL schema enforces.
package memory

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// New returns empty repositories.
func New() *storage.Repositories {
	return &storage.Repositories{
		Users:  NewUserRepository(),
		Words:  NewWordRepository(),
		Tokens: NewTokenRepository(),
	}
}

// UserRepository stores users in a map. Deleted users are dropped.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if r.emailTaken(user.Email, "") {
		return domain.ErrAlreadyExists
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.users[user.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if existing.Version != user.Version {
		return domain.ErrVersionMismatch
	}
	if r.emailTaken(user.Email, user.ID) {
		return domain.ErrAlreadyExists
	}

	user.Version++
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[id]; !exists {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter storage.UserFilter) ([]domain.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []domain.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if search != "" {
			name := ""
			if u.Name != nil {
				name = *u.Name
			}
			if !strings.Contains(strings.ToLower(u.Email), search) && !strings.Contains(strings.ToLower(name), search) {
				continue
			}
		}
		matched = append(matched, u)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 {
		limit = validation.DefaultLimit
	}
	if offset >= len(items) {
		return nil
	}
	return items[offset:min(offset+limit, len(items))]
}

// WordRepository stores words in a map keyed by ID.
type WordRepository struct {
	mu     sync.RWMutex
	nextID int
	words  map[int]domain.Word
}

func NewWordRepository() *WordRepository {
	return &WordRepository{nextID: 1, words: make(map[int]domain.Word)}
}

func (r *WordRepository) Create(ctx context.Context, word *domain.Word) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if word.LangFrom == word.LangTo {
		return domain.ErrConflict
	}
	for _, w := range r.words {
		if w.UserID == word.UserID && strings.EqualFold(w.Word, word.Word) &&
			w.LangFrom == word.LangFrom && w.LangTo == word.LangTo {
			return domain.ErrAlreadyExists
		}
	}

	word.ID = r.nextID
	r.nextID++
	if word.CreatedAt.IsZero() {
		word.CreatedAt = time.Now().UTC()
	}
	r.words[word.ID] = *word
	return nil
}

func (r *WordRepository) GetByID(ctx context.Context, userID string, id int) (*domain.Word, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, exists := r.words[id]
	if !exists || w.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (r *WordRepository) Delete(ctx context.Context, userID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.words[id]
	if !exists || w.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.words, id)
	return nil
}

func (r *WordRepository) Search(ctx context.Context, userID string, filter storage.WordFilter) ([]domain.Word, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Word
	for _, w := range r.words {
		if w.UserID != userID || !matchesFilter(w, filter.WordsSearchParams) {
			continue
		}
		matched = append(matched, w)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func matchesFilter(w domain.Word, p validation.WordsSearchParams) bool {
	switch {
	case p.LangFrom != nil && w.LangFrom != *p.LangFrom:
		return false
	case p.LangTo != nil && w.LangTo != *p.LangTo:
		return false
	case p.TypeCode != nil && (w.TypeCode == nil || *w.TypeCode != *p.TypeCode):
		return false
	case p.Tag != nil && (w.Tag == nil || *w.Tag != *p.Tag):
		return false
	case p.Word != nil && !strings.HasPrefix(strings.ToLower(w.Word), strings.ToLower(*p.Word)):
		return false
	}
	return true
}

func (r *WordRepository) Random(ctx context.Context, userID string, filter storage.QuizFilter) ([]domain.Word, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Word
	for _, w := range r.words {
		if w.UserID != userID {
			continue
		}
		if !matchesFilter(w, validation.WordsSearchParams{LangFrom: filter.LangFrom, LangTo: filter.LangTo}) {
			continue
		}
		matched = append(matched, w)
	}

	rand.Shuffle(len(matched), func(i, j int) { matched[i], matched[j] = matched[j], matched[i] })
	if filter.Count > 0 && len(matched) > filter.Count {
		matched = matched[:filter.Count]
	}
	return matched, nil
}

func (r *WordRepository) RecordAnswer(ctx context.Context, userID string, id int, correct bool) (*domain.Word, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.words[id]
	if !exists || w.UserID != userID {
		return nil, domain.ErrNotFound
	}
	w.RecordAnswer(correct)
	r.words[id] = w
	return &w, nil
}

// TokenRepository stores refresh tokens in a map keyed by hash.
type TokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]domain.RefreshToken
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]domain.RefreshToken)}
}

func (r *TokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.TokenHash]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.TokenHash] = *token
	return nil
}

func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tokens[hash]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, t := range r.tokens {
		if t.ID == id && !t.IsRevoked() {
			t.Revoke()
			r.tokens[hash] = t
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, t := range r.tokens {
		if t.UserID == userID && !t.IsRevoked() {
			t.Revoke()
			r.tokens[hash] = t
		}
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n, nil
}

// Active returns the number of tokens of userID that are still valid.
func (r *TokenRepository) Active(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.IsValid() {
			n++
		}
	}
	return n
}

var (
	_ storage.UserRepository  = (*UserRepository)(nil)
	_ storage.WordRepository  = (*WordRepository)(nil)
	_ storage.TokenRepository = (*TokenRepository)(nil)
)
