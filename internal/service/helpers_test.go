package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/palabeo/palabeo/internal/auth"
	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/storage/memory"
	"github.com/palabeo/palabeo/internal/validation"
)

const (
	testSecret   = "test-secret-key-with-at-least-32-chars"
	testPassword = "Str0ng!Pass"
)

type env struct {
	users     *memory.UserRepository
	words     *memory.WordRepository
	tokens    *memory.TokenRepository
	publisher *event.RecordingPublisher
	jwt       *auth.JWTManager

	auth *service.AuthService
	user *service.UserService
	word *service.WordService
	quiz *service.QuizService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := auth.DefaultJWTConfig()
	cfg.SecretKey = testSecret

	e := &env{
		users:     memory.NewUserRepository(),
		words:     memory.NewWordRepository(),
		tokens:    memory.NewTokenRepository(),
		publisher: event.NewRecordingPublisher(),
		jwt:       auth.NewJWTManager(cfg),
	}
	e.auth = service.NewAuthService(e.users, e.tokens, e.jwt, auth.NewHasher(bcrypt.MinCost),
		service.StaticPolicy{}, e.publisher)
	e.user = service.NewUserService(e.users, e.tokens, e.publisher)
	e.word = service.NewWordService(e.words, e.publisher)
	e.quiz = service.NewQuizService(e.words, e.publisher)
	return e
}

func (e *env) register(t *testing.T, email string) *service.LoginResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), map[string]any{
		"email":    email,
		"password": testPassword,
	}, service.ClientInfo{IPAddress: "203.0.113.1", UserAgent: "test"})
	require.NoError(t, err)
	return res
}

func requireValidation(t *testing.T, err error, codes ...string) validation.Errors {
	t.Helper()
	var errs validation.Errors
	require.True(t, errors.As(err, &errs), "expected validation errors, got %v", err)
	require.Equal(t, codes, errs.Codes())
	return errs
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	out   []domain.Translation
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, from, to validation.Language) ([]domain.Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text+":"+string(from)+">"+string(to))
	return f.out, f.err
}

func (f *fakeTranslator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]domain.Translation
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]domain.Translation)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]domain.Translation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	v, found := c.entries[key]
	return v, found, nil
}

func (c *mapCache) Set(ctx context.Context, key string, translations []domain.Translation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = translations
	return nil
}

