package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/palabeo/palabeo/internal/auth"
	"github.com/palabeo/palabeo/internal/config"
	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/metrics"
	"github.com/palabeo/palabeo/internal/ratelimit"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/storage/memory"
	httptransport "github.com/palabeo/palabeo/internal/transport/http"
	"github.com/palabeo/palabeo/internal/validation"
)

const testPassword = "Str0ng!Pass"

type stubTranslator struct {
	err error
}

func (s stubTranslator) Translate(ctx context.Context, text string, from, to validation.Language) ([]domain.Translation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Translation{{Text: "maison", Type: "noun"}}, nil
}

type testServer struct {
	handler   http.Handler
	users     *service.UserService
	collector *metrics.Collector
}

func newTestServer(t *testing.T, translator service.Translator, rateLimit int) *testServer {
	t.Helper()

	cfg := &config.Config{
		SessionCookieName: "palabeo_session",
		JWTSecretKey:      "test-secret-key-with-at-least-32-chars",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   time.Hour,
	}
	jwtCfg := auth.DefaultJWTConfig()
	jwtCfg.SecretKey = cfg.JWTSecretKey

	repos := memory.New()
	publisher := event.NewNoopPublisher()
	collector := metrics.NewCollector()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)

	users := service.NewUserService(repos.Users, repos.Tokens, publisher)
	srv := httptransport.NewServer(cfg, httptransport.Deps{
		Auth: service.NewAuthService(repos.Users, repos.Tokens, auth.NewJWTManager(jwtCfg),
			auth.NewHasher(bcrypt.MinCost), service.StaticPolicy{}, publisher),
		Users:     users,
		Words:     service.NewWordService(repos.Words, publisher),
		Quiz:      service.NewQuizService(repos.Words, publisher),
		Translate: service.NewTranslateService(translator, nil, collector, logger),
		Limiter:   ratelimit.New(store, rateLimit, time.Minute),
		Metrics:   collector,
		HealthChecks: map[string]httptransport.HealthCheck{
			"database": func(context.Context) error { return nil },
		},
	}, logger)

	return &testServer{handler: srv.Handler(), users: users, collector: collector}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

type authBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (ts *testServer) register(t *testing.T, email string) authBody {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"email": email, "password": testPassword})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body authBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// admin registers an account, promotes it and signs in again so that the
// session carries the new role.
func (ts *testServer) admin(t *testing.T, email string) authBody {
	t.Helper()
	registered := ts.register(t, email)
	_, err := ts.users.SetRole(context.Background(), registered.User.ID, "ADMIN")
	require.NoError(t, err)

	w := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	var body authBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeValidation(t *testing.T, w *httptest.ResponseRecorder) validation.ErrorResponse {
	t.Helper()
	var body validation.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)
	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "palabeo_http_requests_total")
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)
	w := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"email": "nope", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeValidation(t, w)
	assert.Equal(t, "Validation failed", body.Error)
	assert.True(t, body.Details.Has("email"))
	assert.True(t, body.Details.HasCode(validation.CodeTooShort))
	assert.Contains(t, body.Message, "email: Invalid email format")

	w = ts.do(t, http.MethodPost, "/api/auth/register", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{validation.CodeRequired, validation.CodeRequired}, decodeValidation(t, w).Details.Codes())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("[1,2]"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, decodeValidation(t, rec).Details.Has("body"))
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)
	registered := ts.register(t, "ana@example.com")
	assert.Equal(t, "USER", registered.User.Role)

	w := ts.do(t, http.MethodGet, "/api/auth/session", registered.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session validation.SessionData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, registered.User.ID, session.UserID)

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ana@example.com", "password": "Wr0ng!Pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": registered.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Cookies())

	w = ts.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": registered.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, decodeValidation(t, w).Details.Has("refreshToken"))
}

func TestSessionRequired(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{name: "missing", token: "", code: validation.CodeRequired},
		{name: "garbage", token: "not-a-token", code: validation.CodeInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := ts.do(t, http.MethodGet, "/api/words", tt.token, nil)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeValidation(t, w)
			assert.Equal(t, []string{tt.code}, body.Details.Codes())
			assert.True(t, body.Details.Has(validation.FieldSession))
		})
	}
}

func TestSessionCookie(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)
	registered := ts.register(t, "ana@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "palabeo_session", Value: registered.AccessToken})
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWordsAndQuiz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)
	token := ts.register(t, "ana@example.com").AccessToken

	w := ts.do(t, http.MethodGet, "/api/quiz", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/words", token, map[string]any{
		"word": "casa", "translation": "maison", "langFrom": "es", "langTo": "fr",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))

	w = ts.do(t, http.MethodPost, "/api/words", token, map[string]any{
		"word": "casa", "translation": "maison", "langFrom": "es", "langTo": "fr",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/words?word=ca&limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = ts.do(t, http.MethodGet, "/api/words?limit=101", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{validation.CodeLimitTooLarge}, decodeValidation(t, w).Details.Codes())

	w = ts.do(t, http.MethodGet, "/api/words/abc", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{validation.CodeInvalidWordIDFormat}, decodeValidation(t, w).Details.Codes())

	w = ts.do(t, http.MethodGet, "/api/quiz?count=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"word":"casa"`)
	assert.NotContains(t, w.Body.String(), "maison")

	w = ts.do(t, http.MethodPost, "/api/quiz/answer", token, map[string]any{"wordId": saved.ID, "answer": "MAISON"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"correct":true`)

	w = ts.do(t, http.MethodDelete, "/api/words/1", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/words/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, stubTranslator{}, 5)
		token := ts.register(t, "ana@example.com").AccessToken

		w := ts.do(t, http.MethodGet, "/api/translate?word=casa&isReversedLang=false", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t,
			`{"word":"casa","from":"es","to":"fr","translations":[{"text":"maison","type":"noun"}],"cached":false}`,
			w.Body.String())
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))

		w = ts.do(t, http.MethodGet, "/api/translate?word=&from=es&to=es", token, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{validation.CodeRequired, validation.CodeSameLanguages}, decodeValidation(t, w).Details.Codes())
	})

	t.Run("upstream failure", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, stubTranslator{err: errors.Join(domain.ErrUpstream, errors.New("boom"))}, 5)
		token := ts.register(t, "ana@example.com").AccessToken

		w := ts.do(t, http.MethodGet, "/api/translate?word=casa", token, nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("rate limited before validation", func(t *testing.T) {
		t.Parallel()

		ts := newTestServer(t, stubTranslator{}, 2)
		for range 2 {
			w := ts.do(t, http.MethodGet, "/api/translate", "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		}

		w := ts.do(t, http.MethodGet, "/api/translate", "", nil)
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))

		w = ts.do(t, http.MethodGet, "/metrics", "", nil)
		assert.Contains(t, w.Body.String(), "palabeo_rate_limited_total 1")
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, stubTranslator{}, 5)
	user := ts.register(t, "ana@example.com")
	admin := ts.admin(t, "root@example.com")

	w := ts.do(t, http.MethodGet, "/api/users", user.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodGet, "/api/users?page=1&limit=10", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)

	w = ts.do(t, http.MethodPost, "/api/users", admin.AccessToken, map[string]any{
		"email": "bob@example.com", "name": "Bob", "userLanguage": "es", "learnedLanguage": "es",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{validation.CodeSameLanguages}, decodeValidation(t, w).Details.Codes())

	w = ts.do(t, http.MethodPost, "/api/users", admin.AccessToken, map[string]any{"email": "bob@example.com", "name": "Bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/api/users/not-a-cuid", admin.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{validation.CodeInvalidCUIDFormat}, decodeValidation(t, w).Details.Codes())

	w = ts.do(t, http.MethodPatch, "/api/users/"+user.User.ID, admin.AccessToken, map[string]any{"name": "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ana"`)

	w = ts.do(t, http.MethodPut, "/api/users/"+admin.User.ID+"/role", admin.AccessToken, map[string]any{"role": "USER"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPut, "/api/users/"+user.User.ID+"/role", admin.AccessToken, map[string]any{"role": "ADMIN"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"ADMIN"`)

	w = ts.do(t, http.MethodDelete, "/api/users/"+user.User.ID, admin.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
