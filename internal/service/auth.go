package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/palabeo/palabeo/internal/auth"
	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// PolicySource returns the password policy new passwords are checked
// against. denylist.Source implements it.
type PolicySource interface {
	Policy() *validation.PasswordPolicy
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy struct {
	P *validation.PasswordPolicy
}

func (s StaticPolicy) Policy() *validation.PasswordPolicy {
	if s.P == nil {
		return validation.DefaultPasswordPolicy()
	}
	return s.P
}

// AuthService handles registration, sign-in and sessions.
type AuthService struct {
	users     storage.UserRepository
	tokens    storage.TokenRepository
	jwt       *auth.JWTManager
	hasher    *auth.Hasher
	passwords PolicySource
	publisher event.Publisher
}

func NewAuthService(
	users storage.UserRepository,
	tokens storage.TokenRepository,
	jwt *auth.JWTManager,
	hasher *auth.Hasher,
	passwords PolicySource,
	publisher event.Publisher,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		jwt:       jwt,
		hasher:    hasher,
		passwords: passwords,
		publisher: publisher,
	}
}

// ClientInfo identifies where a session was opened from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LoginResult contains the session and the signed-in user.
type LoginResult struct {
	Session *domain.Session
	User    *domain.User
}

// Register creates a USER account with the default languages and signs it
// in. Invalid input is returned as validation.Errors.
func (s *AuthService) Register(ctx context.Context, payload map[string]any, client ClientInfo) (*LoginResult, error) {
	res := validation.ValidateRegistrationData(payload, s.passwords.Policy())
	if !res.Success {
		return nil, res.Errors
	}

	passwordHash, err := s.hasher.Hash(res.Data.Password)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(res.Data.Email, res.Data.Name, validation.RoleUser, "", "")
	user.PasswordHash = passwordHash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.UserRegisteredEvent(user))

	return s.startSession(ctx, user, client)
}

// Login checks credentials and opens a session. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredential.
func (s *AuthService) Login(ctx context.Context, payload map[string]any, client ClientInfo) (*LoginResult, error) {
	res := validation.ValidateLoginData(payload)
	if !res.Success {
		return nil, res.Errors
	}

	user, err := s.users.GetByEmail(ctx, res.Data.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}

	if err := s.hasher.Check(res.Data.Password, user.PasswordHash); err != nil {
		return nil, domain.ErrInvalidCredential
	}

	return s.startSession(ctx, user, client)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User, client ClientInfo) (*LoginResult, error) {
	session, err := s.issueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.UserLoggedInEvent(user.ID, client.IPAddress, client.UserAgent))

	return &LoginResult{Session: session, User: user}, nil
}

// Refresh exchanges a refresh token for a new session. Each refresh token
// works once; presenting a revoked one revokes every session of its user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidCredential
	}

	storedToken, err := s.tokens.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	if !storedToken.IsValid() {
		// A revoked token coming back means it was copied.
		if storedToken.IsRevoked() {
			_ = s.tokens.RevokeAllForUser(ctx, storedToken.UserID)
			return nil, domain.ErrTokenRevoked
		}
		return nil, domain.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, storedToken.UserID)
	if err != nil {
		_ = s.tokens.Revoke(ctx, storedToken.ID)
		return nil, domain.ErrInvalidCredential
	}

	if err := s.tokens.Revoke(ctx, storedToken.ID); err != nil {
		return nil, err
	}

	session, err := s.issueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session, User: user}, nil
}

// Logout revokes one refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	storedToken, err := s.tokens.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return nil
	}

	if err := s.tokens.Revoke(ctx, storedToken.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventUserLoggedOut, storedToken.UserID, nil))

	return nil
}

// LogoutAll revokes every refresh token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventUserLoggedOut, userID, map[string]any{"all": true}))

	return nil
}

// ParseSession verifies a session token and validates the identity it
// carries. A missing token, a bad signature or an expired token fail with
// a SessionError, as does a token whose claims are malformed.
func (s *AuthService) ParseSession(token string) (validation.SessionData, error) {
	if token == "" {
		return validation.SessionData{}, newSessionError(validation.ValidateSession(nil).Errors, domain.ErrUnauthorized)
	}

	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		cause := domain.ErrUnauthorized
		if errors.Is(err, auth.ErrExpiredToken) {
			cause = domain.ErrTokenExpired
		}
		return validation.SessionData{}, &SessionError{cause: cause}
	}

	res := validation.ValidateSession(claims)
	if !res.Success {
		return validation.SessionData{}, newSessionError(res.Errors, domain.ErrUnauthorized)
	}
	return res.Data, nil
}

// ExpiredTokenRetention is how long an expired refresh token is kept, so a
// late replay of a rotated token is still detected as reuse.
const ExpiredTokenRetention = 7 * 24 * time.Hour

// CleanupExpiredTokens removes refresh tokens that expired more than
// ExpiredTokenRetention ago.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, time.Now().UTC().Add(-ExpiredTokenRetention))
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User, client ClientInfo) (*domain.Session, error) {
	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, user.SessionClaims())
	if err != nil {
		return nil, err
	}

	refreshTokenString, err := domain.GenerateTokenString()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	refreshToken := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: auth.HashToken(refreshTokenString),
		ExpiresAt: now.Add(s.jwt.RefreshTokenTTL()),
		CreatedAt: now,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}

	if err := s.tokens.Create(ctx, refreshToken); err != nil {
		return nil, err
	}

	return &domain.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		ExpiresAt:    expiresAt,
		ExpiresIn:    int64(s.jwt.AccessTokenTTL().Seconds()),
	}, nil
}

// SessionError is returned when a request carries no usable session.
// Errors is set when the session's contents failed validation.
type SessionError struct {
	Errors validation.Errors
	cause  error
}

func newSessionError(errs validation.Errors, cause error) *SessionError {
	return &SessionError{Errors: errs, cause: cause}
}

func (e *SessionError) Error() string {
	if len(e.Errors) > 0 {
		return "invalid session: " + e.Errors.Error()
	}
	if e.cause == nil {
		return "invalid session"
	}
	return "invalid session: " + e.cause.Error()
}

func (e *SessionError) Unwrap() error {
	return e.cause
}
