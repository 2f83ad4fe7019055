package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// JWTConfig holds configuration for session token generation.
type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        []string
}

// DefaultJWTConfig returns sensible defaults for JWT configuration.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour, // 7 days
		Issuer:          "palabeo",
		Audience:        []string{"palabeo"},
	}
}

type JWTManager struct {
	config JWTConfig
}

func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config}
}

// GenerateAccessToken signs a session token whose "user" claim carries the
// given identity, typically domain.User.SessionClaims.
func (m *JWTManager) GenerateAccessToken(userID string, user map[string]any) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.config.AccessTokenTTL)

	claims := jwt.MapClaims{
		"jti":  uuid.NewString(),
		"sub":  userID,
		"iss":  m.config.Issuer,
		"iat":  jwt.NewNumericDate(now),
		"nbf":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(expiresAt),
		"user": user,
	}
	if len(m.config.Audience) > 0 {
		claims["aud"] = m.config.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.config.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseAccessToken verifies the signature and lifetime of tokenString and
// returns its claims as a plain map. The shape of the "user" claim is left
// to validation.ValidateSession.
func (m *JWTManager) ParseAccessToken(tokenString string) (map[string]any, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
	}
	if len(m.config.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(m.config.Audience[0]))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(m.config.SecretKey), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return map[string]any(claims), nil
}

func (m *JWTManager) RefreshTokenTTL() time.Duration {
	return m.config.RefreshTokenTTL
}

func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.config.AccessTokenTTL
}
