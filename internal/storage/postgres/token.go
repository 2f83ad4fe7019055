package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/palabeo/palabeo/internal/domain"
)

// Column order matches the fields of domain.RefreshToken so rows can be
// collected by position.
const tokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at, ip_address, user_agent`

// TokenRepository stores the refresh half of Palabeo sessions.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores the hash of a freshly issued refresh token.
func (r *TokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	_, err := getDB(ctx, r.pool).Exec(ctx, `
		INSERT INTO refresh_tokens (`+tokenColumns+`)
		VALUES (@id, @user_id, @token_hash, @expires_at, @created_at, NULL, @ip_address, @user_agent)`,
		pgx.NamedArgs{
			"id":         token.ID,
			"user_id":    token.UserID,
			"token_hash": token.TokenHash,
			"expires_at": token.ExpiresAt,
			"created_at": token.CreatedAt,
			"ip_address": token.IPAddress,
			"user_agent": token.UserAgent,
		})
	return mapError(err)
}

// GetByHash returns the token whose hash is hash, revoked or not, so the
// caller can detect reuse of a rotated token.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	rows, err := getDB(ctx, r.pool).Query(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = @hash`,
		pgx.NamedArgs{"hash": hash})
	if err != nil {
		return nil, mapError(err)
	}

	token, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[domain.RefreshToken])
	return token, mapError(err)
}

// Revoke ends one session. An unknown or already revoked token is
// domain.ErrNotFound.
func (r *TokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := getDB(ctx, r.pool).Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE id = @id AND revoked_at IS NULL`,
		pgx.NamedArgs{"id": id})
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RevokeAllForUser ends every open session of a user. Used on logout-all,
// refresh-token reuse, role changes and account deletion.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := getDB(ctx, r.pool).Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = @user_id AND revoked_at IS NULL`,
		pgx.NamedArgs{"user_id": userID})
	return mapError(err)
}

// DeleteExpired removes tokens that expired before cutoff.
func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := getDB(ctx, r.pool).Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < @cutoff`,
		pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
