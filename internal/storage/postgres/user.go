package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// UserRepository implements storage.UserRepository using PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, name, role, user_language,
	learned_language, created_at, updated_at, version`

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	db := getDB(ctx, r.pool)

	_, err := db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		string(user.UserLanguage),
		string(user.LearnedLanguage),
		user.CreatedAt,
		user.UpdatedAt,
		user.Version,
	)

	return mapError(err)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db := getDB(ctx, r.pool)

	row := db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1 AND deleted_at IS NULL`, id)

	return r.scanUser(row)
}

// GetByEmail retrieves a user by their email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db := getDB(ctx, r.pool)

	row := db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`, email)

	return r.scanUser(row)
}

// Update saves changes to an existing user with optimistic locking.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	db := getDB(ctx, r.pool)

	result, err := db.Exec(ctx, `
		UPDATE users SET
			email = $2,
			password_hash = $3,
			name = $4,
			role = $5,
			user_language = $6,
			learned_language = $7,
			updated_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $9 AND deleted_at IS NULL`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		string(user.Role),
		string(user.UserLanguage),
		string(user.LearnedLanguage),
		time.Now().UTC(),
		user.Version,
	)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		// Could be not found or version mismatch - check which
		existing, err := r.GetByID(ctx, user.ID)
		if err != nil {
			return err // Likely ErrNotFound
		}
		if existing.Version != user.Version {
			return domain.ErrVersionMismatch
		}
		return domain.ErrNotFound
	}

	user.Version++ // Update local version
	return nil
}

// Delete performs a soft delete.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	db := getDB(ctx, r.pool)

	result, err := db.Exec(ctx, `
		UPDATE users SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// List retrieves users with filtering and pagination.
func (r *UserRepository) List(ctx context.Context, filter storage.UserFilter) ([]domain.User, int64, error) {
	db := getDB(ctx, r.pool)

	if filter.Limit <= 0 {
		filter.Limit = validation.DefaultLimit
	}
	if filter.Limit > validation.MaxLimit {
		filter.Limit = validation.MaxLimit
	}

	var conds conditions
	conds.addRaw("deleted_at IS NULL")
	if filter.Role != nil {
		conds.add("role = ?", string(*filter.Role))
	}
	if filter.Search != "" {
		conds.add("(LOWER(email) LIKE LOWER(?) OR LOWER(COALESCE(name, '')) LIKE LOWER(?))", "%"+filter.Search+"%")
	}

	var total int64
	err := db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE "+conds.where(), conds.args...).Scan(&total)
	if err != nil {
		return nil, 0, mapError(err)
	}

	pageClause, args := conds.page(filter.Limit, filter.Offset)
	rows, err := db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE `+conds.where()+`
		ORDER BY created_at DESC`+pageClause, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err)
	}

	return users, total, nil
}

// scannable is satisfied by both pgx.Row and pgx.Rows
type scannable interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row scannable) (*domain.User, error) {
	var user domain.User
	var role, userLang, learnedLang string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&role,
		&userLang,
		&learnedLang,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, mapError(err)
	}

	user.Role = validation.Role(role)
	user.UserLanguage = validation.Language(userLang)
	user.LearnedLanguage = validation.Language(learnedLang)

	return &user, nil
}
