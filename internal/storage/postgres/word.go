package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// WordRepository implements storage.WordRepository using PostgreSQL.
type WordRepository struct {
	pool *pgxpool.Pool
}

// NewWordRepository creates a new word repository.
func NewWordRepository(pool *pgxpool.Pool) *WordRepository {
	return &WordRepository{pool: pool}
}

const wordColumns = `id, user_id, word, translation, lang_from, lang_to,
	type_code, tag, attempts, correct, created_at`

// Create stores a new word and sets its ID.
func (r *WordRepository) Create(ctx context.Context, word *domain.Word) error {
	db := getDB(ctx, r.pool)

	err := db.QueryRow(ctx, `
		INSERT INTO words (user_id, word, translation, lang_from, lang_to, type_code, tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		word.UserID,
		word.Word,
		word.Translation,
		string(word.LangFrom),
		string(word.LangTo),
		word.TypeCode,
		word.Tag,
		word.CreatedAt,
	).Scan(&word.ID)

	return mapError(err)
}

// GetByID retrieves one of the user's words.
func (r *WordRepository) GetByID(ctx context.Context, userID string, id int) (*domain.Word, error) {
	db := getDB(ctx, r.pool)

	row := db.QueryRow(ctx, `
		SELECT `+wordColumns+`
		FROM words WHERE id = $1 AND user_id = $2`, id, userID)

	return scanWord(row)
}

// Delete removes one of the user's words.
func (r *WordRepository) Delete(ctx context.Context, userID string, id int) error {
	db := getDB(ctx, r.pool)

	result, err := db.Exec(ctx, `DELETE FROM words WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Search lists the user's words matching filter.
func (r *WordRepository) Search(ctx context.Context, userID string, filter storage.WordFilter) ([]domain.Word, int64, error) {
	db := getDB(ctx, r.pool)

	if filter.Limit <= 0 {
		filter.Limit = validation.DefaultLimit
	}

	var conds conditions
	conds.add("user_id = ?", userID)
	if filter.LangFrom != nil {
		conds.add("lang_from = ?", string(*filter.LangFrom))
	}
	if filter.LangTo != nil {
		conds.add("lang_to = ?", string(*filter.LangTo))
	}
	if filter.TypeCode != nil {
		conds.add("type_code = ?", *filter.TypeCode)
	}
	if filter.Tag != nil {
		conds.add("tag = ?", *filter.Tag)
	}
	if filter.Word != nil {
		conds.add("LOWER(word) LIKE LOWER(?)", *filter.Word+"%")
	}

	var total int64
	err := db.QueryRow(ctx, "SELECT COUNT(*) FROM words WHERE "+conds.where(), conds.args...).Scan(&total)
	if err != nil {
		return nil, 0, mapError(err)
	}

	pageClause, args := conds.page(filter.Limit, filter.Offset)
	rows, err := db.Query(ctx, `
		SELECT `+wordColumns+`
		FROM words WHERE `+conds.where()+`
		ORDER BY created_at DESC, id DESC`+pageClause, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	words, err := collectWords(rows)
	if err != nil {
		return nil, 0, err
	}
	return words, total, nil
}

// Random picks up to filter.Count words, favouring the ones answered
// correctly least often.
func (r *WordRepository) Random(ctx context.Context, userID string, filter storage.QuizFilter) ([]domain.Word, error) {
	db := getDB(ctx, r.pool)

	var conds conditions
	conds.add("user_id = ?", userID)
	if filter.LangFrom != nil {
		conds.add("lang_from = ?", string(*filter.LangFrom))
	}
	if filter.LangTo != nil {
		conds.add("lang_to = ?", string(*filter.LangTo))
	}

	args := append(conds.args, filter.Count)
	rows, err := db.Query(ctx, `
		SELECT `+wordColumns+`
		FROM words WHERE `+conds.where()+`
		ORDER BY random() * (1 + correct) / (1 + attempts)
		LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return collectWords(rows)
}

// RecordAnswer counts one quiz attempt and returns the updated word.
func (r *WordRepository) RecordAnswer(ctx context.Context, userID string, id int, correct bool) (*domain.Word, error) {
	db := getDB(ctx, r.pool)

	row := db.QueryRow(ctx, `
		UPDATE words SET
			attempts = attempts + 1,
			correct = correct + CASE WHEN $3 THEN 1 ELSE 0 END
		WHERE id = $1 AND user_id = $2
		RETURNING `+wordColumns, id, userID, correct)

	return scanWord(row)
}

type rowsScanner interface {
	scannable
	Next() bool
	Err() error
}

func collectWords(rows rowsScanner) ([]domain.Word, error) {
	var words []domain.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		words = append(words, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return words, nil
}

func scanWord(row scannable) (*domain.Word, error) {
	var w domain.Word
	var langFrom, langTo string

	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Word,
		&w.Translation,
		&langFrom,
		&langTo,
		&w.TypeCode,
		&w.Tag,
		&w.Attempts,
		&w.Correct,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	w.LangFrom = validation.Language(langFrom)
	w.LangTo = validation.Language(langTo)
	return &w, nil
}
