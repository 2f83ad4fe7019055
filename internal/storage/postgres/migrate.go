package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrate applies every pending migration. Migrations come from dir when it
// is set and from the copies embedded in the binary otherwise.
func (db *DB) Migrate(ctx context.Context, dir string, logger *slog.Logger) error {
	var fsys fs.FS = embeddedMigrations
	path := "migrations"
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("migrations directory: %w", err)
		}
		fsys = os.DirFS(dir)
		path = "."
	}

	// goose works on database/sql, so bridge the pool.
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, mustSub(fsys, path),
		goose.WithLogger(gooseLogger{logger}),
	)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	if dir == "." {
		return fsys
	}
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
