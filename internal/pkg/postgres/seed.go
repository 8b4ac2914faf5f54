package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed executes each SQL file against pool in order. Files may hold several
// statements and should be safe to re-run.
func Seed(ctx context.Context, pool *pgxpool.Pool, files ...string) error {
	for _, file := range files {
		script, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		if _, err := pool.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("apply seed %s: %w", file, err)
		}
		slog.Info("database seeded", "file", file)
	}
	return nil
}
