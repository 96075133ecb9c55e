package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so running it on an initialised database is a no-op.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		log.Debug().Str("migration", name).Msg("Migration applied")
	}
	return nil
}
