package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one idempotent schema change, applied in order after
// schemaStatements on every Open. Each migration checks whether it is
// already applied before acting, so it is safe to run against a
// database at any prior version.
type Migration struct {
	Name string
	Func func(context.Context, *sql.DB) error
}

// migrations is the ordered list of changes applied after the base
// schema. Empty for now — the base schema in schema.go is the only
// version this implementation has shipped — so RunMigrations currently
// has nothing to apply; a real migration is added by appending to
// this list.
var migrations = []Migration{}

// RunMigrations executes every registered migration in order.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if err := m.Func(ctx, db); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}

func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, colType string) error {
	exists, err := columnExists(ctx, db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, colType))
	return err
}
