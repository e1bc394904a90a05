package db_schema

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

//go:embed *.sql
var fs embed.FS

// Apply executes every embedded SQL file against the database. All
// statements are idempotent (CREATE ... IF NOT EXISTS), so Apply is safe
// to run on every boot.
func Apply(ctx context.Context, db *sql.DB) error {
	files, err := fs.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read embed dir: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}

		ddl, err := fs.ReadFile(f.Name())
		if err != nil {
			return err
		}
		// One statement per exec: the pgx driver's extended protocol
		// rejects multi-statement strings.
		for _, stmt := range strings.Split(string(ddl), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema %s: %w", f.Name(), err)
			}
		}
		zap.L().Info("schema applied", zap.String("file", f.Name()))
	}
	return nil
}
