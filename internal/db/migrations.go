package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: one pending extension per loan.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_extension_requests_pending
	     ON extension_requests(loan_id) WHERE status = 'PENDING'`,
	// Migration 2: at most one late-return fine per loan.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_fines_late_once
	     ON fines(loan_id) WHERE type = 'LATE_RETURN'`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
