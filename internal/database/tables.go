package database

import (
	"database/sql"
	"fmt"
)

// initJobsTable initializes the job journal table.
func initJobsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS jobs (
        row_id INTEGER PRIMARY KEY AUTOINCREMENT,
        job_id TEXT NOT NULL UNIQUE,
        title TEXT,
        status TEXT NOT NULL,
        percent REAL DEFAULT 0,
        downloaded INTEGER DEFAULT 0,
        total INTEGER DEFAULT -1,
        error TEXT,
        output_path TEXT,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
    CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	return nil
}
