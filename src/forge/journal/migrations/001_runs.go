package migrations

import (
	"database/sql"
)

func migration001Runs() Migration {
	return Migration{
		Version:     1,
		Description: "Add runs table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE runs (
					id TEXT PRIMARY KEY,
					target TEXT NOT NULL,
					root TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'running',
					current_stage TEXT DEFAULT '',
					error_message TEXT DEFAULT '',
					kernel_size INTEGER DEFAULT 0,
					artifact_path TEXT DEFAULT '',
					started_at DATETIME NOT NULL,
					completed_at DATETIME
				)
			`)
			if err != nil {
				return err
			}

			_, err = tx.Exec(`CREATE INDEX idx_runs_started_at ON runs(started_at)`)
			return err
		},
	}
}
