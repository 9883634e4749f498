package migrations

import (
	"database/sql"
)

func migration002BootState() Migration {
	return Migration{
		Version:     2,
		Description: "Record boot verification outcome",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`ALTER TABLE runs ADD COLUMN boot_state TEXT DEFAULT ''`); err != nil {
				return err
			}
			_, err := tx.Exec(`CREATE INDEX idx_runs_status ON runs(status)`)
			return err
		},
	}
}
