package state

import (
	"context"
	"database/sql"

	"github.com/llehouerou/wavestream/internal/db"
)

const currentSchemaVersion = 1

func initSchema(ctx context.Context, conn *sql.DB) error {
	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY
			);

			CREATE TABLE IF NOT EXISTS preferences (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				volume REAL NOT NULL DEFAULT 1.0,
				shuffle INTEGER NOT NULL DEFAULT 0,
				repeat_enabled INTEGER NOT NULL DEFAULT 0,
				autoplay_on_end INTEGER NOT NULL DEFAULT 1,
				player_mode TEXT NOT NULL DEFAULT 'expanded',
				updated_at INTEGER NOT NULL
			);
		`)
		if err != nil {
			return err
		}

		// Set initial version if not exists
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO schema_version (version) VALUES (?)
		`, currentSchemaVersion)
		return err
	})
}
