package knowledge

import "database/sql"

// migrate creates the schema if it doesn't exist.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS chunks (
			id        TEXT PRIMARY KEY,
			bot_id    TEXT NOT NULL,
			content   TEXT NOT NULL,
			embedding BLOB NOT NULL,
			tokens    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chunks_bot_id ON chunks(bot_id);
	`
	_, err := db.Exec(schema)
	return err
}
