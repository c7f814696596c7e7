package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contacts (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			name       TEXT NOT NULL,
			role       TEXT,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id),
			account_id       TEXT NOT NULL REFERENCES accounts(id),
			contact_id       TEXT,
			kind             TEXT NOT NULL,
			behavior         TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			quality_score    INTEGER NOT NULL,
			quantity_score   INTEGER NOT NULL,
			duration_min     INTEGER NOT NULL DEFAULT 0,
			sentiment_score  INTEGER,
			next_action_date TEXT,
			outcome          TEXT,
			performed_at     TEXT NOT NULL,
			created_at       TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS behavior_scores (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			behavior     TEXT NOT NULL,
			intensity    INTEGER NOT NULL,
			diversity    INTEGER NOT NULL,
			quality      INTEGER NOT NULL,
			period_start TEXT NOT NULL,
			period_end   TEXT NOT NULL,
			created_at   TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS outcomes (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id),
			account_id         TEXT,
			period_type        TEXT NOT NULL,
			period_start       TEXT NOT NULL,
			period_end         TEXT NOT NULL,
			hir                INTEGER NOT NULL,
			conversion_rate    INTEGER NOT NULL,
			field_growth_rate  INTEGER NOT NULL,
			prescription_index INTEGER NOT NULL,
			created_at         TEXT NOT NULL
		)`,

		// No unique constraint on (user_id, type) for unresolved rows; the
		// coaching save pipeline enforces it.
		`CREATE TABLE IF NOT EXISTS coaching_signals (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id),
			type               TEXT NOT NULL,
			priority           TEXT NOT NULL,
			message            TEXT NOT NULL,
			recommended_action TEXT,
			behavior           TEXT,
			account_id         TEXT,
			contact_id         TEXT,
			resolved           BOOLEAN NOT NULL DEFAULT false,
			resolved_at        TEXT,
			created_at         TEXT NOT NULL,
			updated_at         TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS competitor_signals (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			account_id  TEXT NOT NULL REFERENCES accounts(id),
			activity_id TEXT,
			competitor  TEXT NOT NULL,
			type        TEXT NOT NULL,
			description TEXT NOT NULL,
			confidence  REAL,
			detected_at TEXT NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_account ON contacts(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_time ON activities(user_id, performed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_account ON activities(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_scores_user ON behavior_scores(user_id, period_start)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_user ON outcomes(user_id, period_type, period_start)`,
		`CREATE INDEX IF NOT EXISTS idx_coaching_user_type ON coaching_signals(user_id, type, resolved)`,
		`CREATE INDEX IF NOT EXISTS idx_competitor_account ON competitor_signals(account_id, detected_at)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
