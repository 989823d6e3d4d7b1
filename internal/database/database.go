package database

import (
	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
// Statement amounts are stored as integer cents so sums stay exact.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS statements (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,            -- deposit, withdraw, transfer
		direction TEXT NOT NULL,       -- in, out
		amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
		description TEXT NOT NULL,
		sender_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_statements_user ON statements(user_id, seq);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Backstop for the no-overdraft invariant: the services already
	-- serialize funds checks per user, this trigger rejects any write
	-- that slips past them.
	CREATE TRIGGER IF NOT EXISTS trg_statements_no_overdraft
	BEFORE INSERT ON statements
	FOR EACH ROW WHEN NEW.direction = 'out' AND NEW.amount_cents > (
		SELECT COALESCE(SUM(CASE direction WHEN 'in' THEN amount_cents ELSE -amount_cents END), 0)
		FROM statements WHERE user_id = NEW.user_id
	)
	BEGIN
		SELECT RAISE(ABORT, 'insufficient funds');
	END;
	`
	_, err := db.Exec(sqlStmt)
	return err
}
