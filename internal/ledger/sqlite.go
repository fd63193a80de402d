package ledger

import "database/sql"

// SQLite é o ledger de nó único. O pool tem uma conexão só (ver db.ConnectSQLite),
// então as transações já saem serializadas e não há FOR UPDATE.
type SQLite struct{ sqlStore }

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{sqlStore{db: db, d: dialect{
		name: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS wallets (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL UNIQUE,
				balance    INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
				version    INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS wallet_ledger (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				wallet_id      TEXT NOT NULL REFERENCES wallets(id),
				operation_type TEXT NOT NULL,
				amount         INTEGER NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				created_at     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS wallet_ledger_wallet_idx ON wallet_ledger(wallet_id, id DESC)`,
		},
		rebind: func(q string) string { return placeholder.ReplaceAllString(q, "?") },
	}}}
}
