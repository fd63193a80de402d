package ledger

import "database/sql"

// Postgres é o ledger de produção: SELECT ... FOR UPDATE por carteira
type Postgres struct{ sqlStore }

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{sqlStore{db: db, d: dialect{
		name:      "postgres",
		forUpdate: " FOR UPDATE",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS wallets (
				id         UUID PRIMARY KEY,
				user_id    TEXT NOT NULL UNIQUE,
				balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
				version    BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS wallet_ledger (
				id             BIGSERIAL PRIMARY KEY,
				wallet_id      UUID NOT NULL REFERENCES wallets(id),
				operation_type TEXT NOT NULL,
				amount         BIGINT NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS wallet_ledger_wallet_idx ON wallet_ledger(wallet_id, id DESC)`,
		},
	}}}
}
