package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         BIGSERIAL PRIMARY KEY,
	action     TEXT NOT NULL,
	username   TEXT NOT NULL,
	details    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS audit_log_username_idx ON audit_log (username, created_at DESC);

CREATE TABLE IF NOT EXISTS recent_results (
	ref_id     TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	summary    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS recent_results_kind_idx ON recent_results (kind, created_at DESC);
`

// PostgresRepo persiste o audit_log e o resumo de cada liquidação
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Record grava o resumo e as linhas de auditoria na mesma transação.
// Reentrega do mesmo ref_id não duplica nada: devolve false sem erro.
func (r *PostgresRepo) Record(ctx context.Context, res events.RecentResult, audit []events.AuditEntry) (bool, error) {
	summary, err := json.Marshal(res)
	if err != nil {
		return false, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out, err := tx.ExecContext(ctx, `
		INSERT INTO recent_results (ref_id, kind, summary, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (ref_id) DO NOTHING`,
		res.RefID, res.Kind, summary, res.Ts,
	)
	if err != nil {
		return false, fmt.Errorf("insert recent: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return false, nil
	}

	for _, a := range audit {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO audit_log (action, username, details, created_at)
			VALUES ($1,$2,$3,$4)`,
			a.Action, a.Username, a.Details, a.CreatedAt,
		); err != nil {
			return false, fmt.Errorf("insert audit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
