package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// ReadRepo lê as tabelas gravadas pelo settlement-worker
type ReadRepo struct {
	DB *sql.DB
}

// Recent devolve os resumos mais novos primeiro, filtrando por kind
func (r *ReadRepo) Recent(ctx context.Context, kinds []string, limit int) ([]events.RecentResult, error) {
	const q = `
		SELECT summary
		FROM recent_results
		WHERE kind = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, q, pq.Array(kinds), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []events.RecentResult{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var res events.RecentResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ReadRepo) Audit(ctx context.Context, username string, limit int) ([]events.AuditEntry, error) {
	const q = `
		SELECT action, username, details, created_at
		FROM audit_log
		WHERE username = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, q, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []events.AuditEntry{}
	for rows.Next() {
		var a events.AuditEntry
		if err := rows.Scan(&a.Action, &a.Username, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
