package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// dialect isola o que muda entre Postgres e SQLite
type dialect struct {
	name      string
	forUpdate string // sufixo de lock pessimista; vazio no SQLite (conexão única)
	schema    []string
	rebind    func(string) string
}

var placeholder = regexp.MustCompile(`\$\d+`)

// sqlStore implementa o Ledger sobre database/sql.
// Cada operação roda numa transação e grava uma linha em wallet_ledger.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlStore) q(query string) string {
	if s.d.rebind == nil {
		return query
	}
	return s.d.rebind(query)
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema cria as tabelas wallets e wallet_ledger se ainda não existirem
func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", s.d.name, err)
		}
	}
	return nil
}

func (s *sqlStore) Balance(ctx context.Context, identity string) (int64, error) {
	var bal int64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT balance FROM wallets WHERE user_id=$1`), identity).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return bal, nil
}

// EnsureAccount cria a carteira com saldo inicial; se já existir só devolve o saldo
func (s *sqlStore) EnsureAccount(ctx context.Context, identity string, opening int64) (int64, error) {
	if identity == "" || opening < 0 {
		return 0, ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var walletID string
	err = tx.QueryRowContext(ctx, s.q(`INSERT INTO wallets(id, user_id, balance, version) VALUES($1,$2,$3,1)
		ON CONFLICT (user_id) DO NOTHING RETURNING id`), uuid.New().String(), identity, opening).Scan(&walletID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// já existia
	case err != nil:
		return 0, err
	case opening > 0:
		if err = s.insertEntry(ctx, tx, walletID, ReasonDeposit, opening, "opening"); err != nil {
			return 0, err
		}
	}

	var bal int64
	if err = tx.QueryRowContext(ctx, s.q(`SELECT balance FROM wallets WHERE user_id=$1`), identity).Scan(&bal); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

// Credit soma ao saldo (criando a carteira se preciso) e registra no ledger
func (s *sqlStore) Credit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	if identity == "" || amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		bal, err := s.Balance(ctx, identity)
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return bal, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var walletID string
	var bal int64
	if err = tx.QueryRowContext(ctx, s.q(`INSERT INTO wallets(id, user_id, balance, version) VALUES($1,$2,$3,1)
		ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + excluded.balance, version = wallets.version + 1
		RETURNING id, balance`), uuid.New().String(), identity, amount).Scan(&walletID, &bal); err != nil {
		return 0, err
	}

	if err = s.insertEntry(ctx, tx, walletID, reason, amount, ref); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

// Debit faz check-then-subtract sob lock da linha da carteira
func (s *sqlStore) Debit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	if identity == "" || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	walletID, bal, err := s.lockWallet(ctx, tx, identity)
	if err != nil {
		return 0, err
	}
	if bal < amount {
		return 0, ErrInsufficientFunds
	}
	if err = s.subtract(ctx, tx, walletID, amount); err != nil {
		return 0, err
	}
	if err = s.insertEntry(ctx, tx, walletID, reason, -amount, ref); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal - amount, nil
}

// Escrow trava as carteiras em ordem de user_id e só debita se todas tiverem saldo
func (s *sqlStore) Escrow(ctx context.Context, ref string, holds ...Hold) error {
	merged, err := mergeHolds(holds)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := make([]string, len(merged))
	for i, h := range merged {
		walletID, bal, err := s.lockWallet(ctx, tx, h.Identity)
		if err != nil {
			return err
		}
		if bal < h.Amount {
			return ErrInsufficientFunds
		}
		ids[i] = walletID
	}

	for i, h := range merged {
		if err = s.subtract(ctx, tx, ids[i], h.Amount); err != nil {
			return err
		}
		if err = s.insertEntry(ctx, tx, ids[i], h.Reason, -h.Amount, ref); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) lockWallet(ctx context.Context, tx *sql.Tx, identity string) (string, int64, error) {
	var id string
	var bal int64
	err := tx.QueryRowContext(ctx, s.q(`SELECT id, balance FROM wallets WHERE user_id=$1`+s.d.forUpdate), identity).Scan(&id, &bal)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}
	return id, bal, nil
}

func (s *sqlStore) subtract(ctx context.Context, tx *sql.Tx, walletID string, amount int64) error {
	_, err := tx.ExecContext(ctx, s.q(`UPDATE wallets SET balance = balance - $1, version = version + 1 WHERE id=$2`), amount, walletID)
	return err
}

func (s *sqlStore) insertEntry(ctx context.Context, tx *sql.Tx, walletID string, reason Reason, amount int64, ref string) error {
	_, err := tx.ExecContext(ctx, s.q(`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description) VALUES($1,$2,$3,$4)`),
		walletID, string(reason), amount, ref)
	return err
}

// Entries lista as movimentações de uma identidade, mais recentes primeiro
func (s *sqlStore) Entries(ctx context.Context, identity string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT l.operation_type, l.amount, l.description
		FROM wallet_ledger l JOIN wallets w ON w.id = l.wallet_id
		WHERE w.user_id=$1 ORDER BY l.id DESC LIMIT $2`), identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var reason string
		if err := rows.Scan(&reason, &e.Amount, &e.Ref); err != nil {
			return nil, err
		}
		e.Identity = identity
		e.Reason = Reason(reason)
		out = append(out, e)
	}
	return out, rows.Err()
}
