package ledger

import (
	"context"

	"go.uber.org/zap"
)

// BalanceSink recebe o saldo novo de uma identidade após cada mutação
type BalanceSink interface {
	BalanceChanged(ctx context.Context, identity string, balance int64)
}

type BalanceSinkFunc func(ctx context.Context, identity string, balance int64)

func (f BalanceSinkFunc) BalanceChanged(ctx context.Context, identity string, balance int64) {
	f(ctx, identity, balance)
}

// Notifying decora um Ledger e avisa os sinks a cada crédito/débito bem-sucedido.
// O saldo notificado vem sempre do Ledger; nada é guardado aqui.
type Notifying struct {
	Ledger
	log   *zap.Logger
	sinks []BalanceSink
	ops   func(op string, err error)
}

func NewNotifying(inner Ledger, log *zap.Logger, sinks ...BalanceSink) *Notifying {
	return &Notifying{Ledger: inner, log: log, sinks: sinks}
}

// WithOpCounter registra um callback por operação (métricas)
func (n *Notifying) WithOpCounter(fn func(op string, err error)) *Notifying {
	n.ops = fn
	return n
}

func (n *Notifying) count(op string, err error) {
	if n.ops != nil {
		n.ops(op, err)
	}
}

func (n *Notifying) notify(ctx context.Context, identity string, balance int64) {
	for _, s := range n.sinks {
		s.BalanceChanged(ctx, identity, balance)
	}
}

func (n *Notifying) Ping(ctx context.Context) error {
	return Ping(ctx, n.Ledger)
}

func (n *Notifying) EnsureAccount(ctx context.Context, identity string, opening int64) (int64, error) {
	bal, err := n.Ledger.EnsureAccount(ctx, identity, opening)
	n.count("ensure", err)
	return bal, err
}

func (n *Notifying) Credit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	bal, err := n.Ledger.Credit(ctx, identity, amount, reason, ref)
	n.count("credit", err)
	if err != nil {
		return bal, err
	}
	if amount > 0 {
		n.notify(ctx, identity, bal)
	}
	return bal, nil
}

func (n *Notifying) Debit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	bal, err := n.Ledger.Debit(ctx, identity, amount, reason, ref)
	n.count("debit", err)
	if err != nil {
		return bal, err
	}
	n.notify(ctx, identity, bal)
	return bal, nil
}

func (n *Notifying) Escrow(ctx context.Context, ref string, holds ...Hold) error {
	err := n.Ledger.Escrow(ctx, ref, holds...)
	n.count("escrow", err)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(holds))
	for _, h := range holds {
		if _, ok := seen[h.Identity]; ok {
			continue
		}
		seen[h.Identity] = struct{}{}
		bal, err := n.Ledger.Balance(ctx, h.Identity)
		if err != nil {
			n.log.Warn("balance after escrow failed", zap.String("user", h.Identity), zap.Error(err))
			continue
		}
		n.notify(ctx, h.Identity, bal)
	}
	return nil
}
