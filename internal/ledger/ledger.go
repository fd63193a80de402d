package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Reason identifica a origem de cada movimentação (vira operation_type no wallet_ledger)
type Reason string

const (
	ReasonDuelEscrow      Reason = "DUEL_ESCROW"
	ReasonDuelPayout      Reason = "DUEL_PAYOUT"
	ReasonDuelRefund      Reason = "DUEL_REFUND"
	ReasonSpectatorBet    Reason = "SPECTATOR_BET"
	ReasonSpectatorPayout Reason = "SPECTATOR_PAYOUT"
	ReasonSpectatorRefund Reason = "SPECTATOR_REFUND"
	ReasonClassicBet      Reason = "CLASSIC_BET"
	ReasonClassicPayout   Reason = "CLASSIC_PAYOUT"
	ReasonClassicRefund   Reason = "CLASSIC_REFUND"
	ReasonDeposit         Reason = "DEPOSIT"
	ReasonWithdraw        Reason = "WITHDRAW"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("account not found")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Hold é um débito que participa de um Escrow
type Hold struct {
	Identity string
	Amount   int64
	Reason   Reason
}

// Ledger é a única fonte de verdade dos saldos.
// Debit nunca deixa saldo negativo; Escrow debita todos os holds ou nenhum.
type Ledger interface {
	Balance(ctx context.Context, identity string) (int64, error)
	Credit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error)
	Debit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error)
	Escrow(ctx context.Context, ref string, holds ...Hold) error
	EnsureAccount(ctx context.Context, identity string, opening int64) (int64, error)
}

// Pinger verifica se o backend responde sem tocar em nenhuma carteira
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping usa o Pinger do backend quando existe; backends sem dependência externa respondem nil
func Ping(ctx context.Context, l Ledger) error {
	if p, ok := l.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// EntryLister é implementado pelos backends que guardam o livro-razão localmente
type EntryLister interface {
	Entries(ctx context.Context, identity string, limit int) ([]Entry, error)
}

// Entry é uma linha do livro-razão
type Entry struct {
	Identity string
	Reason   Reason
	Amount   int64 // positivo = crédito, negativo = débito
	Ref      string
	Balance  int64 // saldo após a movimentação; zero quando o backend não guarda
}

// mergeHolds valida e agrega os holds por identidade, em ordem alfabética.
// A ordem fixa evita deadlock quando dois escrows disputam as mesmas contas.
func mergeHolds(holds []Hold) ([]Hold, error) {
	if len(holds) == 0 {
		return nil, ErrInvalidAmount
	}
	byID := make(map[string]*Hold, len(holds))
	for _, h := range holds {
		if strings.TrimSpace(h.Identity) == "" || h.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		if cur, ok := byID[h.Identity]; ok {
			cur.Amount += h.Amount
			continue
		}
		cp := h
		byID[h.Identity] = &cp
	}
	out := make([]Hold, 0, len(byID))
	for _, h := range byID {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}
