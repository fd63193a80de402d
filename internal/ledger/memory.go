package ledger

import (
	"context"
	"errors"
	"sync"
)

type account struct {
	mu      sync.Mutex
	balance int64
}

// Memory guarda os saldos em processo, com um mutex por identidade.
// Usado em testes e com LEDGER_MODE=memory.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*account

	jmu     sync.Mutex
	journal []Entry
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]*account)}
}

func (m *Memory) get(identity string, create bool) *account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[identity]
	if !ok && create {
		a = &account{}
		m.accounts[identity] = a
	}
	return a
}

func (m *Memory) record(e Entry) {
	m.jmu.Lock()
	m.journal = append(m.journal, e)
	m.jmu.Unlock()
}

// Journal devolve uma cópia do livro-razão inteiro
func (m *Memory) Journal() []Entry {
	m.jmu.Lock()
	defer m.jmu.Unlock()
	return append([]Entry(nil), m.journal...)
}

// Entries lista as movimentações de uma identidade, mais recentes primeiro
func (m *Memory) Entries(_ context.Context, identity string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	m.jmu.Lock()
	defer m.jmu.Unlock()
	var out []Entry
	for i := len(m.journal) - 1; i >= 0 && len(out) < limit; i-- {
		if m.journal[i].Identity == identity {
			out = append(out, m.journal[i])
		}
	}
	return out, nil
}

func (m *Memory) Balance(_ context.Context, identity string) (int64, error) {
	a := m.get(identity, false)
	if a == nil {
		return 0, ErrNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

func (m *Memory) EnsureAccount(_ context.Context, identity string, opening int64) (int64, error) {
	if identity == "" || opening < 0 {
		return 0, ErrInvalidAmount
	}
	m.mu.Lock()
	a, ok := m.accounts[identity]
	if !ok {
		a = &account{balance: opening}
		m.accounts[identity] = a
	}
	m.mu.Unlock()

	if !ok && opening > 0 {
		m.record(Entry{Identity: identity, Reason: ReasonDeposit, Amount: opening, Ref: "opening", Balance: opening})
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

func (m *Memory) Credit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	if identity == "" || amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		bal, err := m.Balance(ctx, identity)
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return bal, err
	}
	a := m.get(identity, true)
	a.mu.Lock()
	a.balance += amount
	bal := a.balance
	a.mu.Unlock()

	m.record(Entry{Identity: identity, Reason: reason, Amount: amount, Ref: ref, Balance: bal})
	return bal, nil
}

func (m *Memory) Debit(_ context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	if identity == "" || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	a := m.get(identity, false)
	if a == nil {
		return 0, ErrNotFound
	}
	a.mu.Lock()
	if a.balance < amount {
		a.mu.Unlock()
		return 0, ErrInsufficientFunds
	}
	a.balance -= amount
	bal := a.balance
	a.mu.Unlock()

	m.record(Entry{Identity: identity, Reason: reason, Amount: -amount, Ref: ref, Balance: bal})
	return bal, nil
}

func (m *Memory) Escrow(_ context.Context, ref string, holds ...Hold) error {
	merged, err := mergeHolds(holds)
	if err != nil {
		return err
	}

	accts := make([]*account, len(merged))
	for i, h := range merged {
		a := m.get(h.Identity, false)
		if a == nil {
			return ErrNotFound
		}
		accts[i] = a
	}

	for _, a := range accts {
		a.mu.Lock()
	}
	defer func() {
		for _, a := range accts {
			a.mu.Unlock()
		}
	}()

	for i, h := range merged {
		if accts[i].balance < h.Amount {
			return ErrInsufficientFunds
		}
	}
	for i, h := range merged {
		accts[i].balance -= h.Amount
		m.record(Entry{Identity: h.Identity, Reason: h.Reason, Amount: -h.Amount, Ref: ref, Balance: accts[i].balance})
	}
	return nil
}
