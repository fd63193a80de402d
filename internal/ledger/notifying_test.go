package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu    sync.Mutex
	calls map[string]int64
	n     int
}

func (s *recordingSink) BalanceChanged(_ context.Context, identity string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int64{}
	}
	s.calls[identity] = balance
	s.n++
}

func TestNotifyingPushesBalanceAfterMutations(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	var ops []string
	l := NewNotifying(NewMemory(), zap.NewNop(), sink).WithOpCounter(func(op string, err error) {
		ops = append(ops, op)
	})

	_, err := l.EnsureAccount(ctx, "alice", 100)
	require.NoError(t, err)
	_, err = l.EnsureAccount(ctx, "bob", 100)
	require.NoError(t, err)
	require.Zero(t, sink.n)

	require.NoError(t, l.Escrow(ctx, "m1",
		Hold{Identity: "alice", Amount: 40, Reason: ReasonDuelEscrow},
		Hold{Identity: "bob", Amount: 40, Reason: ReasonDuelEscrow}))
	require.Equal(t, map[string]int64{"alice": 60, "bob": 60}, sink.calls)

	_, err = l.Credit(ctx, "alice", 80, ReasonDuelPayout, "m1")
	require.NoError(t, err)
	require.EqualValues(t, 140, sink.calls["alice"])

	before := sink.n
	_, err = l.Debit(ctx, "bob", 1000, ReasonSpectatorBet, "m1")
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, before, sink.n)

	require.Equal(t, []string{"ensure", "ensure", "escrow", "credit", "debit"}, ops)
}
