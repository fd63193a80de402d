package ledger_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	wallethttp "github.com/radieske/duel-arena/internal/wallet-service/http"
)

func TestRemoteTalksToWalletService(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(wallethttp.NewServer(zap.NewNop(), ledger.NewMemory(), 1000).Router())
	defer srv.Close()

	l := ledger.NewRemote(srv.URL)

	bal, err := l.EnsureAccount(ctx, "alice", 50)
	require.NoError(t, err)
	require.EqualValues(t, 50, bal)

	bal, err = l.EnsureAccount(ctx, "bob", 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, bal)

	err = l.Escrow(ctx, "m1",
		ledger.Hold{Identity: "alice", Amount: 10, Reason: ledger.ReasonDuelEscrow},
		ledger.Hold{Identity: "bob", Amount: 10, Reason: ledger.ReasonDuelEscrow})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	bal, err = l.Credit(ctx, "bob", 25, ledger.ReasonDuelPayout, "m0")
	require.NoError(t, err)
	require.EqualValues(t, 25, bal)

	require.NoError(t, l.Escrow(ctx, "m1",
		ledger.Hold{Identity: "alice", Amount: 10, Reason: ledger.ReasonDuelEscrow},
		ledger.Hold{Identity: "bob", Amount: 10, Reason: ledger.ReasonDuelEscrow}))

	bal, err = l.Debit(ctx, "alice", 40, ledger.ReasonSpectatorBet, "m2")
	require.NoError(t, err)
	require.EqualValues(t, 0, bal)

	_, err = l.Debit(ctx, "alice", 1, ledger.ReasonSpectatorBet, "m2")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = l.Debit(ctx, "alice", 0, ledger.ReasonSpectatorBet, "m2")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	bal, err = l.Balance(ctx, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 15, bal)
}

func TestRemotePingDoesNotOpenWallet(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	srv := httptest.NewServer(wallethttp.NewServer(zap.NewNop(), mem, 1000).Router())

	l := ledger.NewRemote(srv.URL)
	require.NoError(t, ledger.Ping(ctx, l))
	require.Empty(t, mem.Journal())

	_, err := mem.Balance(ctx, "healthcheck")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	srv.Close()
	require.Error(t, ledger.Ping(ctx, l))
}
