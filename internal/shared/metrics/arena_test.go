package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilArenaIsSafe(t *testing.T) {
	var m *Arena
	m.ConnOpened()
	m.Command("sit", "ok")
	m.LedgerOp("debit", errors.New("x"))
	m.ClassicRound(10)
}

func TestArenaCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewArena(reg)

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.Command("sit", "ok")
	m.Command("sit", "seat_taken")
	m.LedgerOp("escrow", nil)
	m.LedgerOp("escrow", errors.New("insufficient"))
	m.Escrowed(200)
	m.Escrowed(-5)
	m.ClassicRound(150)
	m.ClassicRound(0)

	require.Equal(t, 1.0, testutil.ToFloat64(m.WSConnections))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("sit", "seat_taken")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LedgerOps.WithLabelValues("escrow", "error")))
	require.Equal(t, 200.0, testutil.ToFloat64(m.CreditsEscrowed))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ClassicRounds))
	require.Equal(t, 150.0, testutil.ToFloat64(m.ClassicPayouts))
}
