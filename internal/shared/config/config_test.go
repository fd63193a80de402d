package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsForArena(t *testing.T) {
	t.Setenv("SERVICE_NAME", "arena-service")
	t.Setenv("ENV", "test")

	cfg := Load()
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "9095", cfg.MetricsPort)
	require.Equal(t, int64(1000), cfg.StartingBalance)
	require.Equal(t, 2*time.Second, cfg.DuelStartDelay)
	require.Equal(t, 15, cfg.ClassicBettingSeconds)
	require.Equal(t, "duel_settled", cfg.TopicDuelSettled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "wallet-service")
	t.Setenv("HTTP_PORT_WALLET", "18082")
	t.Setenv("DUEL_RESET_DELAY", "250")
	t.Setenv("DUEL_REVEAL_DELAY", "1500ms")
	t.Setenv("CLASSIC_HISTORY_SIZE", "not-a-number")
	t.Setenv("WS_RATE_PER_SEC", "2.5")

	cfg := Load()
	require.Equal(t, "18082", cfg.HTTPPort)
	require.Equal(t, 250*time.Millisecond, cfg.DuelResetDelay)
	require.Equal(t, 1500*time.Millisecond, cfg.DuelRevealDelay)
	require.Equal(t, 10, cfg.ClassicHistorySize)
	require.InDelta(t, 2.5, cfg.WSRatePerSec, 0.0001)
}
