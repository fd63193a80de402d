package classic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

type scriptRNG struct {
	mu   sync.Mutex
	vals []int
}

func (r *scriptRNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0]
	r.vals = r.vals[1:]
	return v % n
}

type recorder struct {
	mu     sync.Mutex
	rounds []events.ClassicRoundSettled
	phases []Phase
}

func (r *recorder) ClassicRoundSettled(_ context.Context, ev events.ClassicRoundSettled) {
	r.mu.Lock()
	r.rounds = append(r.rounds, ev)
	r.mu.Unlock()
}

func (r *recorder) Changed() {}

func (r *recorder) ClassicPhase(ev PhaseEvent) {
	r.mu.Lock()
	r.phases = append(r.phases, ev.Phase)
	r.mu.Unlock()
}

func newTestEngine(t *testing.T, rng *scriptRNG, balances map[string]int64) (*Engine, *ledger.Memory, *recorder) {
	t.Helper()
	mem := ledger.NewMemory()
	for id, bal := range balances {
		_, err := mem.EnsureAccount(context.Background(), id, bal)
		require.NoError(t, err)
	}
	rec := &recorder{}
	e := New(Config{BettingSeconds: 15, RollingSeconds: 3, ResultSeconds: 5, HistorySize: 2}, Deps{
		Ledger:   mem,
		Notifier: rec,
		Recorder: rec,
		RNG:      rng,
	})
	t.Cleanup(e.Stop)
	return e, mem, rec
}

func advance(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, e.Advance(context.Background()))
	}
}

func TestRedTwiceScenario(t *testing.T) {
	ctx := context.Background()
	e, mem, rec := newTestEngine(t, &scriptRNG{vals: []int{0, 0, 2}}, map[string]int64{"user": 1000})

	require.Equal(t, PhaseBetting, e.View().Phase)
	require.Equal(t, 15, e.View().Timer)
	require.NoError(t, e.PlaceBet(ctx, "user", Red, 50))
	bal, _ := mem.Balance(ctx, "user")
	require.EqualValues(t, 950, bal)
	require.Equal(t, 1, e.View().BetCount)

	advance(t, e, 15)
	require.Equal(t, PhaseRolling, e.View().Phase)
	require.Equal(t, 3, e.View().Timer)
	require.ErrorIs(t, e.PlaceBet(ctx, "user", Red, 50), ErrInvalidPhase)

	advance(t, e, 3)
	v := e.View()
	require.Equal(t, PhaseResult, v.Phase)
	require.Equal(t, []Color{Red, Red, Blue}, v.LastDraw)
	require.Equal(t, [][]Color{{Red, Red, Blue}}, v.History)

	bal, _ = mem.Balance(ctx, "user")
	require.EqualValues(t, 1100, bal)

	require.Len(t, rec.rounds, 1)
	require.Equal(t, []string{"RED", "RED", "BLUE"}, rec.rounds[0].Draw)
	require.Equal(t, []events.ClassicPayout{{UserID: "user", Matches: 2, Paid: 150}}, rec.rounds[0].Payouts)

	round := v.RoundID
	advance(t, e, 5)
	v = e.View()
	require.Equal(t, PhaseBetting, v.Phase)
	require.Equal(t, 15, v.Timer)
	require.Zero(t, v.BetCount)
	require.NotEqual(t, round, v.RoundID)
	require.Equal(t, []Phase{PhaseRolling, PhaseResult, PhaseBetting}, rec.phases)
}

func TestBetValidation(t *testing.T) {
	ctx := context.Background()
	e, mem, _ := newTestEngine(t, &scriptRNG{}, map[string]int64{"user": 20})

	require.ErrorIs(t, e.PlaceBet(ctx, "user", Color("BLACK"), 10), ErrInvalidSelection)
	require.ErrorIs(t, e.PlaceBet(ctx, "user", Green, 0), ledger.ErrInvalidAmount)
	require.ErrorIs(t, e.PlaceBet(ctx, "user", Green, 21), ErrInsufficientFunds)
	require.Zero(t, e.View().BetCount)

	bal, _ := mem.Balance(ctx, "user")
	require.EqualValues(t, 20, bal)
}

func TestLosingBetIsForfeitAndHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	rng := &scriptRNG{vals: []int{1, 1, 1, 2, 2, 2, 3, 3, 3}}
	e, mem, _ := newTestEngine(t, rng, map[string]int64{"user": 100})

	require.NoError(t, e.PlaceBet(ctx, "user", Pink, 40))
	advance(t, e, 18)
	bal, _ := mem.Balance(ctx, "user")
	require.EqualValues(t, 60, bal)

	advance(t, e, 5+18)
	advance(t, e, 5+18)
	v := e.View()
	require.Equal(t, [][]Color{{Yellow, Yellow, Yellow}, {Blue, Blue, Blue}}, v.History)
}

func TestPayout(t *testing.T) {
	drawn := []Color{Green, Green, Green}
	require.EqualValues(t, 40, Payout(Bet{Selection: Green, Amount: 10}, drawn))
	require.Zero(t, Payout(Bet{Selection: Red, Amount: 10}, drawn))
	require.EqualValues(t, 20, Payout(Bet{Selection: Green, Amount: 10}, []Color{Green, Red, Blue}))
}

func TestStopRefundsOpenRound(t *testing.T) {
	ctx := context.Background()
	e, mem, rec := newTestEngine(t, &scriptRNG{}, map[string]int64{"u": 1000})

	require.NoError(t, e.PlaceBet(ctx, "u", Red, 50))
	bal, _ := mem.Balance(ctx, "u")
	require.EqualValues(t, 950, bal)

	e.Stop()
	bal, _ = mem.Balance(ctx, "u")
	require.EqualValues(t, 1000, bal)
	require.Empty(t, rec.rounds)
	require.Zero(t, e.View().BetCount)
	require.ErrorIs(t, e.PlaceBet(ctx, "u", Red, 50), ErrEngineClosed)

	var refunds int
	for _, en := range mem.Journal() {
		if en.Reason == ledger.ReasonClassicRefund {
			refunds++
			require.EqualValues(t, 50, en.Amount)
		}
	}
	require.Equal(t, 1, refunds)
}

func TestStopWhileRollingRefundsUndrawnBets(t *testing.T) {
	ctx := context.Background()
	e, mem, _ := newTestEngine(t, &scriptRNG{}, map[string]int64{"u": 1000})

	require.NoError(t, e.PlaceBet(ctx, "u", Red, 50))
	advance(t, e, 15)
	require.Equal(t, PhaseRolling, e.View().Phase)

	e.Stop()
	bal, _ := mem.Balance(ctx, "u")
	require.EqualValues(t, 1000, bal)
}

func TestStopAfterDrawKeepsSettlement(t *testing.T) {
	ctx := context.Background()
	// RED, GREEN, GREEN: um acerto paga 100
	e, mem, rec := newTestEngine(t, &scriptRNG{vals: []int{0, 1, 1}}, map[string]int64{"u": 1000})

	require.NoError(t, e.PlaceBet(ctx, "u", Red, 50))
	advance(t, e, 18)
	require.Equal(t, PhaseResult, e.View().Phase)

	e.Stop()
	bal, _ := mem.Balance(ctx, "u")
	require.EqualValues(t, 1050, bal)
	require.Len(t, rec.rounds, 1)
}

func TestConcurrentBetsAndTicksConserveFunds(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	players := []string{"alice", "bob", "carol", "dave"}
	for _, id := range players {
		_, err := mem.EnsureAccount(ctx, id, 1000)
		require.NoError(t, err)
	}
	rec := &recorder{}
	e := New(Config{BettingSeconds: 2, RollingSeconds: 1, ResultSeconds: 1}, Deps{
		Ledger:   mem,
		Notifier: rec,
		Recorder: rec,
	})

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for _, id := range players {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				err := e.PlaceBet(ctx, id, Colors[i%len(Colors)], 5)
				if err == nil {
					accepted.Add(1)
					continue
				}
				if !errors.Is(err, ErrInvalidPhase) && !errors.Is(err, ErrInsufficientFunds) {
					t.Errorf("unexpected bet error: %v", err)
				}
			}
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 60; i++ {
			if err := e.Advance(ctx); err != nil {
				t.Errorf("advance: %v", err)
			}
		}
	}()
	wg.Wait()
	e.Stop()

	// toda aposta debitada foi liquidada numa rodada sorteada ou estornada no encerramento
	var debited, refunded, paid, settledBets int64
	var bets int64
	for _, en := range mem.Journal() {
		switch en.Reason {
		case ledger.ReasonClassicBet:
			debited += -en.Amount
			bets++
		case ledger.ReasonClassicRefund:
			refunded += en.Amount
		case ledger.ReasonClassicPayout:
			paid += en.Amount
		}
	}
	require.Equal(t, accepted.Load(), bets)

	rec.mu.Lock()
	var recordedPaid int64
	for _, r := range rec.rounds {
		for _, b := range r.Bets {
			settledBets += b.Amount
		}
		for _, p := range r.Payouts {
			recordedPaid += p.Paid
		}
	}
	rec.mu.Unlock()
	require.Equal(t, debited, settledBets+refunded)
	require.Equal(t, paid, recordedPaid)

	var total int64
	for _, id := range players {
		bal, err := mem.Balance(ctx, id)
		require.NoError(t, err)
		require.GreaterOrEqual(t, bal, int64(0))
		total += bal
	}
	require.Equal(t, int64(len(players))*1000-debited+refunded+paid, total)
}
