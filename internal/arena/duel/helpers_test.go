package duel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
	s       *manualScheduler
}

func (mt *manualTimer) Stop() bool {
	mt.s.mu.Lock()
	defer mt.s.mu.Unlock()
	was := !mt.stopped && !mt.fired
	mt.stopped = true
	return was
}

// manualScheduler só dispara callbacks quando o teste manda
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	mt := &manualTimer{d: d, fn: fn, s: s}
	s.timers = append(s.timers, mt)
	return mt
}

// Fire dispara o timer ativo mais antigo e espera o actor processar
func (s *manualScheduler) Fire() bool {
	s.mu.Lock()
	var next *manualTimer
	for _, mt := range s.timers {
		if !mt.stopped && !mt.fired {
			next = mt
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()

	if next == nil {
		return false
	}
	next.fn()
	return true
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, mt := range s.timers {
		if !mt.stopped && !mt.fired {
			n++
		}
	}
	return n
}

func (s *manualScheduler) Last() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

// scriptRNG devolve os valores na ordem; esgotado, devolve 0
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

func (r *scriptRNG) push(vals ...int) {
	r.mu.Lock()
	r.vals = append(r.vals, vals...)
	r.mu.Unlock()
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed int
	events  []Event
}

func (n *recordingNotifier) Changed() {
	n.mu.Lock()
	n.changed++
	n.mu.Unlock()
}

func (n *recordingNotifier) DuelEvent(ev Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type recordingRecorder struct {
	mu      sync.Mutex
	settled []events.DuelSettled
	aborted []events.DuelAborted
}

func (r *recordingRecorder) DuelSettled(_ context.Context, ev events.DuelSettled) {
	r.mu.Lock()
	r.settled = append(r.settled, ev)
	r.mu.Unlock()
}

func (r *recordingRecorder) DuelAborted(_ context.Context, ev events.DuelAborted) {
	r.mu.Lock()
	r.aborted = append(r.aborted, ev)
	r.mu.Unlock()
}

type env struct {
	ledger *ledger.Memory
	sched  *manualScheduler
	rng    *scriptRNG
	notif  *recordingNotifier
	rec    *recordingRecorder
}

func (e *env) balance(t *testing.T, id string) int64 {
	t.Helper()
	bal, err := e.ledger.Balance(context.Background(), id)
	require.NoError(t, err)
	return bal
}

func newTestTable(t *testing.T, balances map[string]int64) (*Table, *env) {
	t.Helper()
	e := &env{
		ledger: ledger.NewMemory(),
		sched:  &manualScheduler{},
		rng:    &scriptRNG{},
		notif:  &recordingNotifier{},
		rec:    &recordingRecorder{},
	}
	for id, bal := range balances {
		_, err := e.ledger.EnsureAccount(context.Background(), id, bal)
		require.NoError(t, err)
	}
	tb := New("main", Deps{
		Ledger:    e.ledger,
		Notifier:  e.notif,
		Recorder:  e.rec,
		Scheduler: e.sched,
		RNG:       e.rng,
	})
	t.Cleanup(tb.Stop)
	return tb, e
}

// seatPair senta alice à esquerda e bob à direita
func seatPair(t *testing.T, tb *Table) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tb.Sit(ctx, "alice", Left))
	require.NoError(t, tb.Sit(ctx, "bob", Right))
}

// startMatch faz alice propor e bob aceitar
func startMatch(t *testing.T, tb *Table, s Settings) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tb.Propose(ctx, "alice", s))
	require.NoError(t, tb.Respond(ctx, "bob", true))
}
