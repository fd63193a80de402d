package classic

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

type Color string

const (
	Red    Color = "RED"
	Green  Color = "GREEN"
	Blue   Color = "BLUE"
	Yellow Color = "YELLOW"
	White  Color = "WHITE"
	Pink   Color = "PINK"
)

// Colors é o conjunto sorteável, na ordem usada pelo RNG
var Colors = []Color{Red, Green, Blue, Yellow, White, Pink}

func (c Color) Valid() bool {
	for _, k := range Colors {
		if c == k {
			return true
		}
	}
	return false
}

type Phase string

const (
	PhaseBetting Phase = "BETTING"
	PhaseRolling Phase = "ROLLING"
	PhaseResult  Phase = "RESULT"
)

const DiceCount = 3

var (
	ErrInvalidPhase     = errors.New("invalid phase")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrEngineClosed     = errors.New("engine closed")

	ErrInsufficientFunds = ledger.ErrInsufficientFunds
)

type RNG interface {
	IntN(n int) int
}

type globalRNG struct{}

func (globalRNG) IntN(n int) int { return rand.IntN(n) }

// Notifier recebe avisos do motor; as chamadas não podem bloquear
type Notifier interface {
	Changed()
	ClassicPhase(ev PhaseEvent)
}

type Recorder interface {
	ClassicRoundSettled(ctx context.Context, ev events.ClassicRoundSettled)
}

type Config struct {
	BettingSeconds int
	RollingSeconds int
	ResultSeconds  int
	HistorySize    int
	Tick           time.Duration // zero desliga o relógio interno (testes usam Advance)
}

func DefaultConfig() Config {
	return Config{BettingSeconds: 15, RollingSeconds: 3, ResultSeconds: 5, HistorySize: 10, Tick: time.Second}
}

type Deps struct {
	Log      *zap.Logger
	Ledger   ledger.Ledger
	Notifier Notifier
	Recorder Recorder
	RNG      RNG
	Metrics  *metrics.Arena
}

type Bet struct {
	Identity  string
	Selection Color
	Amount    int64
}

// View é o snapshot público; valores das apostas ficam de fora
type View struct {
	Phase    Phase     `json:"phase"`
	Timer    int       `json:"timer"`
	RoundID  string    `json:"roundId"`
	BetCount int       `json:"betCount"`
	LastDraw []Color   `json:"lastDraw,omitempty"`
	History  [][]Color `json:"history"`
}

type PhaseEvent struct {
	Phase   Phase   `json:"phase"`
	RoundID string  `json:"roundId"`
	Timer   int     `json:"timer"`
	Draw    []Color `json:"draw,omitempty"`
}

type cmdKind int

const (
	cmdBet cmdKind = iota
	cmdTick
	cmdClose
)

type command struct {
	kind      cmdKind
	identity  string
	selection Color
	amount    int64
	resp      chan error
}

// Engine é o motor clássico: um relógio global BETTING -> ROLLING -> RESULT.
// Só a goroutine run() toca no estado.
type Engine struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	cmds     chan command
	done     chan struct{}
	stopOnce sync.Once

	// estado
	phase    Phase
	timer    int
	roundID  string
	bets     []Bet
	lastDraw []Color
	history  [][]Color

	view atomic.Pointer[View]
}

func New(cfg Config, deps Deps) *Engine {
	def := DefaultConfig()
	if cfg.BettingSeconds <= 0 {
		cfg.BettingSeconds = def.BettingSeconds
	}
	if cfg.RollingSeconds <= 0 {
		cfg.RollingSeconds = def.RollingSeconds
	}
	if cfg.ResultSeconds <= 0 {
		cfg.ResultSeconds = def.ResultSeconds
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.RNG == nil {
		deps.RNG = globalRNG{}
	}

	e := &Engine{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Log.With(zap.String("engine", "classic")),
		cmds:    make(chan command, 256),
		done:    make(chan struct{}),
		phase:   PhaseBetting,
		timer:   cfg.BettingSeconds,
		roundID: uuid.New().String(),
	}
	e.publish()
	go e.run()
	return e
}

func (e *Engine) View() View { return *e.view.Load() }

func (e *Engine) run() {
	var tick <-chan time.Time
	if e.cfg.Tick > 0 {
		ticker := time.NewTicker(e.cfg.Tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case c := <-e.cmds:
			err := e.handle(c)
			if c.resp != nil {
				c.resp <- err
			}
			if c.kind == cmdClose {
				return
			}
		case <-tick:
			e.tick()
			e.publish()
		case <-e.done:
			return
		}
	}
}

func (e *Engine) handle(c command) error {
	switch c.kind {
	case cmdBet:
		if err := e.handleBet(c.identity, c.selection, c.amount); err != nil {
			return err
		}
	case cmdTick:
		e.tick()
	case cmdClose:
		e.refundOpen()
		e.publish()
		e.stopOnce.Do(func() { close(e.done) })
		return nil
	default:
		return fmt.Errorf("unknown command: %d", c.kind)
	}
	e.publish()
	return nil
}

func (e *Engine) submit(ctx context.Context, c command) error {
	c.resp = make(chan error, 1)
	select {
	case e.cmds <- c:
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.resp:
		return err
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PlaceBet debita na hora; só aceita em BETTING
func (e *Engine) PlaceBet(ctx context.Context, identity string, selection Color, amount int64) error {
	return e.submit(ctx, command{kind: cmdBet, identity: identity, selection: selection, amount: amount})
}

// Advance avança o relógio em um tick
func (e *Engine) Advance(ctx context.Context) error {
	return e.submit(ctx, command{kind: cmdTick})
}

// Stop encerra o motor. Apostas de rodada ainda não sorteada voltam para a carteira.
func (e *Engine) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.submit(ctx, command{kind: cmdClose}); err != nil {
		e.stopOnce.Do(func() { close(e.done) })
	}
}

func (e *Engine) handleBet(identity string, selection Color, amount int64) error {
	if e.phase != PhaseBetting {
		return ErrInvalidPhase
	}
	if !selection.Valid() {
		return ErrInvalidSelection
	}
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.deps.Ledger.Debit(ctx, identity, amount, ledger.ReasonClassicBet, e.roundID); err != nil {
		return err
	}
	e.bets = append(e.bets, Bet{Identity: identity, Selection: selection, Amount: amount})
	return nil
}

// refundOpen devolve as apostas quando a rodada ainda não foi liquidada
func (e *Engine) refundOpen() {
	if e.phase == PhaseResult || len(e.bets) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, b := range e.bets {
		if _, err := e.deps.Ledger.Credit(ctx, b.Identity, b.Amount, ledger.ReasonClassicRefund, e.roundID); err != nil {
			e.log.Error("classic refund failed", zap.String("round", e.roundID), zap.String("user", b.Identity), zap.Error(err))
		}
	}
	e.log.Info("classic round refunded on shutdown", zap.String("round", e.roundID), zap.Int("bets", len(e.bets)))
	e.bets = nil
}

// tick decrementa o relógio e troca de fase quando chega a zero
func (e *Engine) tick() {
	e.timer--
	if e.timer > 0 {
		return
	}

	switch e.phase {
	case PhaseBetting:
		e.phase = PhaseRolling
		e.timer = e.cfg.RollingSeconds
		e.emit(nil)

	case PhaseRolling:
		e.settle()
		e.phase = PhaseResult
		e.timer = e.cfg.ResultSeconds
		e.emit(e.lastDraw)

	case PhaseResult:
		e.bets = nil
		e.roundID = uuid.New().String()
		e.phase = PhaseBetting
		e.timer = e.cfg.BettingSeconds
		e.emit(nil)
	}
}

// settle sorteia os três dados e paga amount*acertos + amount para quem acertou ao menos um
func (e *Engine) settle() {
	drawn := make([]Color, DiceCount)
	for i := range drawn {
		drawn[i] = Colors[e.deps.RNG.IntN(len(Colors))]
	}
	e.lastDraw = drawn

	e.history = append([][]Color{drawn}, e.history...)
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[:e.cfg.HistorySize]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := events.ClassicRoundSettled{RoundID: e.roundID, Ts: time.Now().UTC()}
	for _, c := range drawn {
		ev.Draw = append(ev.Draw, string(c))
	}

	var paid int64
	for _, b := range e.bets {
		ev.Bets = append(ev.Bets, events.ClassicBet{UserID: b.Identity, Selection: string(b.Selection), Amount: b.Amount})
		win := Payout(b, drawn)
		if win == 0 {
			continue
		}
		if _, err := e.deps.Ledger.Credit(ctx, b.Identity, win, ledger.ReasonClassicPayout, e.roundID); err != nil {
			e.log.Error("classic payout failed", zap.String("round", e.roundID), zap.String("user", b.Identity), zap.Error(err))
			continue
		}
		paid += win
		ev.Payouts = append(ev.Payouts, events.ClassicPayout{UserID: b.Identity, Matches: matches(b.Selection, drawn), Paid: win})
	}

	e.log.Info("classic round settled",
		zap.String("round", e.roundID),
		zap.Any("draw", drawn),
		zap.Int("bets", len(e.bets)),
		zap.Int64("paid", paid))
	e.deps.Metrics.ClassicRound(paid)
	if e.deps.Recorder != nil {
		e.deps.Recorder.ClassicRoundSettled(ctx, ev)
	}
}

func matches(sel Color, drawn []Color) int {
	n := 0
	for _, c := range drawn {
		if c == sel {
			n++
		}
	}
	return n
}

// Payout devolve o total creditado para a aposta; zero quando não há acerto
func Payout(b Bet, drawn []Color) int64 {
	n := matches(b.Selection, drawn)
	if n == 0 {
		return 0
	}
	return b.Amount*int64(n) + b.Amount
}

func (e *Engine) emit(draw []Color) {
	if e.deps.Notifier == nil {
		return
	}
	e.deps.Notifier.ClassicPhase(PhaseEvent{Phase: e.phase, RoundID: e.roundID, Timer: e.timer, Draw: draw})
}

func (e *Engine) publish() {
	v := &View{
		Phase:    e.phase,
		Timer:    e.timer,
		RoundID:  e.roundID,
		BetCount: len(e.bets),
		LastDraw: e.lastDraw,
		History:  make([][]Color, len(e.history)),
	}
	copy(v.History, e.history)
	e.view.Store(v)
	if e.deps.Notifier != nil {
		e.deps.Notifier.Changed()
	}
}
