package duel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// Notifier recebe avisos da mesa; Changed deve ser não bloqueante
type Notifier interface {
	Changed()
	DuelEvent(ev Event)
}

// Recorder publica liquidações e estornos (Kafka em produção)
type Recorder interface {
	DuelSettled(ctx context.Context, ev events.DuelSettled)
	DuelAborted(ctx context.Context, ev events.DuelAborted)
}

type Deps struct {
	Log       *zap.Logger
	Ledger    ledger.Ledger
	Notifier  Notifier
	Recorder  Recorder
	Scheduler Scheduler
	RNG       RNG
	Metrics   *metrics.Arena
	Delays    Delays
}

type cmdKind int

const (
	cmdSit cmdKind = iota
	cmdLeave
	cmdDisconnect
	cmdUpdateSettings
	cmdLock
	cmdPropose
	cmdRespond
	cmdAct
	cmdSpectatorBet
	cmdTimer
	cmdClose
)

type step int

const (
	stepStart step = iota
	stepRoll
	stepReveal
	stepReset
)

type command struct {
	kind     cmdKind
	identity string
	side     Side
	settings Settings
	accept   bool
	amount   int64
	gen      uint64
	step     step
	offline  func() bool
	resp     chan error
}

// Table é a mesa de duelo. Todo estado abaixo de "estado" só é tocado pela
// goroutine run(); o resto do processo lê o View publicado.
type Table struct {
	id   string
	log  *zap.Logger
	deps Deps

	cmds     chan command
	done     chan struct{}
	stopOnce sync.Once

	// estado
	seats    [2]string
	settings Settings
	locks    [2]bool
	proposal *Proposal
	match    *Match
	bets     []SpectatorBet
	gen      uint64
	timer    Timer

	view atomic.Pointer[View]
}

// New cria a mesa e sobe o actor
func New(id string, deps Deps) *Table {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = RealScheduler()
	}
	if deps.RNG == nil {
		deps.RNG = DefaultRNG()
	}
	if deps.Delays == (Delays{}) {
		deps.Delays = DefaultDelays()
	}

	t := &Table{
		id:       id,
		log:      deps.Log.With(zap.String("table", id)),
		deps:     deps,
		cmds:     make(chan command, 256),
		done:     make(chan struct{}),
		settings: DefaultSettings(),
	}
	t.publish()
	go t.run()
	return t
}

func (t *Table) ID() string { return t.id }

// View devolve o último snapshot público; seguro fora do actor
func (t *Table) View() View { return *t.view.Load() }

func (t *Table) run() {
	for {
		select {
		case c := <-t.cmds:
			err := t.handle(c)
			if c.resp != nil {
				c.resp <- err
			}
			if c.kind == cmdClose {
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *Table) handle(c command) error {
	var err error
	switch c.kind {
	case cmdSit:
		err = t.handleSit(c.identity, c.side)
	case cmdLeave:
		err = t.handleLeave(c.identity, errLeft)
	case cmdDisconnect:
		if c.offline != nil && !c.offline() {
			return nil
		}
		err = t.handleLeave(c.identity, ErrDisconnected)
	case cmdUpdateSettings:
		err = t.handleUpdateSettings(c.identity, c.settings)
	case cmdLock:
		err = t.handleLock(c.identity)
	case cmdPropose:
		err = t.handlePropose(c.identity, c.settings)
	case cmdRespond:
		err = t.handleRespond(c.identity, c.accept)
	case cmdAct:
		err = t.handleAct(c.identity)
	case cmdSpectatorBet:
		err = t.handleSpectatorBet(c.identity, c.side, c.amount)
	case cmdTimer:
		err = t.handleTimer(c.gen, c.step)
	case cmdClose:
		t.shutdown()
		t.stopOnce.Do(func() { close(t.done) })
		return nil
	default:
		return fmt.Errorf("unknown command: %d", c.kind)
	}
	if err == nil {
		t.publish()
	}
	return err
}

// submit envia o comando ao actor e espera a resposta
func (t *Table) submit(ctx context.Context, c command) error {
	c.resp = make(chan error, 1)

	select {
	case t.cmds <- c:
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-c.resp:
		return err
	case <-t.done:
		return ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Table) Sit(ctx context.Context, identity string, side Side) error {
	return t.submit(ctx, command{kind: cmdSit, identity: identity, side: side})
}

func (t *Table) Leave(ctx context.Context, identity string) error {
	return t.submit(ctx, command{kind: cmdLeave, identity: identity})
}

// Disconnect é chamado quando a última conexão da identidade fecha
func (t *Table) Disconnect(ctx context.Context, identity string) error {
	return t.submit(ctx, command{kind: cmdDisconnect, identity: identity})
}

// DisconnectIf só libera o assento se offline ainda for verdade quando o actor
// processar o comando. Uma reconexão que chegue antes mantém o jogador na mesa.
func (t *Table) DisconnectIf(ctx context.Context, identity string, offline func() bool) error {
	return t.submit(ctx, command{kind: cmdDisconnect, identity: identity, offline: offline})
}

func (t *Table) UpdateSettings(ctx context.Context, identity string, s Settings) error {
	return t.submit(ctx, command{kind: cmdUpdateSettings, identity: identity, settings: s})
}

// Lock alterna a confirmação do jogador; com os dois confirmados a partida começa
func (t *Table) Lock(ctx context.Context, identity string) error {
	return t.submit(ctx, command{kind: cmdLock, identity: identity})
}

func (t *Table) Propose(ctx context.Context, identity string, s Settings) error {
	return t.submit(ctx, command{kind: cmdPropose, identity: identity, settings: s})
}

func (t *Table) Respond(ctx context.Context, identity string, accept bool) error {
	return t.submit(ctx, command{kind: cmdRespond, identity: identity, accept: accept})
}

func (t *Table) Act(ctx context.Context, identity string) error {
	return t.submit(ctx, command{kind: cmdAct, identity: identity})
}

func (t *Table) SpectatorBet(ctx context.Context, identity string, side Side, amount int64) error {
	return t.submit(ctx, command{kind: cmdSpectatorBet, identity: identity, side: side, amount: amount})
}

// Stop encerra o actor. Partida não liquidada é abortada com estorno completo
// e apostas de espectadores em aberto são devolvidas antes do actor sair.
func (t *Table) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := t.submit(ctx, command{kind: cmdClose}); err != nil {
		t.stopOnce.Do(func() { close(t.done) })
	}
}

// schedule agenda um passo da partida atual, marcado com a geração corrente
func (t *Table) schedule(d time.Duration, s step) {
	t.stopTimer()
	gen := t.gen
	t.timer = t.deps.Scheduler.AfterFunc(d, func() {
		_ = t.submit(context.Background(), command{kind: cmdTimer, gen: gen, step: s})
	})
}

func (t *Table) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Table) handleTimer(gen uint64, s step) error {
	if gen != t.gen || t.match == nil {
		t.log.Debug("stale timer ignored", zap.Uint64("gen", gen), zap.Uint64("current", t.gen))
		return nil
	}
	t.timer = nil
	switch s {
	case stepStart:
		return t.stepStart()
	case stepRoll:
		return t.stepRoll()
	case stepReveal:
		return t.stepReveal()
	case stepReset:
		t.reset()
	}
	return nil
}

func (t *Table) state() State {
	switch {
	case t.match == nil && t.proposal == nil:
		return StateOpen
	case t.match == nil:
		return StateProposed
	case t.match.Phase == PhaseRolling:
		return StateResolving
	case t.match.Phase == PhaseFinished:
		return StateSettled
	}
	return StateMatchActive
}

func (t *Table) seatOf(identity string) (Side, bool) {
	for i, id := range t.seats {
		if id != "" && id == identity {
			return sides[i], true
		}
	}
	return "", false
}

func (t *Table) full() bool { return t.seats[0] != "" && t.seats[1] != "" }

// publish monta o snapshot público e avisa o broadcaster
func (t *Table) publish() {
	v := &View{
		ID:       t.id,
		State:    t.state(),
		Seats:    SeatsView{Left: t.seats[0], Right: t.seats[1]},
		Settings: t.settings,
		Locks:    LocksView{Left: t.locks[0], Right: t.locks[1]},
	}
	if t.proposal != nil {
		p := *t.proposal
		v.Proposal = &p
	}
	if m := t.match; m != nil {
		v.Match = &MatchView{
			ID:     m.ID,
			Game:   m.Game,
			Rounds: m.Rounds,
			Bet:    m.Bet,
			Pot:    m.Pot,
			Round:  m.Round,
			Target: m.Target,
			Scores: m.Scores,
			Phase:  m.Phase,
			Acted:  LocksView{Left: m.Acted[0], Right: m.Acted[1]},
			Last:   m.Last,
			Winner: m.Winner,
		}
	}
	for _, b := range t.bets {
		if b.Side == Left {
			v.Bettors.Left++
		} else {
			v.Bettors.Right++
		}
	}
	t.view.Store(v)
	if t.deps.Notifier != nil {
		t.deps.Notifier.Changed()
	}
}

func (t *Table) emit(ev Event) {
	ev.TableID = t.id
	if t.deps.Notifier != nil {
		t.deps.Notifier.DuelEvent(ev)
	}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
