package duel

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

func (t *Table) handleSit(identity string, side Side) error {
	if !side.Valid() {
		return ErrInvalidSettings
	}
	if t.state() != StateOpen {
		return ErrInvalidPhase
	}
	if _, ok := t.seatOf(identity); ok {
		return ErrAlreadySeated
	}
	if t.seats[side.idx()] != "" {
		return ErrSeatTaken
	}
	t.seats[side.idx()] = identity
	t.locks = [2]bool{}
	t.log.Info("player seated", zap.String("user", identity), zap.String("side", string(side)))
	return nil
}

// handleLeave libera o assento. Cancela proposta, aborta partida não liquidada
// com estorno completo e, sem partida, devolve as apostas de espectadores.
// Sair sem estar sentado é no-op, o que torna o cancelamento idempotente.
func (t *Table) handleLeave(identity string, cause error) error {
	side, ok := t.seatOf(identity)
	if !ok {
		return nil
	}

	switch {
	case t.match != nil && !t.match.settled:
		t.abort(cause)
		return nil
	case t.match == nil:
		t.proposal = nil
		t.refundBets(cause.Error(), "")
	}

	t.seats[side.idx()] = ""
	t.locks = [2]bool{}
	t.log.Info("player left seat", zap.String("user", identity), zap.String("reason", cause.Error()))
	return nil
}

func (t *Table) handleUpdateSettings(identity string, s Settings) error {
	if _, ok := t.seatOf(identity); !ok {
		return ErrNotSeated
	}
	if t.state() != StateOpen {
		return ErrInvalidPhase
	}
	if err := s.Validate(); err != nil {
		return err
	}
	t.settings = s
	t.locks = [2]bool{}
	return nil
}

func (t *Table) handleLock(identity string) error {
	side, ok := t.seatOf(identity)
	if !ok {
		return ErrNotSeated
	}
	if !t.full() {
		return ErrNeedOpponent
	}
	if t.state() != StateOpen {
		return ErrInvalidPhase
	}
	if t.settings.Validate() != nil || t.settings.Bet <= 0 {
		return ErrInvalidSettings
	}

	t.locks[side.idx()] = !t.locks[side.idx()]
	if !t.locks[0] || !t.locks[1] {
		return nil
	}

	if err := t.startMatch(t.settings); err != nil {
		t.locks = [2]bool{}
		t.publish()
		return err
	}
	return nil
}

func (t *Table) handlePropose(identity string, s Settings) error {
	side, ok := t.seatOf(identity)
	if !ok {
		return ErrNotSeated
	}
	if !t.full() {
		return ErrNeedOpponent
	}
	if t.state() != StateOpen {
		return ErrInvalidPhase
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Bet <= 0 {
		return ErrInvalidSettings
	}

	t.settings = s
	t.locks = [2]bool{}
	t.proposal = &Proposal{
		From:   identity,
		To:     t.seats[side.Other().idx()],
		Game:   s.Game,
		Bet:    s.Bet,
		Rounds: s.Rounds,
	}
	t.emit(Event{Kind: "proposal"})
	return nil
}

func (t *Table) handleRespond(identity string, accept bool) error {
	if t.proposal == nil {
		return ErrInvalidPhase
	}
	if t.proposal.To != identity {
		return ErrNotAddressee
	}
	if t.match != nil {
		return ErrInvalidPhase
	}

	p := *t.proposal
	t.proposal = nil
	if !accept {
		t.emit(Event{Kind: "declined"})
		return nil
	}

	err := t.startMatch(Settings{Game: p.Game, Bet: p.Bet, Rounds: p.Rounds})
	if err != nil {
		// a proposta já foi anulada; o snapshot precisa refletir isso
		t.publish()
	}
	return err
}

// startMatch faz o escrow das duas apostas (tudo ou nada) e cria a partida
func (t *Table) startMatch(s Settings) error {
	id := uuid.New().String()
	ctx, cancel := opCtx()
	defer cancel()

	err := t.deps.Ledger.Escrow(ctx, id,
		ledger.Hold{Identity: t.seats[0], Amount: s.Bet, Reason: ledger.ReasonDuelEscrow},
		ledger.Hold{Identity: t.seats[1], Amount: s.Bet, Reason: ledger.ReasonDuelEscrow},
	)
	if err != nil {
		t.log.Info("escrow rejected", zap.Int64("bet", s.Bet), zap.Error(err))
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return err
	}
	t.deps.Metrics.Escrowed(2 * s.Bet)

	t.gen++
	t.locks = [2]bool{}
	t.proposal = nil
	t.match = &Match{
		ID:      id,
		Game:    s.Game,
		Rounds:  s.Rounds,
		Bet:     s.Bet,
		Pot:     2 * s.Bet,
		Round:   1,
		Target:  s.Rounds.Target(),
		Phase:   PhaseStarting,
		Players: t.seats,
	}
	t.log.Info("match started",
		zap.String("match", id),
		zap.String("game", string(s.Game)),
		zap.String("rounds", string(s.Rounds)),
		zap.Int64("pot", t.match.Pot))
	t.emit(Event{Kind: "started", MatchID: id})
	t.schedule(t.deps.Delays.Start, stepStart)
	return nil
}

func (t *Table) handleAct(identity string) error {
	m := t.match
	if m == nil || m.Phase != PhaseAct {
		return ErrInvalidPhase
	}
	side, ok := t.seatOf(identity)
	if !ok || m.Players[side.idx()] != identity {
		return ErrNotSeated
	}
	if m.Acted[side.idx()] {
		return nil
	}
	m.Acted[side.idx()] = true
	if m.Acted[0] && m.Acted[1] {
		t.resolveRound()
	}
	return nil
}

func (t *Table) handleSpectatorBet(identity string, side Side, amount int64) error {
	if !side.Valid() {
		return ErrInvalidSettings
	}
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	if !t.full() {
		return ErrNeedOpponent
	}
	if t.match != nil && t.match.Phase != PhaseStarting {
		return ErrInvalidPhase
	}
	if _, ok := t.seatOf(identity); ok {
		return ErrAlreadySeated
	}

	ctx, cancel := opCtx()
	defer cancel()
	ref := "table:" + t.id
	if t.match != nil {
		ref = t.match.ID
	}
	if _, err := t.deps.Ledger.Debit(ctx, identity, amount, ledger.ReasonSpectatorBet, ref); err != nil {
		return err
	}

	for i := range t.bets {
		if t.bets[i].Identity == identity && t.bets[i].Side == side {
			t.bets[i].Amount += amount
			t.deps.Metrics.SpectatorBet()
			return nil
		}
	}
	t.bets = append(t.bets, SpectatorBet{Identity: identity, Side: side, Amount: amount})
	t.deps.Metrics.SpectatorBet()
	return nil
}

// stepStart encerra a janela de apostas; coin sorteia direto, os outros esperam act
func (t *Table) stepStart() error {
	m := t.match
	if m.Phase != PhaseStarting {
		return nil
	}
	if m.Game == GameCoin {
		t.resolveRound()
		return nil
	}
	m.Phase = PhaseAct
	return nil
}

// stepRoll é o avanço automático de rodada do coin
func (t *Table) stepRoll() error {
	if t.match.Phase != PhaseAct {
		return nil
	}
	t.resolveRound()
	return nil
}

// resolveRound sorteia a rodada atual e agenda a revelação
func (t *Table) resolveRound() {
	m := t.match
	m.Phase = PhaseRolling
	res := draw(t.deps.RNG, m.Game)
	res.Round = m.Round
	m.Last = &res

	t.log.Debug("round drawn", zap.String("match", m.ID), zap.Int("round", m.Round), zap.String("winner", string(res.Winner)))
	t.emit(Event{Kind: "round", MatchID: m.ID, Result: &res})
	t.schedule(t.deps.Delays.Reveal, stepReveal)
}

// stepReveal aplica o placar; atingido o alvo, liquida
func (t *Table) stepReveal() error {
	m := t.match
	if m.Phase != PhaseRolling || m.Last == nil {
		return nil
	}
	m.Scores.add(m.Last.Winner)
	if m.Scores.of(m.Last.Winner) >= m.Target {
		t.settle(m.Last.Winner)
		return nil
	}

	m.Round++
	m.Acted = [2]bool{}
	m.Phase = PhaseAct
	if m.Game == GameCoin {
		t.schedule(t.deps.Delays.NextRound, stepRoll)
	}
	return nil
}

// settle paga o pote e as apostas vencedoras. Roda no máximo uma vez por partida.
func (t *Table) settle(winner Side) {
	m := t.match
	if m.settled {
		return
	}
	m.settled = true
	m.Winner = winner
	m.Phase = PhaseFinished

	ctx, cancel := opCtx()
	defer cancel()

	winnerID := m.Players[winner.idx()]
	if _, err := t.deps.Ledger.Credit(ctx, winnerID, m.Pot, ledger.ReasonDuelPayout, m.ID); err != nil {
		t.log.Error("pot credit failed", zap.String("match", m.ID), zap.String("user", winnerID), zap.Error(err))
	}

	var payouts []events.SpectatorPayout
	for _, b := range t.bets {
		p := events.SpectatorPayout{UserID: b.Identity, Side: string(b.Side), Amount: b.Amount}
		if b.Side == winner {
			p.Paid = 2 * b.Amount
			if _, err := t.deps.Ledger.Credit(ctx, b.Identity, p.Paid, ledger.ReasonSpectatorPayout, m.ID); err != nil {
				t.log.Error("spectator payout failed", zap.String("match", m.ID), zap.String("user", b.Identity), zap.Error(err))
			}
		}
		payouts = append(payouts, p)
	}
	t.bets = nil

	t.log.Info("match settled",
		zap.String("match", m.ID),
		zap.String("winner", winnerID),
		zap.Int("left", m.Scores.Left),
		zap.Int("right", m.Scores.Right))
	t.deps.Metrics.MatchSettled(string(m.Game))

	scores := m.Scores
	t.emit(Event{Kind: "settled", MatchID: m.ID, Scores: &scores, Winner: winnerID})
	if t.deps.Recorder != nil {
		t.deps.Recorder.DuelSettled(ctx, events.DuelSettled{
			Kind:             events.KindSettled,
			MatchID:          m.ID,
			Game:             string(m.Game),
			Rounds:           string(m.Rounds),
			Bet:              m.Bet,
			Pot:              m.Pot,
			Winner:           winnerID,
			Loser:            m.Players[winner.Other().idx()],
			Scores:           events.Scores{Left: scores.Left, Right: scores.Right},
			SpectatorPayouts: payouts,
			Ts:               time.Now().UTC(),
		})
	}
	t.schedule(t.deps.Delays.Reset, stepReset)
}

// abort cancela a partida em andamento: para o timer, invalida a geração,
// estorna as duas apostas e as de espectadores e esvazia a mesa.
func (t *Table) abort(cause error) {
	m := t.match
	t.stopTimer()
	t.gen++

	ctx, cancel := opCtx()
	defer cancel()

	var refunds []events.Refund
	for _, id := range m.Players {
		if _, err := t.deps.Ledger.Credit(ctx, id, m.Bet, ledger.ReasonDuelRefund, m.ID); err != nil {
			t.log.Error("stake refund failed", zap.String("match", m.ID), zap.String("user", id), zap.Error(err))
		}
		refunds = append(refunds, events.Refund{UserID: id, Amount: m.Bet, Reason: string(ledger.ReasonDuelRefund)})
	}
	refunds = append(refunds, t.refundBets(cause.Error(), m.ID)...)

	t.log.Info("match aborted", zap.String("match", m.ID), zap.String("reason", cause.Error()))
	t.deps.Metrics.MatchAborted(cause.Error())
	t.emit(Event{Kind: "aborted", MatchID: m.ID, Reason: cause.Error()})
	if t.deps.Recorder != nil {
		t.deps.Recorder.DuelAborted(ctx, events.DuelAborted{
			Kind:    events.KindAborted,
			MatchID: m.ID,
			Reason:  cause.Error(),
			Refunds: refunds,
			Ts:      time.Now().UTC(),
		})
	}

	t.match = nil
	t.proposal = nil
	t.seats = [2]string{}
	t.locks = [2]bool{}
	t.settings = DefaultSettings()
}

// refundBets devolve todas as apostas de espectadores em aberto
func (t *Table) refundBets(reason, ref string) []events.Refund {
	if len(t.bets) == 0 {
		return nil
	}
	if ref == "" {
		ref = "table:" + t.id
	}
	ctx, cancel := opCtx()
	defer cancel()

	out := make([]events.Refund, 0, len(t.bets))
	for _, b := range t.bets {
		if _, err := t.deps.Ledger.Credit(ctx, b.Identity, b.Amount, ledger.ReasonSpectatorRefund, ref); err != nil {
			t.log.Error("spectator refund failed", zap.String("user", b.Identity), zap.Error(err))
		}
		out = append(out, events.Refund{UserID: b.Identity, Amount: b.Amount, Reason: string(ledger.ReasonSpectatorRefund)})
	}
	t.log.Info("spectator bets refunded", zap.Int("count", len(out)), zap.String("reason", reason))
	t.bets = nil
	return out
}

// shutdown devolve tudo que ainda está preso na mesa
func (t *Table) shutdown() {
	t.stopTimer()
	switch {
	case t.match != nil && !t.match.settled:
		t.abort(errShutdown)
	case t.match == nil:
		t.proposal = nil
		t.refundBets(errShutdown.Error(), "")
	}
	t.publish()
}

// reset fecha a janela de resultado e devolve a mesa a OPEN com assentos livres
func (t *Table) reset() {
	t.match = nil
	t.proposal = nil
	t.seats = [2]string{}
	t.locks = [2]bool{}
	t.settings = DefaultSettings()
	t.bets = nil
}
