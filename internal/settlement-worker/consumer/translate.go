package consumer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// Ações gravadas no audit_log
const (
	ActionDuelWin       = "DUEL_WIN"
	ActionDuelLoss      = "DUEL_LOSS"
	ActionDuelAbort     = "DUEL_ABORT"
	ActionSpectatorWin  = "SPECTATOR_WIN"
	ActionSpectatorLoss = "SPECTATOR_LOSS"
	ActionClassicRound  = "CLASSIC_ROUND"
)

// Translated é o que um evento vira no banco e no cache
type Translated struct {
	Result events.RecentResult
	Audit  []events.AuditEntry
}

// Translate decodifica a mensagem pelo tópico de origem
func Translate(topic string, value []byte, classicTopic string) (Translated, error) {
	if topic == classicTopic {
		var ev events.ClassicRoundSettled
		if err := json.Unmarshal(value, &ev); err != nil {
			return Translated{}, fmt.Errorf("decode classic: %w", err)
		}
		return fromClassic(ev), nil
	}

	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return Translated{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Kind {
	case events.KindSettled:
		var ev events.DuelSettled
		if err := json.Unmarshal(value, &ev); err != nil {
			return Translated{}, fmt.Errorf("decode duel settled: %w", err)
		}
		return fromDuelSettled(ev), nil
	case events.KindAborted:
		var ev events.DuelAborted
		if err := json.Unmarshal(value, &ev); err != nil {
			return Translated{}, fmt.Errorf("decode duel aborted: %w", err)
		}
		return fromDuelAborted(ev), nil
	}
	return Translated{}, fmt.Errorf("unknown duel event kind %q", env.Kind)
}

func fromDuelSettled(ev events.DuelSettled) Translated {
	scores := ev.Scores
	t := Translated{
		Result: events.RecentResult{
			Kind:   events.KindSettled,
			RefID:  ev.MatchID,
			Game:   ev.Game,
			Winner: ev.Winner,
			Loser:  ev.Loser,
			Scores: &scores,
			Pot:    ev.Pot,
			Ts:     ev.Ts,
		},
	}
	score := fmt.Sprintf("%d-%d", ev.Scores.Left, ev.Scores.Right)
	t.Audit = append(t.Audit,
		events.AuditEntry{
			Action:    ActionDuelWin,
			Username:  ev.Winner,
			Details:   fmt.Sprintf("won %d vs %s (%s %s, %s)", ev.Pot, ev.Loser, ev.Game, ev.Rounds, score),
			CreatedAt: ev.Ts,
		},
		events.AuditEntry{
			Action:    ActionDuelLoss,
			Username:  ev.Loser,
			Details:   fmt.Sprintf("lost %d vs %s (%s %s, %s)", ev.Bet, ev.Winner, ev.Game, ev.Rounds, score),
			CreatedAt: ev.Ts,
		},
	)
	for _, sp := range ev.SpectatorPayouts {
		a := events.AuditEntry{Username: sp.UserID, CreatedAt: ev.Ts}
		if sp.Paid > 0 {
			a.Action = ActionSpectatorWin
			a.Details = fmt.Sprintf("won %d backing %s (match %s)", sp.Paid, sp.Side, ev.MatchID)
		} else {
			a.Action = ActionSpectatorLoss
			a.Details = fmt.Sprintf("lost %d backing %s (match %s)", sp.Amount, sp.Side, ev.MatchID)
		}
		t.Audit = append(t.Audit, a)
	}
	return t
}

func fromDuelAborted(ev events.DuelAborted) Translated {
	t := Translated{
		Result: events.RecentResult{
			Kind:   events.KindAborted,
			RefID:  ev.MatchID,
			Reason: ev.Reason,
			Ts:     ev.Ts,
		},
	}
	for _, r := range ev.Refunds {
		t.Audit = append(t.Audit, events.AuditEntry{
			Action:    ActionDuelAbort,
			Username:  r.UserID,
			Details:   fmt.Sprintf("refunded %d (%s, %s)", r.Amount, strings.ToLower(r.Reason), ev.Reason),
			CreatedAt: ev.Ts,
		})
	}
	return t
}

func fromClassic(ev events.ClassicRoundSettled) Translated {
	paid := make(map[string]events.ClassicPayout, len(ev.Payouts))
	var total int64
	for _, p := range ev.Payouts {
		paid[p.UserID] = p
		total += p.Paid
	}

	t := Translated{
		Result: events.RecentResult{
			Kind:  events.KindClassic,
			RefID: ev.RoundID,
			Draw:  ev.Draw,
			Bets:  len(ev.Bets),
			Paid:  total,
			Ts:    ev.Ts,
		},
	}
	draw := strings.Join(ev.Draw, ",")
	for _, b := range ev.Bets {
		d := fmt.Sprintf("bet %d on %s, draw %s", b.Amount, b.Selection, draw)
		if p, ok := paid[b.UserID]; ok && p.Paid > 0 {
			d += fmt.Sprintf(", %d matches, paid %d", p.Matches, p.Paid)
		}
		t.Audit = append(t.Audit, events.AuditEntry{
			Action:    ActionClassicRound,
			Username:  b.UserID,
			Details:   d,
			CreatedAt: ev.Ts,
		})
	}
	return t
}
