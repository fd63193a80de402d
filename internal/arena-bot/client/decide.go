package client

import (
	"fmt"

	"github.com/radieske/duel-arena/internal/arena/broadcast"
	"github.com/radieske/duel-arena/internal/arena/duel"
)

// Command é um comando pronto para envio; Key evita repetir a mesma jogada
type Command struct {
	Type string
	Data any
	Key  string
}

// DecideDuel escolhe no máximo uma jogada de duelo para o snapshot atual
func DecideDuel(me string, snap broadcast.Snapshot, bet int64) (Command, bool) {
	v := snap.Duel
	side, seated := seatOf(me, v.Seats)

	switch v.State {
	case duel.StateOpen:
		if !seated {
			switch {
			case v.Seats.Left == "":
				return Command{Type: "sit", Data: map[string]string{"side": string(duel.Left)}, Key: "sit"}, true
			case v.Seats.Right == "":
				return Command{Type: "sit", Data: map[string]string{"side": string(duel.Right)}, Key: "sit"}, true
			}
			return Command{}, false
		}
		// quem está na esquerda propõe quando a mesa enche
		if side == duel.Left && v.Seats.Right != "" {
			s := duel.Settings{Game: duel.GameCoin, Bet: bet, Rounds: duel.BestOf3}
			return Command{Type: "propose", Data: s, Key: "propose:" + v.Seats.Right}, true
		}

	case duel.StateProposed:
		if v.Proposal != nil && v.Proposal.To == me {
			return Command{Type: "respond", Data: "ACCEPT", Key: "accept:" + v.Proposal.From}, true
		}

	case duel.StateMatchActive:
		m := v.Match
		if !seated || m == nil || m.Phase != duel.PhaseAct {
			return Command{}, false
		}
		acted := m.Acted.Left
		if side == duel.Right {
			acted = m.Acted.Right
		}
		if !acted {
			return Command{Type: "act", Key: fmt.Sprintf("act:%s:%d", m.ID, m.Round)}, true
		}
	}
	return Command{}, false
}

func seatOf(me string, s duel.SeatsView) (duel.Side, bool) {
	switch me {
	case s.Left:
		return duel.Left, true
	case s.Right:
		return duel.Right, true
	}
	return "", false
}
