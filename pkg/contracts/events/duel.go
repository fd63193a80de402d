package events

import "time"

// Evento publicado no tópico "duel_settled" quando um duelo termina com vencedor.
type DuelSettled struct {
	Kind             string            `json:"kind"` // "SETTLED"
	MatchID          string            `json:"match_id"`
	Game             string            `json:"game"`   // coin | dice | wheel
	Rounds           string            `json:"rounds"` // bo3 | bo5 | race3 | race5
	Bet              int64             `json:"bet"`
	Pot              int64             `json:"pot"`
	Winner           string            `json:"winner"`
	Loser            string            `json:"loser"`
	Scores           Scores            `json:"scores"`
	SpectatorPayouts []SpectatorPayout `json:"spectator_payouts,omitempty"`
	Ts               time.Time         `json:"ts"`
}

// Evento publicado no mesmo tópico quando a partida é abortada e estornada.
type DuelAborted struct {
	Kind    string    `json:"kind"` // "ABORTED"
	MatchID string    `json:"match_id"`
	Reason  string    `json:"reason"` // "disconnected" | "left"
	Refunds []Refund  `json:"refunds"`
	Ts      time.Time `json:"ts"`
}

type Scores struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type SpectatorPayout struct {
	UserID string `json:"user_id"`
	Side   string `json:"side"`
	Amount int64  `json:"amount"`
	Paid   int64  `json:"paid"`
}

type Refund struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"` // DUEL_REFUND | SPECTATOR_REFUND
}

const (
	KindSettled = "SETTLED"
	KindAborted = "ABORTED"
)

// Envelope permite ao consumidor descobrir o tipo antes de decodificar
type Envelope struct {
	Kind string `json:"kind"`
}
