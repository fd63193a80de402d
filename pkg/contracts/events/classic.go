package events

import "time"

// Evento publicado no tópico "classic_settled" ao fim de cada sorteio clássico.
type ClassicRoundSettled struct {
	RoundID string          `json:"round_id"`
	Draw    []string        `json:"draw"`
	Bets    []ClassicBet    `json:"bets"`
	Payouts []ClassicPayout `json:"payouts,omitempty"`
	Ts      time.Time       `json:"ts"`
}

type ClassicBet struct {
	UserID    string `json:"user_id"`
	Selection string `json:"selection"`
	Amount    int64  `json:"amount"`
}

type ClassicPayout struct {
	UserID  string `json:"user_id"`
	Matches int    `json:"matches"`
	Paid    int64  `json:"paid"`
}
