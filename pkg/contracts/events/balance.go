package events

import "time"

// Payload do canal Redis de saldo
type BalanceChanged struct {
	UserID  string    `json:"user_id"`
	Balance int64     `json:"balance"`
	Ts      time.Time `json:"ts"`
}
