package gateway

import (
	"errors"

	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/duel"
	"github.com/radieske/duel-arena/internal/ledger"
)

// Códigos estáveis enviados no evento error
const (
	CodeSeatTaken         = "seat_taken"
	CodeAlreadySeated     = "already_seated"
	CodeNeedOpponent      = "need_opponent"
	CodeNotAddressee      = "not_addressee"
	CodeInsufficientFunds = "insufficient_funds"
	CodeInvalidPhase      = "invalid_phase"
	CodeDisconnected      = "disconnected"
	CodeNotSeated         = "not_seated"
	CodeInvalidSettings   = "invalid_settings"
	CodeInvalidSelection  = "invalid_selection"
	CodeInvalidAmount     = "invalid_amount"
	CodeUnavailable       = "unavailable"
	CodeBadRequest        = "bad_request"
	CodeUnknownCommand    = "unknown_command"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
)

type errorPayload struct {
	Code    string `json:"code"`
	Command string `json:"command,omitempty"`
	Message string `json:"message,omitempty"`
}

var codes = []struct {
	err  error
	code string
}{
	{duel.ErrSeatTaken, CodeSeatTaken},
	{duel.ErrAlreadySeated, CodeAlreadySeated},
	{duel.ErrNeedOpponent, CodeNeedOpponent},
	{duel.ErrNotAddressee, CodeNotAddressee},
	{ledger.ErrInsufficientFunds, CodeInsufficientFunds},
	{duel.ErrInvalidPhase, CodeInvalidPhase},
	{classic.ErrInvalidPhase, CodeInvalidPhase},
	{duel.ErrDisconnected, CodeDisconnected},
	{duel.ErrNotSeated, CodeNotSeated},
	{duel.ErrInvalidSettings, CodeInvalidSettings},
	{classic.ErrInvalidSelection, CodeInvalidSelection},
	{ledger.ErrInvalidAmount, CodeInvalidAmount},
	{ledger.ErrNotFound, CodeInvalidAmount},
	{duel.ErrTableClosed, CodeUnavailable},
	{classic.ErrEngineClosed, CodeUnavailable},
	{errBadRequest, CodeBadRequest},
	{errUnknownCommand, CodeUnknownCommand},
}

// Code traduz um erro de domínio no código enviado ao cliente
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
