package duel

import (
	"errors"

	"github.com/radieske/duel-arena/internal/ledger"
)

var (
	ErrSeatTaken       = errors.New("seat taken")
	ErrAlreadySeated   = errors.New("already seated")
	ErrNeedOpponent    = errors.New("need opponent")
	ErrNotAddressee    = errors.New("not the addressee")
	ErrInvalidPhase    = errors.New("invalid phase")
	ErrDisconnected    = errors.New("disconnected")
	ErrNotSeated       = errors.New("not seated")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrTableClosed     = errors.New("table closed")

	// mesmo valor do ledger para que errors.Is funcione dos dois lados
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
)

// errLeft é o motivo de abort quando o jogador sai por conta própria
var errLeft = errors.New("left")

// errShutdown é o motivo de abort quando o serviço encerra
var errShutdown = errors.New("shutdown")
