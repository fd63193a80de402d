package duel

import (
	"math/rand/v2"
	"time"
)

// Timer é o handle de um callback agendado
type Timer interface {
	Stop() bool
}

// Scheduler agenda callbacks; em produção é time.AfterFunc
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

// RealScheduler usa o relógio do processo
func RealScheduler() Scheduler { return realScheduler{} }

// RNG é a fonte de sorteio; IntN devolve um inteiro em [0, n)
type RNG interface {
	IntN(n int) int
}

type globalRNG struct{}

func (globalRNG) IntN(n int) int { return rand.IntN(n) }

// DefaultRNG é o PRNG sem peso do runtime
func DefaultRNG() RNG { return globalRNG{} }

type Delays struct {
	Start     time.Duration
	Reveal    time.Duration
	NextRound time.Duration
	Reset     time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Start:     2 * time.Second,
		Reveal:    3 * time.Second,
		NextRound: 2 * time.Second,
		Reset:     6 * time.Second,
	}
}
