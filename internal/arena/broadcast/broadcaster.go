package broadcast

import (
	"context"
	"time"

	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/duel"
	"github.com/radieske/duel-arena/internal/arena/presence"
	"github.com/radieske/duel-arena/internal/shared/metrics"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// Tipos de mensagem enviados ao cliente
const (
	TypeInit          = "init"
	TypeStateUpdate   = "state_update"
	TypeBalanceUpdate = "balance_update"
	TypeDuelEvent     = "duel_event"
	TypeClassicPhase  = "classic_phase"
	TypeError         = "error"
	TypeMsg           = "msg"
	TypePong          = "pong"
)

// Snapshot é o estado público completo; nada privado entra aqui
type Snapshot struct {
	Players     []string     `json:"players"`
	OnlineCount int          `json:"onlineCount"`
	Duel        duel.View    `json:"duel"`
	Classic     classic.View `json:"classic"`
}

type BalanceUpdate struct {
	Amount int64 `json:"amount"`
}

// Viewers são as fontes do snapshot
type Viewers struct {
	Presence *presence.Registry
	Duel     interface{ View() duel.View }
	Classic  interface{ View() classic.View }
}

// Broadcaster junta várias mudanças num único state_update.
// Changed nunca bloqueia: com um aviso pendente, os demais são absorvidos.
type Broadcaster struct {
	hub     *Hub
	src     Viewers
	dirty   chan struct{}
	metrics *metrics.Arena
}

func New(hub *Hub, src Viewers, m *metrics.Arena) *Broadcaster {
	return &Broadcaster{hub: hub, src: src, dirty: make(chan struct{}, 1), metrics: m}
}

// SetSources troca as fontes antes do Run (mesa e motor são criados depois do broadcaster)
func (b *Broadcaster) SetSources(src Viewers) { b.src = src }

func (b *Broadcaster) Changed() {
	select {
	case b.dirty <- struct{}{}:
	default:
	}
}

func (b *Broadcaster) Snapshot() Snapshot {
	s := Snapshot{Players: []string{}}
	if b.src.Presence != nil {
		s.Players = b.src.Presence.Roster()
		s.OnlineCount = len(s.Players)
	}
	if b.src.Duel != nil {
		s.Duel = b.src.Duel.View()
	}
	if b.src.Classic != nil {
		s.Classic = b.src.Classic.View()
	}
	return s
}

// Run envia um state_update por rajada de mudanças, no máximo a cada minGap
func (b *Broadcaster) Run(ctx context.Context, minGap time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.dirty:
			b.hub.Broadcast(Encode(TypeStateUpdate, b.Snapshot()))
			b.metrics.Broadcast()
			if minGap > 0 {
				select {
				case <-time.After(minGap):
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (b *Broadcaster) DuelEvent(ev duel.Event) {
	b.hub.Broadcast(Encode(TypeDuelEvent, ev))
}

func (b *Broadcaster) ClassicPhase(ev classic.PhaseEvent) {
	b.hub.Broadcast(Encode(TypeClassicPhase, ev))
}

// BalanceChanged empurra o saldo só para as conexões do dono
func (b *Broadcaster) BalanceChanged(_ context.Context, identity string, balance int64) {
	b.hub.SendTo(identity, Encode(TypeBalanceUpdate, BalanceUpdate{Amount: balance}))
}

// RelayBalance repassa mudanças vindas do canal Redis (wallet-service)
func (b *Broadcaster) RelayBalance(ev events.BalanceChanged) {
	b.hub.SendTo(ev.UserID, Encode(TypeBalanceUpdate, BalanceUpdate{Amount: ev.Balance}))
}
