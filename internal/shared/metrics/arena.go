package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Arena agrupa os coletores usados pelo arena-service e pelo ledger.
// Todos os métodos aceitam receiver nil para simplificar testes.
type Arena struct {
	WSConnections   prometheus.Gauge
	Commands        *prometheus.CounterVec // labels: command, result
	MatchesSettled  *prometheus.CounterVec // labels: game
	MatchesAborted  *prometheus.CounterVec // labels: reason
	CreditsEscrowed prometheus.Counter
	SpectatorBets   prometheus.Counter
	ClassicRounds   prometheus.Counter
	ClassicPayouts  prometheus.Counter
	LedgerOps       *prometheus.CounterVec // labels: op, result
	Broadcasts      prometheus.Counter
	DroppedMessages prometheus.Counter
}

// NewArena cria os coletores e registra no registerer informado
func NewArena(reg prometheus.Registerer) *Arena {
	m := &Arena{
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_ws_connections",
			Help: "conexões WebSocket abertas",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_commands_total",
			Help: "comandos recebidos por tipo e resultado",
		}, []string{"command", "result"}),
		MatchesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_matches_settled_total",
			Help: "partidas liquidadas por jogo",
		}, []string{"game"}),
		MatchesAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_matches_aborted_total",
			Help: "partidas abortadas com estorno",
		}, []string{"reason"}),
		CreditsEscrowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_credits_escrowed_total",
			Help: "créditos bloqueados em pote de duelo",
		}),
		SpectatorBets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_spectator_bets_total",
			Help: "apostas de espectadores aceitas",
		}),
		ClassicRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_classic_rounds_total",
			Help: "rodadas clássicas sorteadas",
		}),
		ClassicPayouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_classic_payout_credits_total",
			Help: "créditos pagos no modo clássico",
		}),
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_ledger_ops_total",
			Help: "operações de saldo por tipo e resultado",
		}, []string{"op", "result"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_state_broadcasts_total",
			Help: "snapshots públicos enviados",
		}),
		DroppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_ws_dropped_messages_total",
			Help: "mensagens descartadas por buffer cheio",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.WSConnections, m.Commands, m.MatchesSettled, m.MatchesAborted,
			m.CreditsEscrowed, m.SpectatorBets, m.ClassicRounds, m.ClassicPayouts,
			m.LedgerOps, m.Broadcasts, m.DroppedMessages,
		)
	}
	return m
}

func (m *Arena) ConnOpened() {
	if m != nil {
		m.WSConnections.Inc()
	}
}

func (m *Arena) ConnClosed() {
	if m != nil {
		m.WSConnections.Dec()
	}
}

func (m *Arena) Command(name, result string) {
	if m != nil {
		m.Commands.WithLabelValues(name, result).Inc()
	}
}

func (m *Arena) MatchSettled(game string) {
	if m != nil {
		m.MatchesSettled.WithLabelValues(game).Inc()
	}
}

func (m *Arena) MatchAborted(reason string) {
	if m != nil {
		m.MatchesAborted.WithLabelValues(reason).Inc()
	}
}

func (m *Arena) Escrowed(amount int64) {
	if m != nil && amount > 0 {
		m.CreditsEscrowed.Add(float64(amount))
	}
}

func (m *Arena) SpectatorBet() {
	if m != nil {
		m.SpectatorBets.Inc()
	}
}

func (m *Arena) ClassicRound(paid int64) {
	if m == nil {
		return
	}
	m.ClassicRounds.Inc()
	if paid > 0 {
		m.ClassicPayouts.Add(float64(paid))
	}
}

func (m *Arena) LedgerOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LedgerOps.WithLabelValues(op, result).Inc()
}

func (m *Arena) Broadcast() {
	if m != nil {
		m.Broadcasts.Inc()
	}
}

func (m *Arena) Dropped() {
	if m != nil {
		m.DroppedMessages.Inc()
	}
}
