package events

import "time"

// Resumo compacto guardado nas listas recent:* e na tabela recent_results
type RecentResult struct {
	Kind   string    `json:"kind"` // SETTLED | ABORTED | CLASSIC
	RefID  string    `json:"ref_id"`
	Game   string    `json:"game,omitempty"`
	Winner string    `json:"winner,omitempty"`
	Loser  string    `json:"loser,omitempty"`
	Scores *Scores   `json:"scores,omitempty"`
	Pot    int64     `json:"pot,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Draw   []string  `json:"draw,omitempty"`
	Bets   int       `json:"bets,omitempty"`
	Paid   int64     `json:"paid,omitempty"`
	Ts     time.Time `json:"ts"`
}

const KindClassic = "CLASSIC"

// Linha do audit_log exposta pelo history-service
type AuditEntry struct {
	Action    string    `json:"action"`
	Username  string    `json:"username"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
