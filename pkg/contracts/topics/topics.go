package topics

const (
	// Liquidações
	DuelSettled    = "duel_settled"
	ClassicSettled = "classic_settled"

	// DLQ compartilhada pelo settlement-worker
	SettledDLQ = "settled_dlq"

	// Canal Redis Pub/Sub de saldo (wallet-service -> arena)
	BalanceChannel = "balance_updates"
)

// Listas Redis com os resultados recentes (settlement-worker -> history-service)
const (
	RecentDuelsKey   = "recent:duels"
	RecentClassicKey = "recent:classic"
	RecentLimit      = 50
)
