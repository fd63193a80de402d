package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// BalancePublisher publica mudanças de saldo no Redis Pub/Sub.
// O wallet-service usa como sink para que a arena avise o dono do saldo.
type BalancePublisher struct {
	r       *redis.Client
	channel string
	log     *zap.Logger
}

func NewBalancePublisher(r *redis.Client, channel string, log *zap.Logger) *BalancePublisher {
	return &BalancePublisher{r: r, channel: channel, log: log}
}

func (p *BalancePublisher) BalanceChanged(ctx context.Context, identity string, balance int64) {
	b, _ := json.Marshal(events.BalanceChanged{UserID: identity, Balance: balance, Ts: time.Now().UTC()})
	if err := p.r.Publish(ctx, p.channel, b).Err(); err != nil {
		p.log.Warn("balance publish failed", zap.String("user", identity), zap.Error(err))
	}
}

// SubscribeBalances escuta o canal de saldo e repassa cada mensagem para fn.
// Roda em goroutine própria até o contexto terminar.
func SubscribeBalances(ctx context.Context, r *redis.Client, channel string, log *zap.Logger, fn func(events.BalanceChanged)) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var upd events.BalanceChanged
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("balance subscriber unmarshal error", zap.Error(err))
					continue
				}
				fn(upd)
			}
		}
	}()
}
