package recorder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/shared/metrics"
	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// MessageWriter é o subconjunto do kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type outgoing struct {
	w   MessageWriter
	msg kafka.Message
}

// KafkaRecorder publica liquidações fora da goroutine da mesa.
// Enfileira e retorna; se a fila estiver cheia o evento é descartado com log.
type KafkaRecorder struct {
	duel    MessageWriter
	classic MessageWriter
	log     *zap.Logger
	metrics *metrics.Arena
	queue   chan outgoing
}

func NewKafkaRecorder(duel, classic MessageWriter, log *zap.Logger, m *metrics.Arena) *KafkaRecorder {
	return &KafkaRecorder{
		duel:    duel,
		classic: classic,
		log:     log,
		metrics: m,
		queue:   make(chan outgoing, 1024),
	}
}

func (r *KafkaRecorder) DuelSettled(_ context.Context, ev events.DuelSettled) {
	r.enqueue(r.duel, ev.MatchID, ev)
}

func (r *KafkaRecorder) DuelAborted(_ context.Context, ev events.DuelAborted) {
	r.enqueue(r.duel, ev.MatchID, ev)
}

func (r *KafkaRecorder) ClassicRoundSettled(_ context.Context, ev events.ClassicRoundSettled) {
	r.enqueue(r.classic, ev.RoundID, ev)
}

func (r *KafkaRecorder) enqueue(w MessageWriter, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		r.log.Error("marshal settlement event", zap.Error(err))
		return
	}
	select {
	case r.queue <- outgoing{w: w, msg: kafka.Message{Key: []byte(key), Value: b, Time: time.Now()}}:
	default:
		r.log.Warn("settlement queue full, event dropped", zap.String("key", key))
		r.metrics.Dropped()
	}
}

// Run drena a fila até o contexto terminar; no fim fecha os writers
func (r *KafkaRecorder) Run(ctx context.Context) error {
	defer func() {
		_ = r.duel.Close()
		_ = r.classic.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case o := <-r.queue:
			r.write(ctx, o)
		}
	}
}

// flush envia o que sobrou na fila com um prazo curto
func (r *KafkaRecorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case o := <-r.queue:
			r.write(ctx, o)
		default:
			return
		}
	}
}

func (r *KafkaRecorder) write(ctx context.Context, o outgoing) {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := o.w.WriteMessages(wctx, o.msg); err != nil {
		r.log.Error("failed to publish settlement", zap.String("key", string(o.msg.Key)), zap.Error(err))
		return
	}
	r.log.Debug("settlement published", zap.String("key", string(o.msg.Key)))
}
