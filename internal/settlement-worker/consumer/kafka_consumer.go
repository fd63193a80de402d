package consumer

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Store grava resultado + auditoria; false indica reentrega já processada
type Store interface {
	Record(ctx context.Context, res events.RecentResult, audit []events.AuditEntry) (bool, error)
}

type Cache interface {
	Push(ctx context.Context, res events.RecentResult) error
}

// Processor consome as liquidações do Kafka, persiste a auditoria e atualiza as listas recentes.
// Falha de banco é tentada de novo Retries vezes e depois vai para a DLQ.
type Processor struct {
	Log          *zap.Logger
	Reader       MessageReader
	DLQ          MessageWriter // opcional
	Store        Store
	Cache        Cache // opcional
	ClassicTopic string
	Retries      int
	Backoff      time.Duration

	OnConsumed  func()       // métricas
	OnPersisted func(string) // métricas por kind
	OnDuplicate func()
	OnDLQ       func()
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal; termina quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma única mensagem
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	t, err := Translate(m.Topic, m.Value, p.ClassicTopic)
	if err != nil {
		p.Log.Warn("invalid message", zap.String("topic", m.Topic), zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m)
		return
	}

	fresh, err := p.record(ctx, t)
	if err != nil {
		p.Log.Error("persist failed, sending to dlq",
			zap.String("ref", t.Result.RefID), zap.Error(err))
		p.fail("db")
		p.deadLetter(ctx, m)
		return
	}
	if !fresh {
		p.Log.Debug("duplicate settlement ignored", zap.String("ref", t.Result.RefID))
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return
	}
	if p.OnPersisted != nil {
		p.OnPersisted(t.Result.Kind)
	}

	// cache não bloqueia: o history-service cai no Postgres
	if p.Cache != nil {
		if err := p.Cache.Push(ctx, t.Result); err != nil {
			p.Log.Warn("redis push failed", zap.String("ref", t.Result.RefID), zap.Error(err))
			p.fail("cache")
		}
	}
}

func (p *Processor) record(ctx context.Context, t Translated) (bool, error) {
	fresh, err := p.Store.Record(ctx, t.Result, t.Audit)
	for i := 0; err != nil && i < p.Retries; i++ {
		select {
		case <-time.After(p.Backoff * time.Duration(i+1)):
		case <-ctx.Done():
			return false, ctx.Err()
		}
		fresh, err = p.Store.Record(ctx, t.Result, t.Audit)
	}
	return fresh, err
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
