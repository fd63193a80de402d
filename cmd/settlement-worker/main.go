package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/settlement-worker/cache"
	"github.com/radieske/duel-arena/internal/settlement-worker/consumer"
	"github.com/radieske/duel-arena/internal/settlement-worker/repository"
	sharedcache "github.com/radieske/duel-arena/internal/shared/cache"
	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/db"
	"github.com/radieske/duel-arena/internal/shared/kafka"
	"github.com/radieske/duel-arena/internal/shared/logger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres guarda audit_log e recent_results
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repo := repository.NewPostgresRepo(pg)
	sctx, scancel := context.WithTimeout(ctx, 10*time.Second)
	if err := repo.EnsureSchema(sctx); err != nil {
		log.Fatal("audit schema", zap.Error(err))
	}
	scancel()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	tctx, tcancel := context.WithTimeout(ctx, 10*time.Second)
	if err := kafka.EnsureTopics(tctx, cfg.KafkaBrokers, log, cfg.TopicDuelSettled, cfg.TopicClassicSettled, cfg.TopicSettledDLQ); err != nil {
		log.Warn("ensure topics", zap.Error(err))
	}
	tcancel()

	// Consumer group único lendo os dois tópicos de liquidação
	reader := kafka.NewReader(cfg.KafkaBrokers, "settlement-worker", cfg.TopicDuelSettled, cfg.TopicClassicSettled)
	defer reader.Close()

	var dlq consumer.MessageWriter
	if cfg.TopicSettledDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSettledDLQ)
		defer w.Close()
		dlq = w
	}

	// Métricas do worker
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens consumidas"})
	persisted := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_results_persisted_total", Help: "liquidações gravadas por tipo"}, []string{"kind"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_duplicates_total", Help: "reentregas ignoradas"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_dlq_total", Help: "mensagens enviadas para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persisted, duplicates, dead, errorsBy)

	proc := &consumer.Processor{
		Log:          log,
		Reader:       reader,
		DLQ:          dlq,
		Store:        repo,
		Cache:        cache.NewRedisCache(redisClient),
		ClassicTopic: cfg.TopicClassicSettled,
		Retries:      3,
		Backoff:      300 * time.Millisecond,
		OnConsumed:   consumed.Inc,
		OnPersisted:  func(kind string) { persisted.WithLabelValues(kind).Inc() },
		OnDuplicate:  duplicates.Inc,
		OnDLQ:        dead.Inc,
		OnError:      func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log,
		pg.PingContext,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	)
	defer metricsSrv.Close()

	log.Info("settlement-worker started",
		zap.String("duel_topic", cfg.TopicDuelSettled),
		zap.String("classic_topic", cfg.TopicClassicSettled),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
