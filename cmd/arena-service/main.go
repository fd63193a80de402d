package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/duel-arena/internal/arena/broadcast"
	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/duel"
	"github.com/radieske/duel-arena/internal/arena/gateway"
	"github.com/radieske/duel-arena/internal/arena/presence"
	"github.com/radieske/duel-arena/internal/arena/recorder"
	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/shared/cache"
	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/kafka"
	"github.com/radieske/duel-arena/internal/shared/logger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
	whttp "github.com/radieske/duel-arena/internal/wallet-service/http"
)

// recorders satisfaz tanto a mesa quanto o motor clássico
type recorders interface {
	duel.Recorder
	classic.Recorder
}

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arena-service"
	}
	log, _ := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewArena(prometheus.DefaultRegisterer)

	// Ledger
	base, closeLedger, err := ledger.NewFromConfig(cfg, log)
	if err != nil {
		log.Fatal("ledger", zap.Error(err))
	}
	defer closeLedger()

	// Broadcast + presença
	hub := broadcast.NewHub(m)
	reg := presence.NewRegistry()
	bc := broadcast.New(hub, broadcast.Viewers{Presence: reg}, m)

	led := ledger.NewNotifying(base, log, bc).WithOpCounter(m.LedgerOp)

	// Redis é opcional: sem ele o saldo só chega por push local
	var rdb *redis.Client
	if cfg.LedgerMode != "memory" {
		if rdb, err = cache.ConnectRedis(cfg.RedisAddr); err != nil {
			log.Warn("redis unavailable, balance relay disabled", zap.Error(err))
			rdb = nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// o recorder só para de drenar depois que mesa e motor devolveram o que estava em jogo
	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	// Kafka é opcional: sem brokers os eventos só vão pro log
	var rec recorders = recorder.NewLog(log)
	if brokers := kafka.Brokers(cfg.KafkaBrokers); len(brokers) > 0 {
		tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := kafka.EnsureTopics(tctx, cfg.KafkaBrokers, log, cfg.TopicDuelSettled, cfg.TopicClassicSettled, cfg.TopicSettledDLQ)
		cancel()
		if err != nil {
			log.Warn("kafka unavailable, settlement events only logged", zap.Error(err))
		} else {
			kr := recorder.NewKafkaRecorder(
				kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDuelSettled),
				kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicClassicSettled),
				log, m,
			)
			g.Go(func() error { return kr.Run(recCtx) })
			rec = kr
		}
	}

	table := duel.New("main", duel.Deps{
		Log:      log,
		Ledger:   led,
		Notifier: bc,
		Recorder: rec,
		Metrics:  m,
		Delays: duel.Delays{
			Start:     cfg.DuelStartDelay,
			Reveal:    cfg.DuelRevealDelay,
			NextRound: cfg.DuelNextRoundDelay,
			Reset:     cfg.DuelResetDelay,
		},
	})

	eng := classic.New(classic.Config{
		BettingSeconds: cfg.ClassicBettingSeconds,
		RollingSeconds: cfg.ClassicRollingSeconds,
		ResultSeconds:  cfg.ClassicResultSeconds,
		HistorySize:    cfg.ClassicHistorySize,
		Tick:           time.Second,
	}, classic.Deps{
		Log:      log,
		Ledger:   led,
		Notifier: bc,
		Recorder: rec,
		Metrics:  m,
	})

	bc.SetSources(broadcast.Viewers{Presence: reg, Duel: table, Classic: eng})
	g.Go(func() error { return bc.Run(gctx, 50*time.Millisecond) })

	if rdb != nil {
		g.Go(func() error {
			ledger.SubscribeBalances(gctx, rdb, cfg.BalanceChannel, log, bc.RelayBalance)
			return nil
		})
	}

	gw := gateway.New(gateway.Deps{
		Log:         log,
		Presence:    reg,
		Hub:         hub,
		Broadcaster: bc,
		Table:       table,
		Classic:     eng,
		Ledger:      led,
		Metrics:     m,
	}, gateway.Options{
		StartingBalance: cfg.StartingBalance,
		RatePerSec:      cfg.WSRatePerSec,
		RateBurst:       cfg.WSRateBurst,
	})

	wallet := whttp.NewServer(log, led, cfg.StartingBalance)
	if lister, ok := base.(ledger.EntryLister); ok {
		wallet = wallet.WithEntries(lister)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/ws", gw.HandleWS)
	r.Get("/api/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(broadcast.Encode(broadcast.TypeStateUpdate, bc.Snapshot()))
	})
	r.Mount("/api", http.StripPrefix("/api", wallet.Router()))

	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	checks := []metrics.HealthFunc{
		func(ctx context.Context) error { return ledger.Ping(ctx, base) },
	}
	if rdb != nil {
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	g.Go(func() error {
		log.Info("arena-service listening", zap.String("addr", apiSrv.Addr), zap.String("ledger", cfg.LedgerMode))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := apiSrv.Shutdown(sctx)

		table.Stop()
		eng.Stop()
		stopRecorder()

		_ = metricsSrv.Shutdown(sctx)
		if rdb != nil {
			_ = rdb.Close()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("arena-service stopped with error", zap.Error(err))
		return
	}
	log.Info("arena-service stopped")
}
