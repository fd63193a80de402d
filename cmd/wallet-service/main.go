package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/shared/cache"
	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/logger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
	whttp "github.com/radieske/duel-arena/internal/wallet-service/http"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("wallet-service", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wallet-service"), zap.String("env", cfg.Env))

	// A carteira é a dona do saldo; não faz sentido apontar pra ela mesma
	if cfg.LedgerMode == "remote" {
		log.Warn("LEDGER_MODE=remote ignored by wallet-service, using postgres")
		cfg.LedgerMode = "postgres"
	}

	base, closeLedger, err := ledger.NewFromConfig(cfg, log)
	if err != nil {
		log.Fatal("ledger", zap.Error(err))
	}
	defer closeLedger()

	m := metrics.NewArena(prometheus.DefaultRegisterer)

	// Mudanças de saldo saem pelo Redis pra o arena-service repassar ao dono
	var sinks []ledger.BalanceSink
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, balance updates not published", zap.Error(err))
	} else {
		defer rdb.Close()
		sinks = append(sinks, ledger.NewBalancePublisher(rdb, cfg.BalanceChannel, log))
	}
	led := ledger.NewNotifying(base, log, sinks...).WithOpCounter(m.LedgerOp)

	api := whttp.NewServer(log, led, cfg.StartingBalance)
	if lister, ok := base.(ledger.EntryLister); ok {
		api = api.WithEntries(lister)
	}

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8082
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		return ledger.Ping(ctx, base)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(sctx)
		_ = apiSrv.Shutdown(sctx)
	}()

	// Inicia servidor principal da API de wallet
	log.Info("api listening", zap.String("addr", apiSrv.Addr), zap.String("ledger", cfg.LedgerMode))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
