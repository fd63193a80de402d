package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	apigateway "github.com/radieske/duel-arena/internal/api-gateway"
	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/logger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}
	log, _ := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer log.Sync()

	// targets
	h, err := apigateway.NewRouter(apigateway.Targets{
		Arena:   cfg.ArenaURL,
		Wallet:  cfg.WalletURL,
		History: cfg.HistoryURL,
	}, log)
	if err != nil {
		log.Fatal("invalid upstream url", zap.Error(err))
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(sctx)
		_ = srv.Shutdown(sctx)
	}()

	log.Info("api-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("arena", cfg.ArenaURL),
		zap.String("wallet", cfg.WalletURL),
		zap.String("history", cfg.HistoryURL),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
