package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	hcache "github.com/radieske/duel-arena/internal/history-service/cache"
	httpapi "github.com/radieske/duel-arena/internal/history-service/http"
	"github.com/radieske/duel-arena/internal/history-service/repo"
	"github.com/radieske/duel-arena/internal/shared/cache"
	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/db"
	"github.com/radieske/duel-arena/internal/shared/logger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "history-service"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// conecta com db Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	api := &httpapi.API{Log: log, ReadRepo: &repo.ReadRepo{DB: pg}}
	checks := []metrics.HealthFunc{pg.PingContext}

	// Redis é opcional: sem ele tudo vem do Postgres
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, serving from postgres only", zap.Error(err))
	} else {
		defer redisClient.Close()
		api.Cache = hcache.New(redisClient)
		checks = append(checks, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		log.Info("redis connected")
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, checks...)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
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

	log.Info("history-service listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("http server failed", zap.Error(err))
	}
}
