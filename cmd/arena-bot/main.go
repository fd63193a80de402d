package main

import (
	"context"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/arena-bot/client"
	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/logger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arena-bot"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ArenaURL é http(s); o bot fala ws(s) em /ws
	wsURL := strings.Replace(cfg.ArenaURL, "http", "ws", 1) + "/ws"

	sent := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arena_bot_commands_sent_total", Help: "comandos enviados pelo bot"}, []string{"bot", "command"})
	balance := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "arena_bot_balance", Help: "último saldo recebido"}, []string{"bot"})
	prometheus.MustRegister(sent, balance)

	srv := metrics.StartMetricsServer(cfg.MetricsPort, log)
	defer srv.Close()

	var wg sync.WaitGroup
	for _, id := range strings.Split(cfg.BotUsers, ",") {
		id = strings.TrimSpace(id)
		b := &client.Bot{
			URL:       wsURL,
			Identity:  id,
			BetSize:   cfg.BotBetSize,
			Duel:      true,
			Log:       log,
			OnSent:    func(cmd string) { sent.WithLabelValues(id, cmd).Inc() },
			OnBalance: func(n int64) { balance.WithLabelValues(id).Set(float64(n)) },
		}
		if err := b.Validate(); err != nil {
			log.Warn("skipping bot", zap.String("identity", id), zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Start(ctx)
		}()
	}

	log.Info("arena-bot started", zap.String("arena", wsURL), zap.String("bots", cfg.BotUsers))
	<-ctx.Done()
	wg.Wait()
	log.Info("arena-bot stopped")
}
