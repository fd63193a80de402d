package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/shared/config"
	"github.com/radieske/duel-arena/internal/shared/db"
)

// NewFromConfig escolhe o backend pelo LEDGER_MODE.
// O closer devolvido fecha a conexão de banco, quando houver.
func NewFromConfig(cfg config.Config, log *zap.Logger) (Ledger, func() error, error) {
	noop := func() error { return nil }

	switch cfg.LedgerMode {
	case "memory":
		log.Warn("ledger in memory mode, balances are lost on restart")
		return NewMemory(), noop, nil

	case "remote":
		log.Info("ledger via wallet-service", zap.String("url", cfg.WalletURL))
		return NewRemote(cfg.WalletURL), noop, nil

	case "sqlite":
		sqldb, err := db.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		l := NewSQLite(sqldb)
		if err := ensure(l.EnsureSchema); err != nil {
			_ = sqldb.Close()
			return nil, nil, err
		}
		log.Info("ledger on sqlite", zap.String("path", cfg.SQLitePath))
		return l, sqldb.Close, nil

	case "postgres", "":
		sqldb, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		l := NewPostgres(sqldb)
		if err := ensure(l.EnsureSchema); err != nil {
			_ = sqldb.Close()
			return nil, nil, err
		}
		log.Info("ledger on postgres")
		return l, sqldb.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown LEDGER_MODE %q", cfg.LedgerMode)
}

func ensure(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx)
}
