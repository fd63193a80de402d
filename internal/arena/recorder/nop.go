package recorder

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

// Log só registra os eventos; usado quando não há Kafka (modo memory/sqlite)
type Log struct{ log *zap.Logger }

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) DuelSettled(_ context.Context, ev events.DuelSettled) {
	l.log.Info("duel settled", zap.String("match", ev.MatchID), zap.String("winner", ev.Winner), zap.Int64("pot", ev.Pot))
}

func (l *Log) DuelAborted(_ context.Context, ev events.DuelAborted) {
	l.log.Info("duel aborted", zap.String("match", ev.MatchID), zap.String("reason", ev.Reason))
}

func (l *Log) ClassicRoundSettled(_ context.Context, ev events.ClassicRoundSettled) {
	l.log.Info("classic settled", zap.String("round", ev.RoundID), zap.Strings("draw", ev.Draw))
}
