package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/duel-arena/pkg/contracts/events"
	"github.com/radieske/duel-arena/pkg/contracts/topics"
)

// RedisCache mantém as listas recent:duels e recent:classic (mais novo primeiro)
type RedisCache struct {
	Client *redis.Client
	Limit  int64
}

func NewRedisCache(c *redis.Client) *RedisCache {
	return &RedisCache{Client: c, Limit: topics.RecentLimit}
}

// Key escolhe a lista pelo tipo de resultado
func Key(res events.RecentResult) string {
	if res.Kind == events.KindClassic {
		return topics.RecentClassicKey
	}
	return topics.RecentDuelsKey
}

// Push faz LPUSH + LTRIM numa única ida ao Redis
func (r *RedisCache) Push(ctx context.Context, res events.RecentResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	key := Key(res)
	_, err = r.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, b)
		p.LTrim(ctx, key, 0, r.Limit-1)
		return nil
	})
	return err
}
