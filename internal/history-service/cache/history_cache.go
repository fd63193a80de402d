package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/duel-arena/pkg/contracts/events"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyAudit(username string) string { return "history:audit:" + username }

// Recent lê as listas mantidas pelo settlement-worker; lista vazia devolve ok=false
func (c *Cache) Recent(ctx context.Context, key string, limit int) ([]events.RecentResult, bool, error) {
	raw, err := c.R.LRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	out := make([]events.RecentResult, 0, len(raw))
	for _, s := range raw {
		var r events.RecentResult
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, true, nil
}

func (c *Cache) GetAudit(ctx context.Context, username string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyAudit(username)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetAudit(ctx context.Context, username string, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyAudit(username), b, ttl).Err()
}
