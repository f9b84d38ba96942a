// Package cachebridge implements the reference two-tier cache adapter
// consumed by internal/gateway.Cache: an in-process ristretto L1 in front
// of the shared internal/redis L2, with singleflight collapsing concurrent
// misses for the same key into one lookup. Grounded directly on the
// teacher's internal/cache.Cache (L1 ristretto + L2 redis + singleflight),
// generalized from balance/leaderboard keys to guild/user/channel/role/
// emoji snowflake keys.
package cachebridge

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shardcore/internal/gateway"
	"shardcore/internal/redis"
	"shardcore/internal/snowflake"
)

const (
	defaultL1TTL = 5 * time.Minute
	l2TTL        = 30 * time.Minute
)

// RistrettoRedisCache is the concrete gateway.Cache implementation this
// module ships as a reference; production embedders may supply their own.
type RistrettoRedisCache struct {
	log *zap.Logger
	l1  *ristretto.Cache
	l2  *redis.Client
	sf  singleflight.Group
}

// New constructs the two-tier cache. l2 may be nil, in which case only the
// L1 ristretto tier is used (useful for tests and single-process demos).
func New(log *zap.Logger, l2 *redis.Client) (*RistrettoRedisCache, error) {
	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoRedisCache{log: log, l1: l1, l2: l2}, nil
}

var _ gateway.Cache = (*RistrettoRedisCache)(nil)

func (c *RistrettoRedisCache) FindGuild(id snowflake.ID) *gateway.Guild {
	var out gateway.Guild
	if c.lookup("guild:"+id.String(), &out) {
		return &out
	}
	return nil
}

func (c *RistrettoRedisCache) FindUser(id snowflake.ID) *gateway.User {
	var out gateway.User
	if c.lookup("user:"+id.String(), &out) {
		return &out
	}
	return nil
}

func (c *RistrettoRedisCache) FindChannel(id snowflake.ID) *gateway.Channel {
	var out gateway.Channel
	if c.lookup("channel:"+id.String(), &out) {
		return &out
	}
	return nil
}

func (c *RistrettoRedisCache) FindRole(id snowflake.ID) *gateway.Role {
	var out gateway.Role
	if c.lookup("role:"+id.String(), &out) {
		return &out
	}
	return nil
}

func (c *RistrettoRedisCache) FindEmoji(id snowflake.ID) *gateway.Emoji {
	var out gateway.Emoji
	if c.lookup("emoji:"+id.String(), &out) {
		return &out
	}
	return nil
}

// lookup checks L1, then L2 (collapsing concurrent misses via
// singleflight), unmarshaling into out on a hit.
func (c *RistrettoRedisCache) lookup(key string, out interface{}) bool {
	if v, ok := c.l1.Get(key); ok {
		raw, ok := v.([]byte)
		if !ok {
			return false
		}
		return json.Unmarshal(raw, out) == nil
	}

	if c.l2 == nil {
		return false
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.l2.Get(context.Background(), key)
	})
	if err != nil {
		c.log.Debug("cache l2 lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	raw, ok := v.(string)
	if !ok || raw == "" {
		return false
	}
	c.l1.SetWithTTL(key, []byte(raw), int64(len(raw)), defaultL1TTL)
	return json.Unmarshal([]byte(raw), out) == nil
}

// Put populates both tiers. It is not part of the gateway.Cache interface,
// which is read-only from the gateway's perspective, and nothing in this
// module outside the tests calls it.
func (c *RistrettoRedisCache) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.l1.SetWithTTL(key, raw, int64(len(raw)), defaultL1TTL)
	if c.l2 != nil {
		return c.l2.Set(ctx, key, string(raw), l2TTL)
	}
	return nil
}
