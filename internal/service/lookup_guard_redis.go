package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisLookupMissScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local base_ms = tonumber(ARGV[2])
local multiplier = tonumber(ARGV[3])
local max_ms = tonumber(ARGV[4])
local reset_ms = tonumber(ARGV[5])
local free_misses = tonumber(ARGV[6])

local key = KEYS[1]
local misses = tonumber(redis.call("HGET", key, "misses") or "0")
local last_miss_ms = tonumber(redis.call("HGET", key, "last_miss_ms") or "0")

if last_miss_ms == 0 or (now_ms - last_miss_ms) > reset_ms then
  misses = 0
end

misses = misses + 1
local delay = 0
if misses > free_misses then
  delay = math.floor(base_ms * (multiplier ^ (misses - free_misses - 1)))
end
if delay > max_ms then
  delay = max_ms
end

redis.call("HSET", key, "misses", tostring(misses), "last_miss_ms", tostring(now_ms), "cooldown_until_ms", tostring(now_ms + delay))
redis.call("PEXPIRE", key, reset_ms + delay + 60000)
return delay
`)

// RedisLookupGuard shares miss counts across API replicas.
type RedisLookupGuard struct {
	client redis.UniversalClient
	prefix string
	policy LookupGuardPolicy
	now    func() time.Time
}

func NewRedisLookupGuard(client redis.UniversalClient, prefix string, policy LookupGuardPolicy) *RedisLookupGuard {
	if prefix == "" {
		prefix = "lookup_guard"
	}
	return &RedisLookupGuard{
		client: client,
		prefix: prefix,
		policy: normalizeLookupGuardPolicy(policy),
		now:    time.Now,
	}
}

func (g *RedisLookupGuard) Check(ctx context.Context, client, session string) (time.Duration, error) {
	now := g.now().UTC()
	clientDelay, err := g.cooldownForKey(ctx, g.key("client", client), now)
	if err != nil {
		return 0, err
	}
	sessionDelay, err := g.cooldownForKey(ctx, g.key("session", session), now)
	if err != nil {
		return 0, err
	}
	return max(clientDelay, sessionDelay), nil
}

func (g *RedisLookupGuard) RegisterMiss(ctx context.Context, client, session string) (time.Duration, error) {
	nowMS := g.now().UTC().UnixMilli()
	clientDelay, err := g.bump(ctx, g.key("client", client), nowMS)
	if err != nil {
		return 0, err
	}
	sessionDelay, err := g.bump(ctx, g.key("session", session), nowMS)
	if err != nil {
		return 0, err
	}
	return max(clientDelay, sessionDelay), nil
}

func (g *RedisLookupGuard) bump(ctx context.Context, key string, nowMS int64) (time.Duration, error) {
	result, err := redisLookupMissScript.Run(
		ctx,
		g.client,
		[]string{key},
		nowMS,
		g.policy.BaseDelay.Milliseconds(),
		g.policy.Multiplier,
		g.policy.MaxDelay.Milliseconds(),
		g.policy.ResetWindow.Milliseconds(),
		g.policy.FreeMisses,
	).Result()
	if err != nil {
		return 0, err
	}
	delayMS, err := redisInt64(result)
	if err != nil {
		return 0, err
	}
	return time.Duration(max(delayMS, 0)) * time.Millisecond, nil
}

func (g *RedisLookupGuard) cooldownForKey(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	values, err := g.client.HMGet(ctx, key, "last_miss_ms", "cooldown_until_ms").Result()
	if err != nil {
		return 0, err
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return 0, nil
	}
	lastMissMS, err := redisInt64(values[0])
	if err != nil {
		return 0, err
	}
	cooldownUntilMS, err := redisInt64(values[1])
	if err != nil {
		return 0, err
	}
	nowMS := now.UnixMilli()
	if nowMS-lastMissMS > g.policy.ResetWindow.Milliseconds() || cooldownUntilMS <= nowMS {
		return 0, nil
	}
	return time.Duration(cooldownUntilMS-nowMS) * time.Millisecond, nil
}

func (g *RedisLookupGuard) key(dim, value string) string {
	return g.prefix + ":" + lookupGuardKey(dim, value)
}

// redisInt64 accepts script integers and HMGET strings.
func redisInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("redis response overflows int64")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case string:
		var out int64
		if _, err := fmt.Sscan(n, &out); err != nil {
			return 0, fmt.Errorf("parse redis integer %q: %w", n, err)
		}
		return out, nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
