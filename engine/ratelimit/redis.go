package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/redis/go-redis/v9"
)

// counterRetention keeps rolled-over counters around briefly for inspection;
// long-term retention lives in the relational store.
const counterRetention = 24 * time.Hour

// incrementAllScript increments every window counter in one atomic script and
// stamps a TTL on first touch. Running as a single Lua script guarantees the
// all-or-nothing semantics under concurrency.
var incrementAllScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIREAT', key, tonumber(ARGV[i]))
	end
end
return 1
`)

// RedisClient is the minimal go-redis surface the counter store needs.
type RedisClient interface {
	redis.Scripter
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// RedisCounterStore implements CounterStore on Redis. It is the hot-path
// store; the Postgres implementation persists the same counters for
// audit/analytics.
type RedisCounterStore struct {
	client RedisClient
	prefix string
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(client RedisClient, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "pulss:ratelimit:"
	}
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) key(credentialID core.ID, w Window, now time.Time) string {
	return fmt.Sprintf("%s%s:%s:%d", s.prefix, credentialID, w, w.Start(now).Unix())
}

// Counts reads all window counters for the credential with one MGET.
func (s *RedisCounterStore) Counts(
	ctx context.Context,
	credentialID core.ID,
	now time.Time,
) (map[Window]int64, error) {
	keys := make([]string, len(Windows))
	for i, w := range Windows {
		keys[i] = s.key(credentialID, w, now)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading rate counters: %w", err)
	}
	counts := make(map[Window]int64, len(Windows))
	for i, w := range Windows {
		counts[w] = parseCount(values[i])
	}
	return counts, nil
}

// IncrementAll increments every window counter atomically via a Lua script.
func (s *RedisCounterStore) IncrementAll(
	ctx context.Context,
	credentialID core.ID,
	now time.Time,
) error {
	keys := make([]string, len(Windows))
	args := make([]any, len(Windows))
	for i, w := range Windows {
		keys[i] = s.key(credentialID, w, now)
		args[i] = w.Next(now).Add(counterRetention).UnixMilli()
	}
	if err := incrementAllScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("incrementing rate counters: %w", err)
	}
	return nil
}

func parseCount(v any) int64 {
	switch value := v.(type) {
	case nil:
		return 0
	case string:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case int64:
		return value
	default:
		return 0
	}
}
