package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/common"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryCounter keeps counters in this process only. Expired windows are
// swept every cleanup interval.
type MemoryCounter struct {
	store limiter.Store
}

func NewMemoryCounter(cleanup time.Duration) *MemoryCounter {
	return &MemoryCounter{
		store: memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "admission",
			CleanUpInterval: cleanup,
		}),
	}
}

func (m *MemoryCounter) Hit(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	return m.store.Get(ctx, key, rate)
}

// hitScript opens the window on the first increment and reports the count
// together with the window's remaining lifetime in milliseconds.
var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisCounter shares counters between every instance pointing at the same
// redis, for deployments that need the limit to hold across replicas.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client, prefix: "admission:"}
}

func (r *RedisCounter) Hit(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error) {
	now := time.Now()
	res, err := hitScript.Run(ctx, r.client, []string{r.prefix + key}, rate.Period.Milliseconds()).Result()
	if err != nil {
		return limiter.Context{}, err
	}
	return contextFromReply(now, rate, res)
}

// contextFromReply maps the script's {count, ttl_ms} pair onto a limiter context.
func contextFromReply(now time.Time, rate limiter.Rate, res interface{}) (limiter.Context, error) {
	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return limiter.Context{}, fmt.Errorf("unexpected admission script reply %v", res)
	}
	count, ok1 := values[0].(int64)
	ttl, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return limiter.Context{}, fmt.Errorf("unexpected admission script reply %v", res)
	}

	expiration := now.Add(time.Duration(ttl) * time.Millisecond)
	return common.GetContextFromState(now, rate, expiration, count), nil
}
