// Package admission bounds how often one caller may hit a costly or
// write-heavy endpoint class.
//
// Windows are fixed and hard-reset: the first hit opens a window of Rule.Window,
// every further hit increments the counter, and the whole window restarts once
// it has elapsed. Counters live in process memory unless a RedisCounter is used,
// so with the memory backend a caller spread across N instances effectively
// gets N times the configured limit. That is fine for abuse throttling and
// wrong for billing-accurate quotas.
package admission

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ulule/limiter/v3"
)

type Class string

const (
	ClassCheckout Class = "checkout"
	ClassPromo    Class = "promo"
	ClassAI       Class = "ai"
)

type Rule struct {
	Limit  int64
	Window time.Duration
}

func (r Rule) rate() limiter.Rate {
	return limiter.Rate{Period: r.Window, Limit: r.Limit}
}

type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Counter increments the hit count of key inside its current window.
type Counter interface {
	Hit(ctx context.Context, key string, rate limiter.Rate) (limiter.Context, error)
}

type Guard struct {
	counter Counter
}

func NewGuard(counter Counter) *Guard {
	return &Guard{counter: counter}
}

func (g *Guard) Check(ctx context.Context, key string, rule Rule) (Decision, error) {
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{}, fmt.Errorf("invalid admission rule %+v", rule)
	}

	lctx, err := g.counter.Hit(ctx, key, rule.rate())
	if err != nil {
		return Decision{}, fmt.Errorf("admission counter for %s: %w", key, err)
	}

	remaining := lctx.Remaining
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: remaining,
		ResetAt:   time.Unix(lctx.Reset, 0),
	}, nil
}

// Key namespaces a caller identity by endpoint class so each class has its own budget.
func Key(class Class, identity string) string {
	return fmt.Sprintf("%s:%s", class, identity)
}

// RetryAfter is the whole number of seconds a rejected caller should wait, at least 1.
func RetryAfter(d Decision, now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
