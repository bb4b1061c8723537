package admission

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ulule/limiter/v3"
)

func TestContextFromReply(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rate := limiter.Rate{Period: time.Minute, Limit: 5}

	tests := []struct {
		name      string
		reply     interface{}
		remaining int64
		reached   bool
		wantErr   bool
	}{
		{"first hit", []interface{}{int64(1), int64(60000)}, 4, false, false},
		{"last allowed", []interface{}{int64(5), int64(12000)}, 0, false, false},
		{"over limit", []interface{}{int64(6), int64(12000)}, 0, true, false},
		{"not a pair", []interface{}{int64(1)}, 0, false, true},
		{"wrong types", []interface{}{"1", "60000"}, 0, false, true},
		{"not a list", int64(1), 0, false, true},
	}
	for _, tt := range tests {
		got, err := contextFromReply(now, rate, tt.reply)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got.Limit != 5 || got.Remaining != tt.remaining || got.Reached != tt.reached {
			t.Errorf("%s: got %+v", tt.name, got)
		}
	}

	got, _ := contextFromReply(now, rate, []interface{}{int64(2), int64(12000)})
	if got.Reset != now.Add(12*time.Second).Unix() {
		t.Errorf("reset = %d, want %d", got.Reset, now.Add(12*time.Second).Unix())
	}
}

func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisCounterFixedWindow(t *testing.T) {
	client := testRedisClient(t)
	guard := NewGuard(NewRedisCounter(client))
	rule := Rule{Limit: 5, Window: time.Second}
	key := Key(ClassCheckout, fmt.Sprintf("test-%d", time.Now().UnixNano()))
	ctx := context.Background()
	t.Cleanup(func() { client.Del(context.Background(), "admission:"+key) })

	for i, want := range []int64{4, 3, 2, 1, 0} {
		dec, err := guard.Check(ctx, key, rule)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if !dec.Allowed || dec.Remaining != want {
			t.Errorf("call %d: allowed=%v remaining=%d, want allowed with %d", i+1, dec.Allowed, dec.Remaining, want)
		}
	}

	dec, err := guard.Check(ctx, key, rule)
	if err != nil {
		t.Fatalf("sixth call: %v", err)
	}
	if dec.Allowed {
		t.Fatal("sixth call inside the window should be denied")
	}
	if retry := RetryAfter(dec, time.Now()); retry < 1 || retry > 2 {
		t.Errorf("retry after = %d, want 1 or 2", retry)
	}

	time.Sleep(rule.Window + 200*time.Millisecond)

	dec, err = guard.Check(ctx, key, rule)
	if err != nil {
		t.Fatalf("after window: %v", err)
	}
	if !dec.Allowed || dec.Remaining != 4 {
		t.Errorf("after window: allowed=%v remaining=%d, want a fresh window", dec.Allowed, dec.Remaining)
	}
}

func TestRedisCounterSharedAcrossInstances(t *testing.T) {
	client := testRedisClient(t)
	first := NewGuard(NewRedisCounter(client))
	second := NewGuard(NewRedisCounter(client))
	rule := Rule{Limit: 2, Window: time.Minute}
	key := Key(ClassPromo, fmt.Sprintf("shared-%d", time.Now().UnixNano()))
	ctx := context.Background()
	t.Cleanup(func() { client.Del(context.Background(), "admission:"+key) })

	for _, g := range []*Guard{first, second} {
		if dec, err := g.Check(ctx, key, rule); err != nil || !dec.Allowed {
			t.Fatalf("within limit: dec=%+v err=%v", dec, err)
		}
	}
	dec, err := first.Check(ctx, key, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Error("the third hit across instances should be denied")
	}
}
