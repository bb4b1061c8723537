package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dinein-system/internal/database/models"
	"dinein-system/internal/orders"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Source string

const (
	SourcePush Source = "push"
	SourcePoll Source = "poll"
	SourceSeed Source = "seed"
)

const DefaultPollInterval = 8 * time.Second

// Poller returns orders of a restaurant changed at or after since.
type Poller interface {
	OrdersSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]models.Order, error)
}

// Fetcher loads one full order with its items.
type Fetcher interface {
	FetchOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, restaurantID uuid.UUID) (<-chan orders.ChangeEvent, error)
}

type Config struct {
	RestaurantID uuid.UUID
	Interval     time.Duration
	// Since is the initial poll watermark. Zero means the start of today.
	Since time.Time
}

type Reconciler struct {
	cfg     Config
	coll    *Collection
	poller  Poller
	fetcher Fetcher
	sub     Subscriber
	log     *zap.SugaredLogger

	// OnNew is called once for every order id the view has not seen before,
	// except for orders loaded by the seed, the first poll that succeeds.
	OnNew func(order models.Order)
	// OnChange receives the full sorted list after every merge that changed it.
	OnChange func(snapshot []models.Order)

	mu     sync.Mutex
	cursor time.Time
	seeded bool
}

// New builds a reconciler. sub may be nil, in which case only polling runs.
func New(cfg Config, poller Poller, fetcher Fetcher, sub Subscriber, log *zap.SugaredLogger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Since.IsZero() {
		cfg.Since = StartOfDay(time.Now())
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Reconciler{
		cfg:     cfg,
		coll:    NewCollection(),
		poller:  poller,
		fetcher: fetcher,
		sub:     sub,
		log:     log,
		cursor:  cfg.Since,
	}
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (r *Reconciler) Collection() *Collection { return r.coll }

func (r *Reconciler) Cursor() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Ingest is the single entry point of both feeds.
func (r *Reconciler) Ingest(source Source, list ...models.Order) MergeResult {
	if len(list) == 0 {
		return MergeResult{}
	}
	res := r.coll.Merge(list...)

	if source != SourceSeed && r.OnNew != nil {
		for _, id := range res.Added {
			if o, ok := r.coll.Get(id); ok {
				r.OnNew(o)
			}
		}
	}
	if !res.Empty() && r.OnChange != nil {
		r.OnChange(r.coll.Snapshot())
	}

	r.log.Debugw("Merged orders", "source", source, "added", len(res.Added), "updated", len(res.Updated))
	return res
}

func (r *Reconciler) Seeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seeded
}

// PollOnce fetches everything changed since the cursor. On failure the
// cursor stays where it was so the next tick asks for the same range again.
// Until one poll has succeeded, results are merged as the seed.
func (r *Reconciler) PollOnce(ctx context.Context) error {
	source := SourcePoll
	if !r.Seeded() {
		source = SourceSeed
	}

	since := r.Cursor()
	list, err := r.poller.OrdersSince(ctx, r.cfg.RestaurantID, since)
	if err != nil {
		return fmt.Errorf("poll since %s: %w", since.Format(time.RFC3339), err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.Ingest(source, list...)
	if source == SourceSeed {
		r.log.Infow("Initial orders loaded", "restaurant_id", r.cfg.RestaurantID, "count", len(list))
	}

	next := since
	for _, o := range list {
		if o.CreatedAt.After(next) {
			next = o.CreatedAt
		}
		if o.UpdatedAt.After(next) {
			next = o.UpdatedAt
		}
	}
	r.mu.Lock()
	if next.After(r.cursor) {
		r.cursor = next
	}
	r.seeded = true
	r.mu.Unlock()
	return nil
}

// HandleEvent refetches the order an event points at and merges it.
func (r *Reconciler) HandleEvent(ctx context.Context, event orders.ChangeEvent) error {
	if event.RestaurantID != uuid.Nil && event.RestaurantID != r.cfg.RestaurantID {
		return nil
	}
	order, err := r.fetcher.FetchOrder(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("refetch order %s: %w", event.ID, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.Ingest(SourcePush, *order)
	return nil
}

// Run seeds the view, then serves both feeds from one goroutine until ctx is
// cancelled. A failed subscription leaves the poll feed running alone.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.PollOnce(ctx); err != nil {
		r.log.Warnw("Initial order load failed, will retry on next poll", "error", err)
	}

	var events <-chan orders.ChangeEvent
	if r.sub != nil {
		ch, err := r.sub.Subscribe(ctx, r.cfg.RestaurantID)
		if err != nil {
			r.log.Warnw("Push feed unavailable, polling only", "restaurant_id", r.cfg.RestaurantID, "error", err)
		} else {
			events = ch
		}
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.PollOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Debugw("Poll skipped", "error", err)
			}
		case ev, ok := <-events:
			if !ok {
				r.log.Warnw("Push feed closed, polling only", "restaurant_id", r.cfg.RestaurantID)
				events = nil
				continue
			}
			if err := r.HandleEvent(ctx, ev); err != nil && ctx.Err() == nil {
				r.log.Debugw("Push event dropped, poll will catch up", "order_id", ev.ID, "error", err)
			}
		}
	}
}
