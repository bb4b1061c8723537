// Package reconcile keeps one staff view's order list in step with the server.
// A push feed and a poll feed both land in the same id-keyed merge, so either
// one alone is enough to converge and both together never duplicate.
package reconcile

import (
	"sort"
	"sync"

	"dinein-system/internal/database/models"

	"github.com/google/uuid"
)

// MergeResult lists ids that were new and ids whose record changed. Records
// merged again unchanged appear in neither.
type MergeResult struct {
	Added   []uuid.UUID
	Updated []uuid.UUID
}

func (m MergeResult) Empty() bool {
	return len(m.Added) == 0 && len(m.Updated) == 0
}

// Collection is the merged order list, newest first. Merging replaces whole
// records by id, so applying the same payload twice is a no-op.
type Collection struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]models.Order
	sorted []models.Order
}

func NewCollection() *Collection {
	return &Collection{byID: make(map[uuid.UUID]models.Order)}
}

func (c *Collection) Merge(orders ...models.Order) MergeResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res MergeResult
	for _, o := range orders {
		prev, known := c.byID[o.ID]
		switch {
		case !known:
			res.Added = append(res.Added, o.ID)
		case changed(prev, o):
			res.Updated = append(res.Updated, o.ID)
		}
		c.byID[o.ID] = o
	}

	c.sorted = c.sorted[:0]
	for _, o := range c.byID {
		c.sorted = append(c.sorted, o)
	}
	sort.Slice(c.sorted, func(i, j int) bool {
		a, b := c.sorted[i], c.sorted[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() > b.ID.String()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return res
}

func changed(prev, next models.Order) bool {
	return prev.Status != next.Status ||
		!prev.UpdatedAt.Equal(next.UpdatedAt) ||
		len(prev.Items) != len(next.Items)
}

func (c *Collection) Get(id uuid.UUID) (models.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.byID[id]
	return o, ok
}

func (c *Collection) Known(id uuid.UUID) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Snapshot returns a copy of the list, newest first.
func (c *Collection) Snapshot() []models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Order, len(c.sorted))
	copy(out, c.sorted)
	return out
}
