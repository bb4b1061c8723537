// Package audit keeps the status history of orders. The order row only holds
// its current status; every accepted transition is appended here.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	From         string    `json:"from_status"`
	To           string    `json:"to_status"`
	Actor        string    `json:"actor"`
	At           time.Time `json:"at"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, orderID uuid.UUID) ([]Entry, error)
}

// Nop is used when no audit store is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) History(context.Context, uuid.UUID) ([]Entry, error) { return []Entry{}, nil }
