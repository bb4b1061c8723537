package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dinein-system/internal/database/models"

	"go.uber.org/zap"
)

const deliverTimeout = 15 * time.Second

// QueueNotifier hands new-order notifications to the broker; a Worker
// delivers them.
type QueueNotifier struct {
	broker Broker
	queue  string
	log    *zap.SugaredLogger
}

func NewQueueNotifier(broker Broker, queue string, log *zap.SugaredLogger) *QueueNotifier {
	return &QueueNotifier{broker: broker, queue: queue, log: log}
}

func (q *QueueNotifier) NotifyNewOrder(ctx context.Context, order models.Order) {
	body, err := json.Marshal(FromOrder(order))
	if err != nil {
		q.log.Errorw("Failed to encode notification", "order_id", order.ID, "error", err)
		return
	}
	if err := q.broker.Publish(ctx, q.queue, body); err != nil {
		q.log.Warnw("Failed to queue notification", "order_id", order.ID, "error", err)
	}
}

// DirectNotifier delivers in a background goroutine when no broker is configured.
type DirectNotifier struct {
	dispatcher *Dispatcher
	log        *zap.SugaredLogger
}

func NewDirectNotifier(dispatcher *Dispatcher, log *zap.SugaredLogger) *DirectNotifier {
	return &DirectNotifier{dispatcher: dispatcher, log: log}
}

func (d *DirectNotifier) NotifyNewOrder(_ context.Context, order models.Order) {
	n := FromOrder(order)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		if _, err := d.dispatcher.Deliver(ctx, n); err != nil {
			d.log.Warnw("Failed to deliver notification", "order_id", n.OrderID, "error", err)
		}
	}()
}

// Worker consumes queued notifications.
type Worker struct {
	dispatcher *Dispatcher
	broker     Broker
	queue      string
	log        *zap.SugaredLogger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewWorker(dispatcher *Dispatcher, broker Broker, queue string, log *zap.SugaredLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		dispatcher: dispatcher,
		broker:     broker,
		queue:      queue,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *Worker) Start() error {
	w.log.Infow("Starting notification worker", "queue", w.queue)
	return w.broker.Subscribe(w.ctx, w.queue, w.handleMessage)
}

func (w *Worker) Stop() {
	w.log.Info("Stopping notification worker")
	w.cancel()
}

func (w *Worker) handleMessage(ctx context.Context, message []byte) error {
	var n NewOrder
	if err := json.Unmarshal(message, &n); err != nil {
		w.log.Errorw("Failed to decode notification", "error", err)
		return fmt.Errorf("failed to decode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	sent, err := w.dispatcher.Deliver(ctx, n)
	if err != nil {
		return err
	}
	w.log.Infow("Notification delivered", "order_id", n.OrderID, "recipients", sent)
	return nil
}
