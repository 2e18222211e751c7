package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/queue"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// sweepLockKey is the advisory lock that keeps overlapping sweep runs out.
const sweepLockKey int64 = 7211

const (
	DefaultUnpaidAge  = 24 * time.Hour
	DefaultBatchLimit = 500
)

// Notifier emits one reminder per unpaid order. Events carry the order
// number only; the consumer re-reads the order so long-delayed deliveries
// never act on stale snapshots.
type Notifier interface {
	NotifyUnpaidOrder(ctx context.Context, orderNumber string) error
}

// Event is the reminder payload on the queue.
type Event struct {
	OrderNumber string `json:"order_number"`
}

// QueueNotifier publishes reminder events to the reminders topic.
type QueueNotifier struct {
	publisher *queue.Publisher
}

func NewQueueNotifier(publisher *queue.Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (n *QueueNotifier) NotifyUnpaidOrder(ctx context.Context, orderNumber string) error {
	payload, err := json.Marshal(Event{OrderNumber: orderNumber})
	if err != nil {
		return fmt.Errorf("marshal reminder event: %w", err)
	}
	return n.publisher.Publish(ctx, orderNumber, payload)
}

// Sweeper selects pending orders older than the configured age and emits
// one reminder per order. It only reads order state, so it is safe to run
// concurrently with the reconciler.
type Sweeper struct {
	store    repository.Store
	notifier Notifier
	age      time.Duration
	limit    int
}

func NewSweeper(store repository.Store, notifier Notifier) *Sweeper {
	return &Sweeper{
		store:    store,
		notifier: notifier,
		age:      DefaultUnpaidAge,
		limit:    DefaultBatchLimit,
	}
}

// Run performs one sweep. It returns the number of reminders emitted; a
// sweep skipped because another one holds the lock returns zero without
// error.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	release, ok, err := s.store.TryAdvisoryLock(ctx, sweepLockKey)
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		log.Printf("reminder sweep already running elsewhere, skipping")
		return 0, nil
	}
	defer release()

	orders, err := s.store.ListPendingOlderThan(ctx, s.age, s.limit)
	if err != nil {
		return 0, fmt.Errorf("list unpaid orders: %w", err)
	}

	sent := 0
	for _, order := range orders {
		if err := s.notifier.NotifyUnpaidOrder(ctx, order.OrderNumber); err != nil {
			log.Printf("failed to emit reminder for order %s: %v", order.OrderNumber, err)
			continue
		}
		sent++
	}

	log.Printf("reminder sweep dispatched %d reminders for %d unpaid orders", sent, len(orders))
	return sent, nil
}
