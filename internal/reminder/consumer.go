package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/queue"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// Mailer sends the actual reminder. The SMTP transport lives outside this
// service; cmd wiring decides the implementation.
type Mailer interface {
	SendOrderReminder(ctx context.Context, email string, order *domain.Order) error
}

// LogMailer is the default no-transport implementation.
type LogMailer struct{}

func (LogMailer) SendOrderReminder(_ context.Context, email string, order *domain.Order) error {
	log.Printf("reminder: order %s for %s is still unpaid", order.OrderNumber, email)
	return nil
}

// Consumer pulls reminder events and mails users whose orders are still
// pending. State is re-read per event, so reminders raced by a payment
// are dropped instead of sent stale.
type Consumer struct {
	store  repository.Store
	mailer Mailer
	reader *kafka.Reader
}

func NewConsumer(store repository.Store, mailer Mailer, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    queue.RemindersTopic,
		GroupID:  "order-reminders",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		store:  store,
		mailer: mailer,
		reader: reader,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing reminder reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading reminder message: %v", err)
		return
	}

	var event Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing reminder event: %v", err)
		return
	}
	if event.OrderNumber == "" {
		log.Printf("reminder event without order number, skipping")
		return
	}

	order, err := c.store.GetOrderByNumber(ctx, event.OrderNumber)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			log.Printf("order %s not found for reminder, skipping", event.OrderNumber)
			return
		}
		log.Printf("failed to load order %s for reminder: %v", event.OrderNumber, err)
		return
	}

	if order.Status != domain.OrderStatusPending {
		log.Printf("order %s no longer pending (%s), skipping reminder", order.OrderNumber, order.Status)
		return
	}

	user, err := c.store.GetUser(ctx, order.UserID)
	if err != nil {
		log.Printf("failed to load user %d for reminder on order %s: %v", order.UserID, order.OrderNumber, err)
		return
	}

	if err := c.mailer.SendOrderReminder(ctx, user.Email, order); err != nil {
		log.Printf("failed to send reminder for order %s: %v", order.OrderNumber, err)
		return
	}
	log.Printf("reminder sent for order %s", order.OrderNumber)
}
