package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/service"
)

// Reconciler applies one payment notification to order state.
type Reconciler interface {
	ApplyNotification(ctx context.Context, n *domain.PaymentNotification) (*domain.Order, error)
}

// NotificationConsumer pulls webhook payloads off the durable topic and
// drives the reconciler, retrying transient failures per the policy.
type NotificationConsumer struct {
	reconciler Reconciler
	reader     *kafka.Reader
	retry      RetryPolicy
}

func NewNotificationConsumer(reconciler Reconciler, retry RetryPolicy, brokers ...string) *NotificationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    NotificationsTopic,
		GroupID:  "payment-reconciler",
		MaxBytes: 10e6, // 10MB
	})
	return &NotificationConsumer{
		reconciler: reconciler,
		reader:     reader,
		retry:      retry,
	}
}

func (c *NotificationConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *NotificationConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *NotificationConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var notification domain.PaymentNotification
	if err := json.Unmarshal(m.Value, &notification); err != nil {
		log.Printf("error parsing notification payload: %v", err)
		return
	}
	if !notification.Valid() {
		log.Printf("incomplete notification payload for order_id %q, skipping", notification.OrderID)
		return
	}

	err = c.retry.Run(ctx, service.IsPermanentRejection, func() error {
		_, applyErr := c.reconciler.ApplyNotification(ctx, &notification)
		return applyErr
	})
	if err == nil {
		log.Printf("notification for order %s reconciled (status %s)",
			notification.OrderID, notification.TransactionStatus)
		return
	}

	if service.IsPermanentRejection(err) {
		// Terminal outcome, the message is consumed and never retried.
		log.Printf("notification for order %s rejected: %v", notification.OrderID, err)
		return
	}
	log.Printf("notification for order %s failed permanently after retries: %v", notification.OrderID, err)
}
