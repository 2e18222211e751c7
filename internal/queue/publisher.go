package queue

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

const (
	// NotificationsTopic carries validated gateway webhook payloads from
	// the HTTP boundary to the reconciler workers.
	NotificationsTopic = "payment-notifications"

	// RemindersTopic carries unpaid-order reminder events from the sweep
	// to the mail worker. Events reference the order number only.
	RemindersTopic = "order-reminders"
)

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(topic string, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

// Publish writes one message. The key determines partitioning: messages
// for the same order share a key and so keep their relative order.
func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", p.writer.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
