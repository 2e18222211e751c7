package main

import (
	"context"
	"log"
	"time"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/config"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/queue"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/reminder"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// One-shot sweep over stale pending orders, meant to run from cron once
// a day. Emits a reminder event per order and exits.
func main() {
	log.Println("reminder sweep starting...")

	cfg := config.Load()

	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	publisher := queue.NewPublisher(queue.RemindersTopic, cfg.KafkaBrokers...)
	defer publisher.Close()

	sweeper := reminder.NewSweeper(repo, reminder.NewQueueNotifier(publisher))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	count, err := sweeper.Run(ctx)
	if err != nil {
		log.Fatalf("reminder sweep failed: %v", err)
	}

	log.Printf("reminder sweep finished, %d orders notified", count)
}
