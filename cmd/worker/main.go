package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/config"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/midtrans"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/queue"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/recovery"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/reminder"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/service"
)

func main() {
	log.Println("worker starting...")
	var wg sync.WaitGroup

	cfg := config.Load()

	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	paymentService := service.NewPaymentService(repo, cfg.MidtransServerKey)

	gateway := midtrans.NewClient(midtrans.Config{
		ServerKey:    cfg.MidtransServerKey,
		IsProduction: cfg.MidtransIsProduction,
		Timeout:      cfg.MidtransTimeout,
	})

	notificationConsumer := queue.NewNotificationConsumer(
		paymentService, queue.DefaultWebhookRetry(), cfg.KafkaBrokers...)
	reminderConsumer := reminder.NewConsumer(repo, &reminder.LogMailer{}, cfg.KafkaBrokers...)
	sessionPoller := recovery.NewSessionPoller(repo, gateway)

	runCtx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	go func() {
		defer wg.Done()
		notificationConsumer.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reminderConsumer.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionPoller.Run(runCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down worker...")
	cancel()
	notificationConsumer.Close()
	reminderConsumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout, forcing exit")
	}
}
