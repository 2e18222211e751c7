package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/cache"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/config"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/httpapi"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/midtrans"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/queue"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/service"
)

func main() {
	log.Println("api server starting...")

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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	gateway := midtrans.NewClient(midtrans.Config{
		ServerKey:    cfg.MidtransServerKey,
		IsProduction: cfg.MidtransIsProduction,
		Timeout:      cfg.MidtransTimeout,
	})

	publisher := queue.NewPublisher(queue.NotificationsTopic, cfg.KafkaBrokers...)
	defer publisher.Close()

	handlers := httpapi.Handlers{
		Products: httpapi.NewProductHandler(service.NewProductService(repo)),
		Cart:     httpapi.NewCartHandler(service.NewCartService(repo, cartCache)),
		Orders: httpapi.NewOrderHandler(
			service.NewCheckoutService(repo, gateway),
			service.NewOrderService(repo),
		),
		Webhook: httpapi.NewWebhookHandler(publisher),
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
	}, handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
