package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wealthwave/checkout-service/internal/catalog"
	"github.com/wealthwave/checkout-service/internal/checkout"
	"github.com/wealthwave/checkout-service/internal/config"
	"github.com/wealthwave/checkout-service/internal/fulfillment"
	"github.com/wealthwave/checkout-service/internal/httpx"
	kafkax "github.com/wealthwave/checkout-service/internal/kafka"
	"github.com/wealthwave/checkout-service/internal/notify"
	"github.com/wealthwave/checkout-service/internal/orders"
	"github.com/wealthwave/checkout-service/internal/payment"
	"github.com/wealthwave/checkout-service/internal/postgres"
	"github.com/wealthwave/checkout-service/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Stripe
	processor, err := payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if err != nil {
		log.Fatalf("stripe: %v", err)
	}

	// Kafka producer for fulfillment notifications
	prod := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicOrderFulfilled, 1024)
	prod.Start(ctx)

	orderRepo := &orders.Repo{DB: db}
	catalogRepo := &catalog.Repo{DB: db}

	checkoutSvc := &checkout.Service{
		Catalog:   catalogRepo,
		Store:     orderRepo,
		Processor: processor,
		BaseURL:   cfg.AppBaseURL,
	}
	engine := &fulfillment.Service{
		Store:       orderRepo,
		Notifier:    &notify.Kafka{Producer: prod, Service: cfg.ServiceName},
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.CheckoutHandler{Service: checkoutSvc}).Register(router)
	(&httpx.WebhookHandler{Processor: processor, Engine: engine}).Register(router)
	(&httpx.OrdersHandler{Repo: orderRepo, Catalog: catalogRepo, Entitlements: orderRepo, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	cancel()     // stop producer loop
	prod.WaitClosed()
}
