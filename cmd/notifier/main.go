package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wealthwave/checkout-service/internal/config"
	kafkax "github.com/wealthwave/checkout-service/internal/kafka"
	"github.com/wealthwave/checkout-service/internal/mailer"
	"github.com/wealthwave/checkout-service/internal/notify"
	"github.com/wealthwave/checkout-service/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &mailer.Service{
		Redis: rdb,
		Sender: &mailer.SMTP{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Email:    cfg.SMTPEmail,
			Password: cfg.SMTPPassword,
			FromName: "WealthWave Digital",
		},
		AdminEmail: cfg.AdminEmail,
	}
	if cfg.AdminEmail == "" {
		log.Println("ADMIN_EMAIL not set; fulfillment events will be consumed but not mailed")
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, notify.TopicOrderFulfilled, workers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, notify.TopicOrderFulfilled, workers)
		if err := cons.Start(ctx, svc.HandleFulfillment); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
