package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shoplite/shop-backend/internal/catalog"
	"github.com/shoplite/shop-backend/internal/config"
	"github.com/shoplite/shop-backend/internal/fulfillment"
	kafkax "github.com/shoplite/shop-backend/internal/kafka"
	"github.com/shoplite/shop-backend/internal/orders"
	"github.com/shoplite/shop-backend/internal/postgres"
	"github.com/shoplite/shop-backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Alert producer
	pAlert := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockLow, 1024)
	pAlert.Start(ctx)

	svc := &fulfillment.Service{
		Stock:       &catalog.Repo{DB: db},
		Redis:       rdb,
		Alerts:      pAlert,
		ServiceName: cfg.ServiceName + "-fulfillment",
		Threshold:   cfg.LowStockThreshold,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.FulfillmentGroup, orders.TopicOrderPlaced, cfg.FulfillmentWorkers)

	go func() {
		log.Printf("fulfillment consumer started: group=%s topic=%s workers=%d",
			cfg.FulfillmentGroup, orders.TopicOrderPlaced, cfg.FulfillmentWorkers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	pAlert.Close()
	pAlert.WaitClosed()
}
