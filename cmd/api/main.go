package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/shoplite/shop-backend/internal/auth"
	"github.com/shoplite/shop-backend/internal/catalog"
	"github.com/shoplite/shop-backend/internal/config"
	"github.com/shoplite/shop-backend/internal/httpx"
	kafkax "github.com/shoplite/shop-backend/internal/kafka"
	"github.com/shoplite/shop-backend/internal/orders"
	"github.com/shoplite/shop-backend/internal/payments"
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
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)

	// Payment gateway client, built once and injected
	gateway := payments.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey, cfg.PaymentCurrency, cfg.PaymentTimeout)

	// Repos & handlers
	orderRepo := &orders.Repo{DB: db}
	catRepo := &catalog.Repo{DB: db}
	oh := &httpx.OrdersHandler{
		Store:     orderRepo,
		Intents:   gateway,
		PubPlaced: pPlaced,
		PubStatus: pStatus,
		Redis:     rdb,
		Service:   cfg.ServiceName,
	}
	ph := &httpx.ProductsHandler{Store: catRepo}

	validator := auth.NewValidator(cfg.JWTSecret)
	router := httpx.NewRouter()
	ph.RegisterPublic(router)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(validator))
		oh.Register(r)
		ph.RegisterAdmin(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pPlaced.Close()
	pStatus.Close()
	pPlaced.WaitClosed()
	pStatus.WaitClosed()
}
