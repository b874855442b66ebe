package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moto_backend/internal/config"
	"moto_backend/internal/httpx"
	kafkax "moto_backend/internal/kafka"
	"moto_backend/internal/orders"
	"moto_backend/internal/outbox"
	"moto_backend/internal/postgres"
	"moto_backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (dipakai relay, bukan request path)
	prod := kafkax.NewProducer(cfg.KafkaBrokers)
	defer prod.Close()

	// Repo, service, handler
	repo := &orders.Repo{DB: db}
	svc := orders.NewService(logger, repo, cfg.KafkaTopic)
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Service: svc,
		Store:   repo,
		Redis:   rdb,
		Log:     logger,
	}
	oh.Register(router)

	// Outbox relay: drain pesan delta yang sudah commit ke broker.
	relay := outbox.NewRelay(logger, &outbox.PGStore{DB: db}, prod)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = relay.Run(ctx)
	}()

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel() // stop relay loop
	<-relayDone
}
