package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moto_backend/internal/config"
	"moto_backend/internal/inventory"
	kafkax "moto_backend/internal/kafka"
	"moto_backend/internal/orders"
	"moto_backend/internal/postgres"
	"moto_backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", cfg.ServiceName+"-inventory")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &inventory.Service{
		Store: &orders.Repo{DB: db},
		Redis: rdb,
		Group: cfg.ConsumerGroup,
		Log:   logger,
	}

	// Consumer: satu worker sequential.
	cons := kafkax.NewConsumer(logger, cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.KafkaTopic)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("reconciliation consumer started", "group", cfg.ConsumerGroup, "topic", cfg.KafkaTopic)
		if err := cons.Run(ctx, svc.HandleDeltaMessage); err != nil {
			logger.Error("consumer exit", "err", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer...")
	cancel()
	<-done
}
