package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/order-saga/internal/adapter/broker"
	"github.com/rl1809/order-saga/internal/adapter/gateway"
	"github.com/rl1809/order-saga/internal/adapter/storage"
	"github.com/rl1809/order-saga/internal/config"
	"github.com/rl1809/order-saga/internal/core/service"
)

func main() {
	cfg, err := config.LoadPaymentService()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "failed to open postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		fatal(logger, "failed to ping postgres", err)
	}
	logger.Info("connected to postgres")

	payments := storage.NewPostgresAdapter(pool)
	if err := payments.EnsureSchema(ctx); err != nil {
		fatal(logger, "failed to prepare schema", err)
	}

	conn := broker.NewConnection(cfg.Broker.URL, broker.ReconnectPolicy{Interval: cfg.Broker.ReconnectInterval}, logger)
	go func() {
		if err := conn.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, broker.ErrClosed) {
			logger.Error("rabbitmq connect aborted", "error", err)
		}
	}()

	processor := service.NewPaymentProcessor(
		payments,
		gateway.NewSimulatedGateway(cfg.GatewayLatency, cfg.GatewayTimeout),
		conn,
		cfg.FailurePolicy,
		logger,
	)

	sub := broker.OrderCreatedSubscription
	sub.Timeout = cfg.HandlerTimeout

	logger.Info("payment processor started", "queue", sub.Queue, "failure_policy", cfg.FailurePolicy.String())
	if err := conn.Subscribe(ctx, sub, processor.Handle); err != nil && !errors.Is(err, broker.ErrClosed) {
		logger.Error("payment processor stopped", "error", err)
	}

	logger.Info("shutting down...")
	conn.Close()
	pool.Close()
	logger.Info("connections closed")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
