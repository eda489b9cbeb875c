package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"github.com/rl1809/order-saga/internal/adapter/broker"
	"github.com/rl1809/order-saga/internal/adapter/cartclient"
	"github.com/rl1809/order-saga/internal/adapter/handler"
	"github.com/rl1809/order-saga/internal/adapter/handler/orderrpc"
	"github.com/rl1809/order-saga/internal/adapter/storage"
	"github.com/rl1809/order-saga/internal/config"
	"github.com/rl1809/order-saga/internal/core/service"
)

func main() {
	cfg, err := config.LoadOrderService()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		fatal(logger, "failed to open mysql", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		fatal(logger, "failed to ping mysql", err)
	}
	logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		fatal(logger, "failed to prepare schema", err)
	}

	// Broker connects in the background; the outbox holds events until it is up.
	conn := broker.NewConnection(cfg.Broker.URL, broker.ReconnectPolicy{Interval: cfg.Broker.ReconnectInterval}, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := conn.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, broker.ErrClosed) {
			logger.Error("rabbitmq connect aborted", "error", err)
		}
	}()

	// Initialize services
	carts := cartclient.New(cfg.CartServiceURL, cfg.CartTimeout)
	orderService := service.NewOrderService(carts, mysqlAdapter, logger)
	relay := service.NewOutboxRelay(mysqlAdapter, conn, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)
	reconciler := service.NewOrderStatusReconciler(mysqlAdapter, cfg.ReconcilerFailurePolicy, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	sub := broker.PaymentSuccessfulSubscription
	sub.Timeout = cfg.ReconcilerTimeout
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := conn.Subscribe(ctx, sub, reconciler.Handle); err != nil && !errors.Is(err, broker.ErrClosed) {
			logger.Error("reconciler stopped", "error", err)
		}
	}()

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	orderrpc.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		fatal(logger, "failed to listen", err)
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(orderService, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Stop relay and consumer; an in-flight message is settled first
	cancel()
	wg.Wait()
	logger.Info("workers stopped")

	conn.Close()
	db.Close()
	logger.Info("connections closed")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
