package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zainab-noor-25/invoice-api/internal/app"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/ingest"
	"github.com/zainab-noor-25/invoice-api/internal/server"
)

func main() {
	logger := common.NewLogger(os.Stdout)
	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.WithQueue())
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	// Ping DB to ensure connectivity
	if err := server.PingDB(ctx, a.Driver, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}

	// gRPC health + reflection
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer()
	go server.MonitorHealth(ctx, healthServer, func(ctx context.Context) error {
		return server.PingDB(ctx, a.Driver, logger, 3*time.Second)
	}, 15*time.Second, logger)
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewHTTPHandler(a.HTTPDeps(), logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	go func() {
		logger.Info("invoice-api listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	if cfg.Server.WatchDir != "" {
		go func() {
			err := ingest.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.Server.WatchDir},
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
			}, a.Ingest, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "dir", cfg.Server.WatchDir, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	a.Close(shutdownCtx)
	logger.Info("stopped")
}
