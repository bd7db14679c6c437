package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported through the gRPC health service next to the overall "" entry.
const ServiceName = "invoice.v1.InvoiceAPI"

// Pinger reports whether the backing store answers.
type Pinger func(ctx context.Context) error

// NewGRPCServer registers health and reflection, both reporting SERVING.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(srv)
	return srv, hs
}

// MonitorHealth flips ServiceName to NOT_SERVING while ping fails. It returns when ctx is done.
func MonitorHealth(ctx context.Context, hs *health.Server, ping Pinger, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("health.db.unreachable", "error", err)
		}
		if status != last {
			logger.Info("health.status.changed", "status", status.String())
			last = status
		}
		hs.SetServingStatus(ServiceName, status)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
