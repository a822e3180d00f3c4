package server

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// AnalyzerServiceName is the health-check service name reported alongside the overall status.
const AnalyzerServiceName = "scope3.Analyzer"

// HealthServer wraps a gRPC server that only carries the standard health service.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(AnalyzerServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{grpc: gs, health: hs, logger: logger}
}

// Serve blocks until the listener fails or Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc.serve", "addr", lis.Addr().String())
	return h.grpc.Serve(lis)
}

// SetServing flips every registered service between SERVING and NOT_SERVING.
func (h *HealthServer) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(AnalyzerServiceName, status)
}

// Stop marks the services as shutting down and drains in-flight calls until ctx ends.
func (h *HealthServer) Stop(ctx context.Context) {
	h.health.Shutdown()
	done := make(chan struct{})
	go func() {
		h.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("grpc.stop.forced")
		h.grpc.Stop()
	}
}
