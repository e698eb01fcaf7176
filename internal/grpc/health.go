// Package grpc exposes the service's gRPC health endpoint.
package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"chatroom-service/internal/observability"
)

// Check probes one backing store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthServer reports SERVING while every check passes.
type HealthServer struct {
	health      *health.Server
	serviceName string
	checks      []Check
}

// NewHealthServer constructs a HealthServer. It starts NOT_SERVING until the
// first Refresh.
func NewHealthServer(serviceName string, checks ...Check) *HealthServer {
	s := &HealthServer{
		health:      health.NewServer(),
		serviceName: serviceName,
		checks:      checks,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs every check and publishes the result. It reports whether the
// service is healthy.
func (s *HealthServer) Refresh(ctx context.Context) bool {
	healthy := true
	for _, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("check", check.Name).Msg("health check failed")
			healthy = false
		}
	}
	if healthy {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

// Watch refreshes the status every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.serviceName, status)
}

// NewServer builds an instrumented gRPC server with the health service registered.
func NewServer(hs *HealthServer) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthpb.RegisterHealthServer(srv, hs.health)
	return srv
}
