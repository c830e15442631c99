package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/aescanero/ytscope/internal/application/workers"
	"github.com/aescanero/ytscope/pkg/domain"
)

// ServicePrefix prefixes the per-provider health service names, for example
// "ytscope.provider.anthropic".
const ServicePrefix = "ytscope.provider."

// Server represents the gRPC API server. It exposes the standard health
// service with one entry per provider plus the overall "" entry.
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	logger   *zap.Logger
}

// Config holds gRPC server configuration
type Config struct {
	Port   int
	Logger *zap.Logger
}

// NewServer creates a new gRPC server
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		logger:   cfg.Logger,
	}, nil
}

// Addr returns the listening address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// SetProviderHealth publishes provider health. A provider serves unless it
// is unhealthy; the overall entry serves while any provider does and the
// worker pool, when given, is healthy. The signature matches
// workers.HealthObserver.
func (s *Server) SetProviderHealth(providers map[domain.ProviderName]domain.HealthStatus, pool *workers.HealthStatus) {
	overall := healthpb.HealthCheckResponse_NOT_SERVING
	for name, h := range providers {
		status := healthpb.HealthCheckResponse_SERVING
		if h.Status == domain.HealthUnhealthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		} else {
			overall = healthpb.HealthCheckResponse_SERVING
		}
		s.health.SetServingStatus(ServicePrefix+string(name), status)
	}
	if pool != nil && !pool.Healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.server.Stop()
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}
