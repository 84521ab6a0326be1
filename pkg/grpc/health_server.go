package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/example/hottubshop/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Checker reports whether a dependency is usable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// HealthServer serves the standard gRPC health protocol. Every registered check is exposed
// as its own service name; the empty service name is SERVING only while all checks pass.
type HealthServer struct {
	config *config.GRPCConfig
	checks map[string]Checker
	health *health.Server
	srv    *grpc.Server
	logger *zap.Logger
}

func NewHealthServer(cfg *config.GRPCConfig, logger *zap.Logger, checks map[string]Checker) *HealthServer {
	return &HealthServer{
		config: cfg,
		checks: checks,
		health: health.NewServer(),
		logger: logger,
	}
}

// Refresh runs all checks once and publishes the result.
func (s *HealthServer) Refresh(ctx context.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, name := range names {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err := s.checks[name].Check(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.String("service", name), zap.Error(err))
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

// Watch refreshes the status every interval until ctx ends.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *HealthServer) Start() error {
	addr := s.config.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.srv = grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.Refresh(context.Background())

	s.logger.Info("Health service started", zap.String("address", addr))

	return s.srv.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	if s.srv != nil {
		s.srv.GracefulStop()
	}
}
