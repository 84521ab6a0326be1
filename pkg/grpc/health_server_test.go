package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/example/hottubshop/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func status(t *testing.T, s *HealthServer, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestRefreshPublishesPerCheckStatus(t *testing.T) {
	failing := true
	s := NewHealthServer(&config.GRPCConfig{}, zap.NewNop(), map[string]Checker{
		"catalog": CheckerFunc(func(context.Context) error { return nil }),
		"orders": CheckerFunc(func(context.Context) error {
			if failing {
				return errors.New("disk full")
			}
			return nil
		}),
	})

	s.Refresh(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, s, "catalog"))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, s, "orders"))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, s, ""))

	failing = false
	s.Refresh(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, s, ""))
}
