package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthReporter_Check(t *testing.T) {
	dbUp := true
	reporter := NewHealthReporter(map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error {
			if !dbUp {
				return errors.New("connection refused")
			}
			return nil
		}),
		"redis": PingFunc(func(ctx context.Context) error { return nil }),
	})

	ctx := context.Background()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, reporter.Check(ctx))

	resp, err := reporter.Server().Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	dbUp = false
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, reporter.Check(ctx))

	resp, err = reporter.Server().Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
