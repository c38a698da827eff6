package monitoring

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the API
const ServiceName = "rent-payment-service"

// Pinger is a dependency whose reachability gates readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthReporter keeps a gRPC health server in sync with dependency checks
type HealthReporter struct {
	server  *health.Server
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthReporter(checks map[string]Pinger) *HealthReporter {
	return &HealthReporter{
		server:  health.NewServer(),
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// Server returns the health server to register on a grpc.Server
func (h *HealthReporter) Server() *health.Server {
	return h.server
}

// Check pings every dependency once and publishes the combined status
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, p := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Run re-checks dependencies every interval until ctx is cancelled
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
