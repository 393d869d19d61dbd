package health

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	Connected    = "connected"
	Disconnected = "disconnected"

	// BookingService is the gRPC health service name reported next to "".
	BookingService = "booking"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type Report struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
	Services  Services  `json:"services"`
}

func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Checker probes the store and redis. Only the store decides overall
// health: the service keeps working without redis.
type Checker struct {
	db      Pinger
	redis   Pinger
	grpc    *health.Server
	timeout time.Duration
	started time.Time
}

func NewChecker(db, redis Pinger, grpcHealth *health.Server) *Checker {
	return &Checker{db: db, redis: redis, grpc: grpcHealth, timeout: 2 * time.Second, started: time.Now()}
}

func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	now := time.Now()
	report := Report{
		Status:    StatusHealthy,
		Timestamp: now.UTC(),
		Uptime:    now.Sub(c.started).Seconds(),
		Services: Services{
			Database: probe(ctx, c.db),
			Redis:    probe(ctx, c.redis),
		},
	}
	if report.Services.Database != Connected {
		report.Status = StatusDegraded
	}
	c.publish(report)
	return report
}

// Watch re-runs Check every interval so gRPC health reflects the store
// without waiting for an HTTP probe.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

func (c *Checker) publish(report Report) {
	if c.grpc == nil {
		return
	}
	status := healthpb.HealthCheckResponse_SERVING
	if !report.Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		log.Warn().Str("database", report.Services.Database).Str("redis", report.Services.Redis).Msg("service degraded")
	}
	c.grpc.SetServingStatus("", status)
	c.grpc.SetServingStatus(BookingService, status)
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return Disconnected
	}
	if err := p.Ping(ctx); err != nil {
		return Disconnected
	}
	return Connected
}
