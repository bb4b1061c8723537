// Package health reports whether the gateway's dependencies answer, over HTTP
// for load balancers and over the standard gRPC health protocol for the
// kitchen display.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

// ServiceName is the gRPC health service that turns SERVING once every
// required check passes.
const ServiceName = "dinein.orders"

const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

type Check func(ctx context.Context) error

type Result struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Latency  string `json:"latency"`
}

type Report struct {
	Status    string    `json:"status"`
	Services  []Result  `json:"services"`
	Timestamp time.Time `json:"timestamp"`
}

// Unavailable lists the names of failing checks.
func (r Report) Unavailable() []string {
	out := []string{}
	for _, s := range r.Services {
		if s.Status != StatusHealthy {
			out = append(out, s.Name)
		}
	}
	return out
}

type namedCheck struct {
	name     string
	required bool
	check    Check
}

type Checker struct {
	mu      sync.RWMutex
	checks  []namedCheck
	last    Report
	server  *health.Server
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewChecker(log *zap.SugaredLogger) *Checker {
	return &Checker{
		server:  health.NewServer(),
		timeout: 3 * time.Second,
		log:     log,
	}
}

// Add registers a check. A failing optional check degrades the report; a
// failing required one also takes the gRPC service out of SERVING.
func (c *Checker) Add(name string, required bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, namedCheck{name: name, required: required, check: check})
	c.server.SetServingStatus(name, healthpb.HealthCheckResponse_UNKNOWN)
}

func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	c.mu.RUnlock()

	report := Report{Status: StatusHealthy, Services: make([]Result, 0, len(checks)), Timestamp: time.Now()}
	serving := true
	for _, nc := range checks {
		res := c.runOne(ctx, nc)
		report.Services = append(report.Services, res)

		status := healthpb.HealthCheckResponse_SERVING
		if res.Status != StatusHealthy {
			report.Status = StatusDegraded
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if nc.required {
				serving = false
			}
		}
		c.server.SetServingStatus(nc.name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !serving {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus(ServiceName, overall)
	c.server.SetServingStatus("", overall)

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()
	return report
}

func (c *Checker) runOne(ctx context.Context, nc namedCheck) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := nc.check(ctx)
	res := Result{
		Name:     nc.name,
		Required: nc.required,
		Latency:  time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		res.Status = StatusUnavailable
		res.Message = err.Error()
		c.log.Warnw("Health check failed", "check", nc.name, "error", err)
		return res
	}
	res.Status = StatusHealthy
	res.Message = "Service is responding"
	return res
}

// Last returns the most recent report without running the checks again.
func (c *Checker) Last() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Watch re-runs the checks every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	c.Run(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Run(ctx)
		}
	}
}

func Postgres(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		return sqlDB.PingContext(ctx)
	}
}

func Redis(client *redis.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func Ping(p Pinger) Check {
	return p.Ping
}
