package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestRunReportsDegradedOnFailure(t *testing.T) {
	c := NewChecker(zap.NewNop().Sugar())
	c.Add("postgres", true, ok)
	c.Add("mongo", false, down)

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded", report.Status)
	}
	if u := report.Unavailable(); len(u) != 1 || u[0] != "mongo" {
		t.Errorf("unavailable = %v, want [mongo]", u)
	}
	if c.Last().Timestamp != report.Timestamp {
		t.Error("Last should return the latest report")
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		code  int
	}{
		{"healthy", ok, http.StatusOK},
		{"degraded", down, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		c := NewChecker(zap.NewNop().Sugar())
		c.Add("redis", true, tt.check)

		r := gin.New()
		r.GET("/health", c.Handler())
		r.GET("/health/detailed", c.DetailedHandler())

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != tt.code {
			t.Errorf("%s: /health code = %d, want %d", tt.name, w.Code, tt.code)
		}

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
		var body struct {
			OverallStatus string   `json:"overall_status"`
			Services      []Result `json:"services"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tt.name, err)
		}
		if body.OverallStatus != tt.name || len(body.Services) != 1 {
			t.Errorf("%s: unexpected detailed body %+v", tt.name, body)
		}
	}
}

func serveOnLoopback(t *testing.T, c *Checker) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := NewGRPCServer(c)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(func() {
		s.Stop()
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.Logf("close listener: %v", err)
		}
	})
	return lis.Addr().String()
}

func TestProbe(t *testing.T) {
	c := NewChecker(zap.NewNop().Sugar())
	c.Add("postgres", true, ok)
	c.Add("mongo", false, down)
	c.Run(context.Background())

	addr := serveOnLoopback(t, c)

	if err := Probe(context.Background(), addr, ServiceName); err != nil {
		t.Errorf("optional failure should keep the service serving: %v", err)
	}
	if err := Probe(context.Background(), addr, "mongo"); err == nil {
		t.Error("probe of a failing check should error")
	}
	if err := Probe(context.Background(), addr, "unknown"); err == nil {
		t.Error("probe of an unregistered service should error")
	}
}

func TestProbeRequiredFailure(t *testing.T) {
	c := NewChecker(zap.NewNop().Sugar())
	c.Add("postgres", true, down)
	c.Run(context.Background())

	addr := serveOnLoopback(t, c)
	if err := Probe(context.Background(), addr, ServiceName); err == nil {
		t.Error("required failure should take the service out of SERVING")
	}
}
