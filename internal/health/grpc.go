package health

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer exposes the checker on the standard health service, with
// reflection so grpcurl and grpc_health_probe can discover it.
func NewGRPCServer(c *Checker) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, c.server)
	reflection.Register(s)
	return s
}

// Serve runs s on addr until ctx is done.
func Serve(ctx context.Context, s *grpc.Server, addr string, log *zap.SugaredLogger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Infow("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC health server: %w", err)
	}
	return nil
}

// Probe asks the health service at addr about service and fails unless it is SERVING.
func Probe(ctx context.Context, addr, service string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("health service connection failed: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check %q: %w", service, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", service, resp.GetStatus())
	}
	return nil
}
