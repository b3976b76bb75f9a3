package grpc

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check name reported for the tracking engine.
const ServiceName = "tailwatch.Tracking"

// GrpcServer exposes the standard gRPC health service so orchestrators can
// probe the engine.
type GrpcServer struct {
	server *grpc.Server
	health *health.Server
}

// NewGrpcServer creates a server whose engine status starts as NOT_SERVING.
func NewGrpcServer() *GrpcServer {
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &GrpcServer{server: s, health: hs}
}

// SetServing flips the engine's health status.
func (s *GrpcServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GrpcServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.server.GracefulStop()
	}()

	s.SetServing(true)
	log.Printf("[GRPC] Health service listening on %s", lis.Addr())
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *GrpcServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen error: %w", err)
	}
	return s.Serve(ctx, lis)
}
