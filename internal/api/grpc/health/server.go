package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/climate-alarm/internal/logger"
)

// ServiceName is the health service name reporting sensor reads.
const ServiceName = "climate.Sampler"

// Server publishes the sampler status over gRPC.
type Server struct {
	health *grpchealth.Server
	grpc   *grpc.Server
}

// NewServer creates a server reporting NOT_SERVING for ServiceName.
func NewServer() *Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		health: hs,
		grpc:   gs,
	}
}

// Observe records the outcome of a sensor read.
func (s *Server) Observe(ctx context.Context, err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus(ServiceName, status)
	logger.DebugKV(ctx, "Health updated", "status", status.String())
}

// Serve answers health checks on lis until ctx is canceled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx = logger.WithName(ctx, "status")

	logger.InfoKV(ctx, "Status endpoint listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop returns so Serve does not exit early.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Status endpoint stopped")

	return nil
}
