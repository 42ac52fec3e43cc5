package grpchealth

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ActuatorService is NOT_SERVING while every device is simulated.
const ActuatorService = "voice-butler.actuators"

// Server publishes the standard gRPC health protocol for supervisors.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	logger     *slog.Logger
}

func NewServer(addr string, logger *slog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		listener:   lis,
		logger:     logger,
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ActuatorService, healthpb.HealthCheckResponse_NOT_SERVING)

	return s, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("gRPC health server listening", "addr", s.Addr())
		if err := s.grpcServer.Serve(s.listener); err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
	}()
}

// SetServing marks the pipeline up. Actuators are reported separately so a
// simulated house is visible to the supervisor.
func (s *Server) SetServing(simulated bool) {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if simulated {
		s.health.SetServingStatus(ActuatorService, healthpb.HealthCheckResponse_NOT_SERVING)
	} else {
		s.health.SetServingStatus(ActuatorService, healthpb.HealthCheckResponse_SERVING)
	}
}

// Stop reports NOT_SERVING to watchers and stops the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
