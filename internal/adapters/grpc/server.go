package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gitlab.com/timkado/api/storefront-access-service/internal/adapters/config"
	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
	"gitlab.com/timkado/api/storefront-access-service/pkg/safego"
)

// Server wraps the gRPC server that exposes grpc.health.v1 for the agent.
type Server struct {
	gsrv        *grpc.Server
	health      *health.Server
	service     string
	logger      domain.Logger
	cfgProvider config.Provider
	appCtx      context.Context
	cancelCtx   context.CancelFunc
}

// NewServer creates a new gRPC server instance. Both the overall status and the
// service named by app.service_name start as NOT_SERVING.
func NewServer(appCtx context.Context, logger domain.Logger, cfgProvider config.Provider) *Server {
	gsrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gsrv, hs)

	service := cfgProvider.Get().App.ServiceName
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)

	serverLifecycleCtx, serverLifecycleCancel := context.WithCancel(appCtx)

	return &Server{
		gsrv:        gsrv,
		health:      hs,
		service:     service,
		logger:      logger,
		cfgProvider: cfgProvider,
		appCtx:      serverLifecycleCtx,
		cancelCtx:   serverLifecycleCancel,
	}
}

// SetServing flips the reported health status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}

// Start listens on server.host:server.grpc_port and serves in a new goroutine.
func (s *Server) Start() error {
	srvCfg := s.cfgProvider.Get().Server
	if srvCfg.GRPCPort == 0 {
		s.logger.Warn(s.appCtx, "gRPC port is not configured or is 0. gRPC server will not start.")
		return fmt.Errorf("gRPC port not configured")
	}
	addr := net.JoinHostPort(srvCfg.Host, fmt.Sprintf("%d", srvCfg.GRPCPort))

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error(s.appCtx, "Failed to listen for gRPC", "address", addr, "error", err)
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}
	s.Serve(lis)
	return nil
}

// Serve serves on lis in a new goroutine until GracefulStop is called.
func (s *Server) Serve(lis net.Listener) {
	s.logger.Info(s.appCtx, "gRPC server starting", "address", lis.Addr().String())

	safego.Execute(s.appCtx, s.logger, "GRPCServerServe", func() {
		if err := s.gsrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error(s.appCtx, "gRPC server failed to serve", "error", err)
		}
		s.cancelCtx()
	})

	safego.Execute(s.appCtx, s.logger, "GRPCServerContextWatcher", func() {
		<-s.appCtx.Done()
		s.health.Shutdown()
		s.gsrv.GracefulStop()
		s.logger.Info(context.Background(), "gRPC server gracefully stopped after context cancellation.")
	})
}

// GracefulStop cancels the server's lifecycle context, which triggers the graceful stop.
func (s *Server) GracefulStop() {
	s.logger.Info(s.appCtx, "GracefulStop called for gRPC server.")
	s.cancelCtx()
}
