package grpc

import (
	"context"
	"sync"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	pb "github.com/Belphemur/TubeMP3/api/v1"
	"github.com/Belphemur/TubeMP3/internal/config"
)

var (
	grpcServerMetrics         *grpcprom.ServerMetrics
	registerServerMetricsOnce sync.Once
)

// Server is the gRPC server with its health service, so shutdown can be
// announced to health checkers before in-flight downloads drain.
type Server struct {
	*grpc.Server
	health *health.Server
}

// Shutdown marks every service NOT_SERVING, then waits for running calls to finish
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}

// NewGRPCServer creates the downloader server with Prometheus metrics, call
// logging, keepalive suited to long download streams, health and reflection.
func NewGRPCServer(deps Dependencies) *Server {
	registerServerMetricsOnce.Do(func() {
		grpcServerMetrics = grpcprom.NewServerMetrics(
			grpcprom.WithServerHandlingTimeHistogram(
				grpcprom.WithHistogramBuckets([]float64{0.05, 0.5, 2, 10, 30, 120, 600, 1800}),
			),
		)
		prometheus.MustRegister(grpcServerMetrics)
	})

	logger := config.GetLogger()
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcServerMetrics.UnaryServerInterceptor(), unaryLogger(logger)),
		grpc.ChainStreamInterceptor(grpcServerMetrics.StreamServerInterceptor(), streamLogger(logger)),
		// A playlist stream can stay open for a long time between progress events
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: 2 * time.Minute, Timeout: 20 * time.Second}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: 30 * time.Second, PermitWithoutStream: true}),
	)

	pb.RegisterDownloaderServiceServer(grpcServer, NewServer(deps))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(pb.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)
	grpcServerMetrics.InitializeMetrics(grpcServer)

	return &Server{Server: grpcServer, health: healthServer}
}

func unaryLogger(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(logger, info.FullMethod, start, err)
		return resp, err
	}
}

func streamLogger(logger zerolog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(logger, info.FullMethod, start, err)
		return err
	}
}

// logCall logs failures other than client cancellation at warn level, the rest at debug
func logCall(logger zerolog.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	event := logger.Debug()
	if code != codes.OK && code != codes.Canceled {
		event = logger.Warn().Err(err)
	}
	event.Str("method", method).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC call finished")
}
