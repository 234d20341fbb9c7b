// Package health reports per-source scrape health over the standard gRPC
// health checking protocol. Each configured source is a service name whose
// status follows the outcome of its latest pass.
package health

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Reporter tracks source health and serves it over gRPC.
type Reporter struct {
	srv *health.Server
	log *slog.Logger
}

// NewReporter creates a Reporter. Every source starts NOT_SERVING until its
// first successful pass; the overall ("") service is SERVING.
func NewReporter(sources []string, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	hs := health.NewServer()
	for _, s := range sources {
		hs.SetServingStatus(s, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return &Reporter{srv: hs, log: log.With("component", "health")}
}

// PassSucceeded marks source as serving.
func (r *Reporter) PassSucceeded(source string) {
	r.srv.SetServingStatus(source, healthpb.HealthCheckResponse_SERVING)
}

// PassFailed marks source as not serving.
func (r *Reporter) PassFailed(source string, err error) {
	r.log.Debug("source unhealthy", "source", source, "error", err)
	r.srv.SetServingStatus(source, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Register installs the health and reflection services on s.
func (r *Reporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.srv)
	reflection.Register(s)
}

// Serve listens on addr and serves health checks until ctx is cancelled.
func (r *Reporter) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s := grpc.NewServer()
	r.Register(s)

	go func() {
		<-ctx.Done()
		r.srv.Shutdown()
		s.GracefulStop()
	}()

	r.log.Info("grpc health listening", "addr", lis.Addr().String())
	return s.Serve(lis)
}
