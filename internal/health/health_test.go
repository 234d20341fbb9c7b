package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dialReporter(t *testing.T, r *Reporter) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	r.Register(s)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func status(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestReporterTracksPasses(t *testing.T) {
	r := NewReporter([]string{"gainers", "losers"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c := dialReporter(t, r)

	if got := status(t, c, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall = %v, want SERVING", got)
	}
	if got := status(t, c, "gainers"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("gainers before first pass = %v, want NOT_SERVING", got)
	}

	r.PassSucceeded("gainers")
	if got := status(t, c, "gainers"); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("gainers = %v, want SERVING", got)
	}

	r.PassFailed("gainers", errors.New("table body not found"))
	if got := status(t, c, "gainers"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("gainers after failure = %v, want NOT_SERVING", got)
	}
}

func TestReporterUnknownService(t *testing.T) {
	c := dialReporter(t, NewReporter(nil, nil))
	if _, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "sideways"}); err == nil {
		t.Error("expected NotFound for an unknown source")
	}
}
