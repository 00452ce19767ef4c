package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/ojtauth/internal/common"
)

// HealthService is the gRPC health service name the server reports on.
const HealthService = "ojtauth.CredentialStore"

// HealthChecker asks the server's gRPC health endpoint whether the store is
// serving.
type HealthChecker struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

func NewHealthChecker(addr string) (*HealthChecker, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health client: %w", err)
	}
	return &HealthChecker{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Check returns nil when the server reports SERVING.
func (h *HealthChecker) Check(ctx context.Context) error {
	resp, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		return fmt.Errorf("health check: %w", common.ErrTransport)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s: %w", resp.GetStatus(), common.ErrTransport)
	}
	return nil
}

func (h *HealthChecker) Close() error {
	return h.conn.Close()
}
