package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/turtacn/CTS-Broker/internal/testutil"
)

func startServer(t *testing.T, opts ...Option) (*Server, healthpb.HealthClient) {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", opts...)
	require.NoError(t, err)
	go func() { _ = s.Start() }()
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	conn, err := grpc.Dial(s.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return s, healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service}, grpc.WaitForReady(true))
	require.NoError(t, err)
	return resp.Status
}

func TestNewServer_InvalidAddress(t *testing.T) {
	_, err := NewServer("256.0.0.1:99999")
	assert.Error(t, err)
}

func TestServer_HealthServing(t *testing.T) {
	_, client := startServer(t)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ServiceName))
}

func TestServer_ReadinessFailing(t *testing.T) {
	logger := testutil.NewMockLogger()
	_, client := startServer(t,
		WithLogger(logger),
		WithReadiness(func(context.Context) error { return errors.New("redis down") }, time.Hour))

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ServiceName))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client, ""))
	assert.True(t, logger.HasMessage("warn", "readiness probe failed"))
}

func TestServer_ReadinessRecovers(t *testing.T) {
	var healthy atomic.Bool
	_, client := startServer(t, WithReadiness(func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("not yet")
	}, 10*time.Millisecond))

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client, ServiceName))
	healthy.Store(true)
	assert.Eventually(t, func() bool {
		return checkStatus(t, client, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_DoubleStart(t *testing.T) {
	s, client := startServer(t)
	checkStatus(t, client, "")
	assert.Error(t, s.Start())
}

func TestServer_StopBeforeStart(t *testing.T) {
	s, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, s.Stop(context.Background()))
	_ = s.listener.Close()
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	logger := testutil.NewMockLogger()
	interceptor := recoveryUnaryInterceptor(logger)

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/cts.Broker/Boom"},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })

	assert.Equal(t, codes.Internal, status.Code(err))
	assert.True(t, logger.HasMessage("error", "grpc panic recovered"))
}

func TestLoggingUnaryInterceptor_SkipsHealth(t *testing.T) {
	logger := testutil.NewMockLogger()
	interceptor := loggingUnaryInterceptor(logger)
	ok := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }

	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, ok)
	assert.False(t, logger.HasMessage("info", "grpc request"))

	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/cts.Broker/Filter"}, ok)
	assert.True(t, logger.HasMessage("info", "grpc request"))
}
