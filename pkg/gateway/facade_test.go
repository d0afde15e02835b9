package gateway

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/moltpool/pkg/config"
	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/workerproc"
)

func TestMain(m *testing.M) {
	if os.Getenv("MOLTPOOL_TEST_WORKER") == "1" {
		conn := ipc.NewConn(os.Stdin, os.Stdout)
		rt := workerproc.New(conn, func(_ context.Context, req ipc.Request) (any, error) {
			return map[string]string{"echo": string(req.Payload)}, nil
		})
		rt.WatchSignals()
		defer rt.RecoverFatal()
		_ = rt.Run(context.Background())
		return
	}
	os.Exit(m.Run())
}

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	t.Setenv("MOLTPOOL_TEST_WORKER", "1")

	cfg := config.Default()
	cfg.WorkerCount = 2
	cfg.SandboxBaseDir = t.TempDir()
	cfg.RequestTimeout = 2 * time.Second

	f, err := New(cfg, os.Args[0])
	require.NoError(t, err)
	return f
}

func TestRouteAssignsAnonymousIDWhenNoIdentifierGiven(t *testing.T) {
	f := newTestFacade(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, f.Start(ctx))
	defer f.Stop(time.Second)

	resp := f.Route(ctx, GatewayRequest{Type: "agent"})
	assert.True(t, resp.Success)
}

func TestRoutePrefersUserIDOverSessionKey(t *testing.T) {
	req := GatewayRequest{UserID: "u1", SessionKey: "s1"}
	assert.Equal(t, "u1", extractUserID(req))
}

func TestRouteFallsBackToSessionKey(t *testing.T) {
	req := GatewayRequest{SessionKey: "s1"}
	assert.Equal(t, "s1", extractUserID(req))
}

func TestRouteGeneratesAnonymousIDWhenBothMissing(t *testing.T) {
	req := GatewayRequest{}
	id := extractUserID(req)
	assert.Contains(t, id, "anon:")
}

func TestMapRequestTypeKnownAndDefault(t *testing.T) {
	assert.Equal(t, ipc.RequestAgentMessage, mapRequestType("agent"))
	assert.Equal(t, ipc.RequestAgentCommand, mapRequestType("command"))
	assert.Equal(t, ipc.RequestSession, mapRequestType("session"))
	assert.Equal(t, ipc.RequestAgentMessage, mapRequestType("unknown"))
}

func TestRouteTranslatesSupervisorErrorToFailureResponse(t *testing.T) {
	f := newTestFacade(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Never started: SendRequest returns ErrPoolNotStarted.
	resp := f.Route(ctx, GatewayRequest{UserID: "u1"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestGetStatusReflectsStartedPool(t *testing.T) {
	f := newTestFacade(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, f.Start(ctx))
	defer f.Stop(time.Second)

	status := f.GetStatus()
	assert.Equal(t, 2, status.TotalWorkers)
}
