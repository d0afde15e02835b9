package workerproc

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/moltpool/pkg/ipc"
)

// pipe wires two Conns together so sends on one reach the other's
// Inbox/WaitFor, mirroring the supervisor/child relationship over a
// pair of pipes.
func pipe(t *testing.T) (supervisor, child *ipc.Conn) {
	t.Helper()
	sToC, wToC := io.Pipe()
	cToS, wToS := io.Pipe()
	supervisor = ipc.NewConn(cToS, wToC)
	child = ipc.NewConn(sToC, wToS)
	return supervisor, child
}

func echoHandler(_ context.Context, req ipc.Request) (any, error) {
	return map[string]string{"echo": req.UserID}, nil
}

func TestBootSequenceSendsReadyAndTransitions(t *testing.T) {
	supervisor, child := pipe(t)
	rt := New(child, echoHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	base := t.TempDir()
	require.NoError(t, supervisor.Send(ipc.TypeInit, ipc.WorkerConfig{
		WorkerID:            "worker-0",
		SandboxRoot:         base + "/worker-0",
		HeartbeatIntervalMs: 50,
		MaxMemoryBytes:      1 << 30,
		MaxRequests:         1000,
	}))

	env, err := supervisor.WaitFor(ipc.TypeReady, time.Second)
	require.NoError(t, err)
	var ready ipc.ReadyPayload
	require.NoError(t, ipc.Decode(env, &ready))
	assert.Equal(t, "worker-0", ready.WorkerID)
}

func TestRequestRoundTripRespondsSuccess(t *testing.T) {
	supervisor, child := pipe(t)
	rt := New(child, echoHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	base := t.TempDir()
	require.NoError(t, supervisor.Send(ipc.TypeInit, ipc.WorkerConfig{
		WorkerID:    "worker-0",
		SandboxRoot: base + "/worker-0",
	}))
	_, err := supervisor.WaitFor(ipc.TypeReady, time.Second)
	require.NoError(t, err)

	require.NoError(t, supervisor.Send(ipc.TypeRequest, ipc.Request{
		RequestID: "req-1",
		UserID:    "user-a",
		Type:      ipc.RequestAgentMessage,
	}))

	env, err := supervisor.WaitFor(ipc.TypeResponse, time.Second)
	require.NoError(t, err)
	var resp ipc.Response
	require.NoError(t, ipc.Decode(env, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestHandlerErrorRespondsFailure(t *testing.T) {
	supervisor, child := pipe(t)
	rt := New(child, func(_ context.Context, _ ipc.Request) (any, error) {
		return nil, assertErr{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	base := t.TempDir()
	require.NoError(t, supervisor.Send(ipc.TypeInit, ipc.WorkerConfig{
		WorkerID:    "worker-0",
		SandboxRoot: base + "/worker-0",
	}))
	_, err := supervisor.WaitFor(ipc.TypeReady, time.Second)
	require.NoError(t, err)

	require.NoError(t, supervisor.Send(ipc.TypeRequest, ipc.Request{
		RequestID: "req-1",
		UserID:    "user-a",
		Type:      ipc.RequestAgentMessage,
	}))

	env, err := supervisor.WaitFor(ipc.TypeResponse, time.Second)
	require.NoError(t, err)
	var resp ipc.Response
	require.NoError(t, ipc.Decode(env, &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "HANDLER_ERROR", resp.ErrorCode)
}

func TestHeartbeatFiresAfterBoot(t *testing.T) {
	supervisor, child := pipe(t)
	rt := New(child, echoHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	base := t.TempDir()
	require.NoError(t, supervisor.Send(ipc.TypeInit, ipc.WorkerConfig{
		WorkerID:            "worker-0",
		SandboxRoot:         base + "/worker-0",
		HeartbeatIntervalMs: 20,
	}))
	_, err := supervisor.WaitFor(ipc.TypeReady, time.Second)
	require.NoError(t, err)

	env, err := supervisor.WaitFor(ipc.TypeHeartbeat, time.Second)
	require.NoError(t, err)
	var hb ipc.HeartbeatPayload
	require.NoError(t, ipc.Decode(env, &hb))
	assert.Equal(t, "worker-0", hb.WorkerID)
}

func TestGracefulShutdownDrainsAndEmitsStopped(t *testing.T) {
	supervisor, child := pipe(t)
	rt := New(child, echoHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rt.Run(ctx) }()

	base := t.TempDir()
	require.NoError(t, supervisor.Send(ipc.TypeInit, ipc.WorkerConfig{
		WorkerID:    "worker-0",
		SandboxRoot: base + "/worker-0",
	}))
	_, err := supervisor.WaitFor(ipc.TypeReady, time.Second)
	require.NoError(t, err)

	require.NoError(t, supervisor.Send(ipc.TypeShutdown, ipc.ShutdownPayload{GracePeriodMs: 200}))

	env, err := supervisor.WaitFor(ipc.TypeEvent, time.Second)
	require.NoError(t, err)
	var payload ipc.EventPayload
	require.NoError(t, ipc.Decode(env, &payload))
	assert.Equal(t, "stopped", payload.Type)
}

type assertErr struct{}

func (assertErr) Error() string { return "handler failed" }
