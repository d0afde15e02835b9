// Package workerproc is the runtime that executes inside a worker
// child process: it boots from an Init envelope, dispatches incoming
// requests, reports heartbeats and health, and drains in-flight work on
// a graceful shutdown.
package workerproc

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/log"
	"github.com/cuemby/moltpool/pkg/sandbox"
)

// Handler processes one worker request and returns its response
// payload or an error. Application logic (agent messages, commands,
// session storage) is supplied by the embedder; the runtime hands every
// request to the one Handler, which does its own dispatch on req.Type,
// and JSON-encodes the returned payload into the Response.
type Handler func(ctx context.Context, req ipc.Request) (payload any, err error)

// activeRequest tracks one in-flight request for the shutdown drain
// and the activeRequests count reported in heartbeats/health.
type activeRequest struct {
	startedAt time.Time
}

// Runtime is the single in-memory state record the child boots with:
// configuration, sandbox handle, lifecycle state, counters, and the
// in-flight request map, kept as one bounded struct
// rather than scattered package globals.
type Runtime struct {
	conn    *ipc.Conn
	handler Handler

	mu                sync.Mutex
	config            ipc.WorkerConfig
	sandbox           *sandbox.Sandbox
	state             ipc.LifecycleState
	active            map[string]activeRequest
	requestsProcessed int64
	errorCount        int64
	startedAt         time.Time

	limiter *rate.Limiter

	log       zerolog.Logger
	stopOnce  sync.Once
	stopCh    chan struct{}
	heartbeat *time.Ticker
}

// New returns a Runtime bound to conn, with requests dispatched to
// handler. Call Run to block until the process should exit.
func New(conn *ipc.Conn, handler Handler) *Runtime {
	return &Runtime{
		conn:    conn,
		handler: handler,
		state:   ipc.StateStarting,
		active:  make(map[string]activeRequest),
		log:     log.WithComponent("workerproc"),
		stopCh:  make(chan struct{}),
	}
}

// Sandbox returns the runtime's sandbox handle, or nil before boot has
// completed. Handlers that need session/state/cache paths close over
// the Runtime and call this rather than tracking their own copy.
func (r *Runtime) Sandbox() *sandbox.Sandbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sandbox
}

// Run drives the child's control loop until the channel closes or a
// Shutdown/Kill envelope finishes processing. Envelopes are dispatched
// from this goroutine; request handlers and the heartbeat run on their
// own goroutines, and all of them share Runtime state under r.mu.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		select {
		case env, ok := <-r.conn.Inbox():
			if !ok {
				return nil
			}
			if done := r.dispatch(ctx, env); done {
				return nil
			}
		case <-r.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runtime) dispatch(ctx context.Context, env ipc.Envelope) (done bool) {
	switch env.Type {
	case ipc.TypeInit:
		var cfg ipc.WorkerConfig
		if err := ipc.Decode(env, &cfg); err != nil {
			r.log.Error().Err(err).Msg("failed to decode Init payload")
			return false
		}
		if err := r.boot(cfg); err != nil {
			r.log.Error().Err(err).Msg("boot sequence failed")
			r.emitFatal(fmt.Sprintf("boot failed: %v", err), "BOOT_FAILED")
			return true
		}
	case ipc.TypeRequest:
		var req ipc.Request
		if err := ipc.Decode(env, &req); err != nil {
			r.log.Error().Err(err).Msg("failed to decode Request payload")
			return false
		}
		go r.handleRequest(ctx, req)
	case ipc.TypeHealthCheck:
		r.sendHealth()
	case ipc.TypeShutdown:
		var payload ipc.ShutdownPayload
		_ = ipc.Decode(env, &payload)
		r.gracefulShutdown(time.Duration(payload.GracePeriodMs) * time.Millisecond)
		return true
	case ipc.TypeKill:
		return true
	default:
		r.log.Warn().Str("type", string(env.Type)).Msg("ignoring unknown envelope type")
	}
	return false
}

// boot runs the five-step sequence: construct and
// initialize the sandbox, merge its environment into the process
// environment, start the heartbeat ticker, announce Ready, and
// transition to Ready.
func (r *Runtime) boot(cfg ipc.WorkerConfig) error {
	sb := sandbox.FromRoot(cfg.SandboxRoot, cfg.WorkerID)
	if err := sb.Init(); err != nil {
		return fmt.Errorf("failed to initialize sandbox: %w", err)
	}
	for k, v := range sb.Environment() {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}

	r.mu.Lock()
	r.config = cfg
	r.sandbox = sb
	r.startedAt = time.Now()
	if cfg.MaxConcurrent > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.MaxConcurrent), cfg.MaxConcurrent)
	}
	r.mu.Unlock()

	interval := time.Duration(cfg.HeartbeatIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 5 * time.Second
	}
	r.heartbeat = time.NewTicker(interval)
	go r.heartbeatLoop()

	if err := r.conn.Send(ipc.TypeReady, ipc.ReadyPayload{WorkerID: cfg.WorkerID}); err != nil {
		return fmt.Errorf("failed to send Ready: %w", err)
	}
	r.setState(ipc.StateReady)
	return nil
}

func (r *Runtime) heartbeatLoop() {
	for {
		select {
		case <-r.heartbeat.C:
			r.sendHeartbeat()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Runtime) sendHeartbeat() {
	r.mu.Lock()
	payload := ipc.HeartbeatPayload{
		WorkerID:          r.config.WorkerID,
		State:             r.state,
		ActiveRequests:    len(r.active),
		MemoryBytes:       currentMemoryBytes(),
		RequestsProcessed: r.requestsProcessed,
	}
	r.mu.Unlock()

	if err := r.conn.Send(ipc.TypeHeartbeat, payload); err != nil {
		r.log.Error().Err(err).Msg("failed to send heartbeat")
	}
}

func (r *Runtime) sendHealth() {
	r.mu.Lock()
	health := ipc.Health{
		Pid:               os.Getpid(),
		State:             r.state,
		MemoryBytes:       currentMemoryBytes(),
		RequestsProcessed: r.requestsProcessed,
		ActiveRequests:    len(r.active),
		LastHeartbeat:     time.Now().UnixMilli(),
		UptimeMs:          time.Since(r.startedAt).Milliseconds(),
		ErrorCount:        r.errorCount,
		CPUUsage:          0,
	}
	r.mu.Unlock()

	if err := r.conn.Send(ipc.TypeHealth, health); err != nil {
		r.log.Error().Err(err).Msg("failed to send health snapshot")
	}
}

func (r *Runtime) setState(s ipc.LifecycleState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runtime) emitFatal(msg, code string) {
	_ = r.conn.Send(ipc.TypeError, ipc.ErrorPayload{Message: msg, Code: code, Fatal: true})
}

func (r *Runtime) emitNonFatal(msg, code string) {
	_ = r.conn.Send(ipc.TypeError, ipc.ErrorPayload{Message: msg, Code: code, Fatal: false})
}
