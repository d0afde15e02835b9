// Package pool implements the supervisor: it owns a fixed-size fleet of
// worker child processes, spawning, monitoring, restarting, and
// draining them, and routes per-user requests to the worker their user
// id is stickily assigned to.
package pool

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/moltpool/pkg/config"
	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/log"
	"github.com/cuemby/moltpool/pkg/router"
	"github.com/cuemby/moltpool/pkg/sandbox"
)

// pendingCorrelation is the supervisor-side record of one in-flight
// request, armed with a timer that rejects it on RequestTimeout.
type pendingCorrelation struct {
	resultCh chan Result
	timer    *time.Timer
}

// Result is what a dispatched request resolves to: either a payload on
// success, or an error (RequestTimeout, WorkerExited, or the worker's
// own reported failure).
type Result struct {
	Payload []byte
	Err     error
}

// worker is one supervisor-owned slot: a stable id whose backing
// process may be replaced by restart.
type worker struct {
	id      string
	sandbox *sandbox.Sandbox

	mu           sync.Mutex
	cmd          *exec.Cmd
	conn         *ipc.Conn
	exited       chan struct{}
	state        ipc.LifecycleState
	health       ipc.Health
	restartCount int
	restartTimes []time.Time
	pending      map[string]*pendingCorrelation
}

// Supervisor is the pool's top-level handle, constructed once per
// process and started exactly once.
type Supervisor struct {
	cfg     config.Config
	binPath string
	binArgs []string

	router  *router.Router
	sandbox *sandbox.Manager
	events  *events.Broker
	log     zerolog.Logger

	mu       sync.RWMutex
	workers  map[string]*worker
	started  bool
	stopping bool
}

// New constructs a Supervisor that spawns binPath (with args) as each
// worker child. cfg.WorkerCount slots are registered but not spawned
// until Start.
func New(cfg config.Config, binPath string, binArgs ...string) (*Supervisor, error) {
	mgr, err := sandbox.NewManager(cfg.SandboxBaseDir)
	if err != nil {
		return nil, fmt.Errorf("pool: failed to create sandbox manager: %w", err)
	}

	broker := events.NewBroker()
	broker.Start()

	return &Supervisor{
		cfg:     cfg,
		binPath: binPath,
		binArgs: binArgs,
		router:  router.New(cfg.VirtualNodes),
		sandbox: mgr,
		events:  broker,
		log:     log.WithComponent("pool"),
		workers: make(map[string]*worker),
	}, nil
}

// Events returns the broker observers can subscribe to for the
// worker:*/request:*/pool:* event surface.
func (s *Supervisor) Events() *events.Broker {
	return s.events
}

// Router exposes the sticky router for callers (the gateway facade)
// that need GetWorkerForUser without going through dispatch.
func (s *Supervisor) Router() *router.Router {
	return s.router
}

func workerID(i int) string {
	return fmt.Sprintf("worker-%d", i)
}

// ErrPoolNotStarted is returned by operations that require Start to
// have completed.
var ErrPoolNotStarted = errors.New("pool: not started")

// ErrPoolAlreadyStarted is returned by a second Start call.
var ErrPoolAlreadyStarted = errors.New("pool: already started")

// ErrNoHealthyWorkers is returned by dispatch when no slot is Ready or
// Busy and no fallback could be force-assigned.
var ErrNoHealthyWorkers = errors.New("pool: no healthy workers")

// ErrRequestTimeout is returned when a dispatched request's timer fires
// before a matching Response arrives.
var ErrRequestTimeout = errors.New("pool: request timed out")

// ErrWorkerExited is returned to every pending correlation on a slot
// whose child process exited before responding.
var ErrWorkerExited = errors.New("pool: worker exited")

// Start registers every slot with the router and spawns all slots in
// parallel (the sandbox base directory is created by New). It returns
// nil once every slot has reached Ready; otherwise, after every spawn
// attempt has finished, it returns one of the spawn errors.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrPoolAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.cfg.WorkerCount; i++ {
		id := workerID(i)
		w := &worker{id: id, sandbox: s.sandbox.For(id), pending: make(map[string]*pendingCorrelation)}
		s.mu.Lock()
		s.workers[id] = w
		s.mu.Unlock()
		s.router.AddWorker(id)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, s.cfg.WorkerCount)
	for i := 0; i < s.cfg.WorkerCount; i++ {
		id := workerID(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.spawnAndAwaitReady(ctx, id); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}

	s.events.Publish(&events.Event{Type: events.EventPoolReady})
	return nil
}
