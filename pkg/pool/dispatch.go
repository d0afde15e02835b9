package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
)

type responseFailure struct {
	Message string
	Code    string
}

func (e *responseFailure) Error() string { return e.Message }

func responseError(resp ipc.Response) error {
	return &responseFailure{Message: resp.Error, Code: resp.ErrorCode}
}

// SendRequest routes req.UserID to a worker, falling back to any
// Ready/Busy slot if the routed worker is unavailable, and blocks until
// a Response arrives or the request's timeout elapses.
func (s *Supervisor) SendRequest(ctx context.Context, req ipc.Request) (Result, error) {
	s.mu.RLock()
	started := s.started
	stopping := s.stopping
	s.mu.RUnlock()
	if !started {
		return Result{}, ErrPoolNotStarted
	}
	if stopping {
		return Result{}, ErrPoolNotStarted
	}

	assignment, err := s.router.Route(req.UserID)
	if err != nil {
		return Result{}, err
	}

	outcome := "cached"
	if assignment.IsNewAssignment {
		outcome = "new_assignment"
	}

	id := assignment.WorkerID
	w := s.workerOrNil(id)
	if w == nil || !isDispatchable(s.workerState(id)) {
		fallback, ok := s.anyHealthyWorker()
		if !ok {
			return Result{}, ErrNoHealthyWorkers
		}
		if err := s.router.ForceAssign(req.UserID, fallback); err != nil {
			return Result{}, err
		}
		id = fallback
		w = s.workerOrNil(id)
		outcome = "force_assigned"
	}
	s.events.Publish(&events.Event{Type: events.EventRoutingDecision, WorkerID: id, RequestID: req.RequestID, Outcome: outcome})

	timeout := s.cfg.RequestTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	resultCh := make(chan Result, 1)
	corr := &pendingCorrelation{resultCh: resultCh}

	w.mu.Lock()
	w.pending[req.RequestID] = corr
	conn := w.conn
	w.mu.Unlock()

	corr.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		_, stillPending := w.pending[req.RequestID]
		delete(w.pending, req.RequestID)
		w.mu.Unlock()
		if stillPending {
			resultCh <- Result{Err: ErrRequestTimeout}
		}
	})

	if conn == nil {
		return Result{}, fmt.Errorf("pool: %s has no live connection", id)
	}
	if err := conn.Send(ipc.TypeRequest, req); err != nil {
		corr.timer.Stop()
		w.mu.Lock()
		delete(w.pending, req.RequestID)
		w.mu.Unlock()
		return Result{}, fmt.Errorf("pool: failed to send request to %s: %w", id, err)
	}

	select {
	case result := <-resultCh:
		return result, result.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func isDispatchable(state ipc.LifecycleState) bool {
	return state == ipc.StateReady || state == ipc.StateBusy
}

func (s *Supervisor) workerOrNil(id string) *worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workers[id]
}

func (s *Supervisor) anyHealthyWorker() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, w := range s.workers {
		w.mu.Lock()
		state := w.state
		w.mu.Unlock()
		if isDispatchable(state) {
			return id, true
		}
	}
	return "", false
}
