package workerproc

import (
	"time"

	"github.com/cuemby/moltpool/pkg/ipc"
)

// gracefulShutdown transitions to Stopping, polls until activeRequests
// drains or the grace period elapses, synthesizes failure responses
// for anything still outstanding at the deadline, then announces
// Stopped and transitions there.
func (r *Runtime) gracefulShutdown(gracePeriod time.Duration) {
	r.setState(ipc.StateStopping)
	deadline := time.Now().Add(gracePeriod)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if r.activeCount() == 0 || time.Now().After(deadline) || time.Now().Equal(deadline) {
			break
		}
		<-ticker.C
	}

	for requestID := range r.drainActive() {
		r.respondFailure(requestID, "Worker shutting down", "WORKER_SHUTDOWN", 0)
	}

	if r.heartbeat != nil {
		r.heartbeat.Stop()
	}
	r.stopOnce.Do(func() { close(r.stopCh) })

	_ = r.conn.Send(ipc.TypeEvent, ipc.EventPayload{Type: "stopped", Reason: ipc.EventReasonStopped})
	r.setState(ipc.StateStopped)
}

func (r *Runtime) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// drainActive returns and clears every still-pending request id.
func (r *Runtime) drainActive() map[string]activeRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	remaining := r.active
	r.active = make(map[string]activeRequest)
	return remaining
}
