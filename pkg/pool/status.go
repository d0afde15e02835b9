package pool

import "github.com/cuemby/moltpool/pkg/ipc"

// WorkerSnapshot pairs a worker slot's stable id with its last-known
// health, since ipc.Health itself carries no worker identity.
type WorkerSnapshot struct {
	WorkerID string
	Health   ipc.Health
}

// Status is the facade-visible aggregate snapshot of the pool.
type Status struct {
	TotalWorkers     int
	HealthyWorkers   int
	BusyWorkers      int
	QueuedRequests   int
	RoutingTableSize int
	Workers          []WorkerSnapshot
}

// GetStatus aggregates per-worker health, synthesizing a placeholder
// snapshot for any slot that has not yet reported one.
func (s *Supervisor) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		TotalWorkers:     len(s.workers),
		RoutingTableSize: s.router.CacheSize(),
	}

	for _, w := range s.workers {
		w.mu.Lock()
		health := w.health
		if health.Pid == 0 {
			health.State = w.state
		}
		pending := len(w.pending)
		state := w.state
		id := w.id
		w.mu.Unlock()

		status.Workers = append(status.Workers, WorkerSnapshot{WorkerID: id, Health: health})
		status.QueuedRequests += pending

		if isDispatchable(state) {
			status.HealthyWorkers++
		}
		if state == ipc.StateBusy {
			status.BusyWorkers++
		}
	}

	return status
}
