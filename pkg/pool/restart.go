package pool

import (
	"context"
	"os/exec"
	"time"

	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
)

// watchExit blocks until the child process exits, signals exited for
// any concurrent Stop waiting on it, then runs the exit handling and
// restart policy for its slot.
func (s *Supervisor) watchExit(id string, cmd *exec.Cmd, exited chan struct{}) {
	_ = cmd.Wait()
	close(exited)
	s.onWorkerExit(id)
}

func (s *Supervisor) onWorkerExit(id string) {
	w := s.workerOrNil(id)
	if w == nil {
		return
	}

	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]*pendingCorrelation)
	w.cmd = nil
	w.conn = nil
	w.state = ipc.StateStopped
	w.mu.Unlock()

	for _, corr := range pending {
		corr.timer.Stop()
		corr.resultCh <- Result{Err: ErrWorkerExited}
	}

	s.mu.RLock()
	stopping := s.stopping
	s.mu.RUnlock()
	if stopping {
		return
	}

	now := time.Now()
	w.mu.Lock()
	w.restartTimes = trimRestartWindow(append(w.restartTimes, now), s.cfg.RestartWindow, now)
	attempts := len(w.restartTimes)
	w.mu.Unlock()

	if attempts > s.cfg.MaxRestartAttempts {
		w.mu.Lock()
		w.state = ipc.StateCrashed
		w.mu.Unlock()
		s.events.Publish(&events.Event{Type: events.EventWorkerCrash, WorkerID: id})
		s.checkPoolHealth()
		return
	}

	go func() {
		time.Sleep(s.cfg.RestartDelay)
		s.mu.RLock()
		stopping := s.stopping
		s.mu.RUnlock()
		if stopping {
			return
		}
		if err := s.spawn(context.Background(), id); err != nil {
			s.log.Error().Err(err).Str("worker", id).Msg("restart spawn failed")
			return
		}
		w.mu.Lock()
		w.restartCount++
		attempt := w.restartCount
		w.mu.Unlock()
		s.events.Publish(&events.Event{Type: events.EventWorkerRestart, WorkerID: id, Attempt: attempt})
	}()
}

// trimRestartWindow drops restart timestamps older than window relative
// to now, bounding the sliding window the restart policy evaluates.
func trimRestartWindow(times []time.Time, window time.Duration, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// checkPoolHealth emits pool:degraded when fewer than half the slots
// are healthy.
func (s *Supervisor) checkPoolHealth() {
	healthy, total := s.healthyCounts()
	if total > 0 && healthy*2 < total {
		s.events.Publish(&events.Event{Type: events.EventPoolDegraded, Healthy: healthy, Total: total})
	}
}

func (s *Supervisor) healthyCounts() (healthy, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total = len(s.workers)
	for _, w := range s.workers {
		w.mu.Lock()
		if isDispatchable(w.state) {
			healthy++
		}
		w.mu.Unlock()
	}
	return healthy, total
}
