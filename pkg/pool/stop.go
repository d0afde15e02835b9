package pool

import (
	"sync"
	"time"

	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
)

// Stop sends a cooperative Shutdown to every live worker, waits for
// each to exit within gracePeriod+1s, then escalates to SIGKILL for any
// stragglers. It marks the pool stopped so in-flight restarts do not
// race a fresh spawn against shutdown.
func (s *Supervisor) Stop(gracePeriod time.Duration) {
	started := time.Now()

	s.mu.Lock()
	s.stopping = true
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			s.stopWorker(w, gracePeriod)
		}(w)
	}
	wg.Wait()

	s.mu.Lock()
	s.workers = make(map[string]*worker)
	s.mu.Unlock()

	s.events.Publish(&events.Event{Type: events.EventPoolStopped, Duration: time.Since(started)})
	s.events.Stop()
}

func (s *Supervisor) stopWorker(w *worker, gracePeriod time.Duration) {
	w.mu.Lock()
	conn := w.conn
	cmd := w.cmd
	exited := w.exited
	w.mu.Unlock()

	if conn == nil || cmd == nil || cmd.Process == nil || exited == nil {
		return
	}

	_ = conn.Send(ipc.TypeShutdown, ipc.ShutdownPayload{GracePeriodMs: gracePeriod.Milliseconds()})

	select {
	case <-exited:
	case <-time.After(gracePeriod + time.Second):
		_ = cmd.Process.Kill()
		<-exited
	}
}
