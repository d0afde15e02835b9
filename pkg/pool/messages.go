package pool

import (
	"time"

	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/log"
)

// dispatchInbox is the per-worker goroutine draining its Conn's Inbox
// and applying the worker-message handling rules. It runs until the
// Inbox channel closes (on the decode loop's terminal read error,
// typically the child's stdout closing at exit).
func (s *Supervisor) dispatchInbox(id string, conn *ipc.Conn) {
	for env := range conn.Inbox() {
		s.handleWorkerMessage(id, env)
	}
}

func (s *Supervisor) handleWorkerMessage(id string, env ipc.Envelope) {
	s.mu.RLock()
	w, ok := s.workers[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	switch env.Type {
	case ipc.TypeReady:
		w.mu.Lock()
		w.state = ipc.StateReady
		w.mu.Unlock()
		s.events.Publish(&events.Event{Type: events.EventWorkerReady, WorkerID: id})

	case ipc.TypeResponse:
		var resp ipc.Response
		if err := ipc.Decode(env, &resp); err != nil {
			log.WithWorkerID(id).Error().Err(err).Msg("failed to decode Response")
			return
		}
		s.resolvePending(w, resp)

	case ipc.TypeHealth:
		var health ipc.Health
		if err := ipc.Decode(env, &health); err != nil {
			log.WithWorkerID(id).Error().Err(err).Msg("failed to decode Health")
			return
		}
		w.mu.Lock()
		w.health = health
		w.state = health.State
		w.mu.Unlock()

	case ipc.TypeHeartbeat:
		var hb ipc.HeartbeatPayload
		if err := ipc.Decode(env, &hb); err != nil {
			log.WithWorkerID(id).Error().Err(err).Msg("failed to decode Heartbeat")
			return
		}
		w.mu.Lock()
		w.health.State = hb.State
		w.health.ActiveRequests = hb.ActiveRequests
		w.health.MemoryBytes = hb.MemoryBytes
		w.health.RequestsProcessed = hb.RequestsProcessed
		w.health.LastHeartbeat = time.Now().UnixMilli()
		w.mu.Unlock()

	case ipc.TypeError:
		var payload ipc.ErrorPayload
		if err := ipc.Decode(env, &payload); err != nil {
			return
		}
		s.log.Error().Str("worker", id).Str("code", payload.Code).Bool("fatal", payload.Fatal).Msg(payload.Message)
		if payload.Fatal {
			w.mu.Lock()
			w.state = ipc.StateCrashed
			w.mu.Unlock()
		}

	case ipc.TypeEvent:
		var payload ipc.EventPayload
		if err := ipc.Decode(env, &payload); err != nil {
			return
		}
		if payload.Type == "stopped" {
			w.mu.Lock()
			w.state = ipc.StateStopped
			w.mu.Unlock()
			s.events.Publish(&events.Event{Type: events.EventWorkerStopped, WorkerID: id})
		}

	default:
		s.log.Warn().Str("worker", id).Str("type", string(env.Type)).Msg("ignoring unknown envelope type")
	}
}

// resolvePending looks up the pending correlation for resp.RequestID,
// clears its timer, and resolves or rejects it. Unknown request ids are
// logged and dropped, matching a response that arrived after its
// timeout already fired.
func (s *Supervisor) resolvePending(w *worker, resp ipc.Response) {
	w.mu.Lock()
	corr, ok := w.pending[resp.RequestID]
	if ok {
		delete(w.pending, resp.RequestID)
	}
	w.mu.Unlock()

	if !ok {
		log.WithRequestID(resp.RequestID).Warn().Str("worker", w.id).Msg("response for unknown or already-settled request")
		return
	}
	corr.timer.Stop()

	if resp.Success {
		corr.resultCh <- Result{Payload: resp.Payload}
		s.events.Publish(&events.Event{Type: events.EventRequestComplete, RequestID: resp.RequestID, Duration: time.Duration(resp.DurationMs) * time.Millisecond})
		return
	}
	corr.resultCh <- Result{Err: responseError(resp)}
	s.events.Publish(&events.Event{Type: events.EventRequestFailed, RequestID: resp.RequestID, Error: resp.Error})
}
