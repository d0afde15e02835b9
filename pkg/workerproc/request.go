package workerproc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cuemby/moltpool/pkg/ipc"
)

// handleRequest implements the per-request lifecycle: register in
// activeRequests, mark Busy, touch the sandbox, dispatch to handler,
// emit a Response, then evaluate the post-request limits.
func (r *Runtime) handleRequest(ctx context.Context, req ipc.Request) {
	defer r.recoverNonFatal()
	r.beginRequest(req.RequestID)
	defer r.endRequest(req.RequestID)

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.respondFailure(req.RequestID, "request cancelled", "REQUEST_CANCELLED", 0)
			return
		}
	}

	r.touchSandbox()

	start := time.Now()
	payload, err := r.handler(ctx, req)
	duration := time.Since(start)

	if err != nil {
		r.mu.Lock()
		r.errorCount++
		r.mu.Unlock()
		r.respondFailure(req.RequestID, err.Error(), "HANDLER_ERROR", duration)
		return
	}
	r.respondSuccess(req.RequestID, payload, duration)
}

func (r *Runtime) touchSandbox() {
	r.mu.Lock()
	sb := r.sandbox
	r.mu.Unlock()
	if sb != nil {
		_ = sb.Touch()
	}
}

func (r *Runtime) beginRequest(requestID string) {
	r.mu.Lock()
	r.active[requestID] = activeRequest{startedAt: time.Now()}
	r.state = ipc.StateBusy
	r.mu.Unlock()
}

func (r *Runtime) endRequest(requestID string) {
	r.mu.Lock()
	delete(r.active, requestID)
	r.requestsProcessed++
	empty := len(r.active) == 0
	if empty {
		r.state = ipc.StateReady
	}
	processed := r.requestsProcessed
	r.mu.Unlock()

	r.checkLimits(processed)
}

func (r *Runtime) respondSuccess(requestID string, payload any, duration time.Duration) {
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	_ = r.conn.Send(ipc.TypeResponse, ipc.Response{
		RequestID:  requestID,
		Success:    true,
		Payload:    raw,
		DurationMs: duration.Milliseconds(),
	})
}

func (r *Runtime) respondFailure(requestID, errMsg, code string, duration time.Duration) {
	_ = r.conn.Send(ipc.TypeResponse, ipc.Response{
		RequestID:  requestID,
		Success:    false,
		Error:      errMsg,
		ErrorCode:  code,
		DurationMs: duration.Milliseconds(),
	})
}

// checkLimits evaluates the post-request limit checks: memory ceiling
// and request-count ceiling each emit a non-fatal Event. The worker
// never self-terminates on these; restarting the slot is the
// supervisor's call.
func (r *Runtime) checkLimits(processed int64) {
	r.mu.Lock()
	maxMemory := r.config.MaxMemoryBytes
	maxRequests := r.config.MaxRequests
	r.mu.Unlock()

	usage := currentMemoryBytes()
	if maxMemory > 0 && usage > maxMemory {
		_ = r.conn.Send(ipc.TypeEvent, ipc.EventPayload{
			Type:   "limit",
			Reason: ipc.EventReasonMemoryLimit,
			Usage:  usage,
		})
	}
	if maxRequests > 0 && processed >= maxRequests {
		_ = r.conn.Send(ipc.TypeEvent, ipc.EventPayload{
			Type:   "limit",
			Reason: ipc.EventReasonRequestLimit,
			Usage:  processed,
		})
	}
}
