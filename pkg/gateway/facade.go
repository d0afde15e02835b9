// Package gateway is the thin adapter external request ingresses talk
// to: it extracts a user id, maps an external request type onto the
// worker IPC vocabulary, stamps a fresh request id, and translates
// whatever the supervisor returns into a success/failure envelope.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/moltpool/pkg/config"
	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/log"
	"github.com/cuemby/moltpool/pkg/pool"
)

// GatewayRequest is the shape an external ingress (HTTP handler, Discord
// bot, CLI, ...) hands the facade. UserID and SessionKey are both
// optional; Type is a loose string mapped onto ipc.RequestType.
type GatewayRequest struct {
	UserID     string          `json:"userId,omitempty"`
	SessionKey string          `json:"sessionKey,omitempty"`
	Type       string          `json:"type,omitempty"`
	SessionOp  ipc.SessionOp   `json:"sessionOp,omitempty"`
	SessionID  string          `json:"sessionId,omitempty"`
	Payload    []byte          `json:"payload,omitempty"`
	TimeoutMs  int64           `json:"timeoutMs,omitempty"`
}

// GatewayResponse is what Route always returns: a success payload, or a
// message describing why the supervisor could not satisfy the request.
type GatewayResponse struct {
	Success bool   `json:"success"`
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Facade is the externally-facing handle: one Supervisor underneath,
// started and stopped exactly once.
type Facade struct {
	sup *pool.Supervisor
}

// New constructs a Facade that will spawn binPath (with args) as each
// worker child once Start is called.
func New(cfg config.Config, binPath string, binArgs ...string) (*Facade, error) {
	sup, err := pool.New(cfg, binPath, binArgs...)
	if err != nil {
		return nil, err
	}
	return &Facade{sup: sup}, nil
}

// Start brings every worker slot up to Ready.
func (f *Facade) Start(ctx context.Context) error {
	return f.sup.Start(ctx)
}

// Stop drains every worker within gracePeriod, escalating to SIGKILL
// past gracePeriod+1s.
func (f *Facade) Stop(gracePeriod time.Duration) {
	f.sup.Stop(gracePeriod)
}

// GetWorkerForUser returns the ring lookup for userID without
// dispatching a request; see pool.Supervisor.GetWorkerForUser.
func (f *Facade) GetWorkerForUser(userID string) (string, bool) {
	return f.sup.GetWorkerForUser(userID)
}

// GetStatus returns the aggregated pool snapshot.
func (f *Facade) GetStatus() pool.Status {
	return f.sup.GetStatus()
}

// Events returns the underlying supervisor's event broker, for
// observers such as metrics.Subscribe.
func (f *Facade) Events() *events.Broker {
	return f.sup.Events()
}

// Supervisor exposes the underlying pool.Supervisor for callers that
// need it directly, such as metrics.NewCollector.
func (f *Facade) Supervisor() *pool.Supervisor {
	return f.sup
}

// Route extracts a user id, maps req.Type onto the worker IPC
// vocabulary, stamps a fresh request id, dispatches through the
// supervisor, and translates any error into a GatewayResponse rather
// than propagating it — Route has no error result and always returns a
// populated GatewayResponse.
func (f *Facade) Route(ctx context.Context, req GatewayRequest) GatewayResponse {
	userID := extractUserID(req)
	ipcReq := ipc.Request{
		RequestID: uuid.NewString(),
		UserID:    userID,
		Type:      mapRequestType(req.Type),
		SessionOp: req.SessionOp,
		SessionID: req.SessionID,
		Payload:   req.Payload,
		TimeoutMs: req.TimeoutMs,
	}

	result, err := f.sup.SendRequest(ctx, ipcReq)
	if err != nil {
		log.WithUserID(userID).Error().Err(err).Str("request_id", ipcReq.RequestID).Msg("request failed")
		return GatewayResponse{Success: false, Error: err.Error()}
	}
	return GatewayResponse{Success: true, Payload: result.Payload}
}

// extractUserID applies the default (overridable by callers who
// construct GatewayRequest themselves) priority order: explicit id,
// session key, otherwise a freshly minted anonymous id that never
// repeats and is therefore never sticky across calls.
func extractUserID(req GatewayRequest) string {
	if req.UserID != "" {
		return req.UserID
	}
	if req.SessionKey != "" {
		return req.SessionKey
	}
	return "anon:" + uuid.NewString()
}

// mapRequestType maps the external, loosely-typed request kind onto the
// worker IPC vocabulary; anything unrecognized defaults to AgentMessage.
func mapRequestType(t string) ipc.RequestType {
	switch t {
	case "agent":
		return ipc.RequestAgentMessage
	case "command":
		return ipc.RequestAgentCommand
	case "session":
		return ipc.RequestSession
	default:
		return ipc.RequestAgentMessage
	}
}
