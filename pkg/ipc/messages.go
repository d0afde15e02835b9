package ipc

import "encoding/json"

// WorkerConfig is the payload of an Init envelope: everything the child
// needs to construct its sandbox and enforce its policy knobs.
type WorkerConfig struct {
	WorkerID            string `json:"workerId"`
	SandboxRoot         string `json:"sandboxRoot"`
	InstanceID          string `json:"instanceId"`
	KeyFingerprint      string `json:"keyFingerprint"`
	MaxConcurrent       int    `json:"maxConcurrent"`
	RequestTimeoutMs    int64  `json:"requestTimeoutMs"`
	HeartbeatIntervalMs int64  `json:"heartbeatIntervalMs"`
	MaxMemoryBytes      int64  `json:"maxMemoryBytes"`
	MaxRequests         int64  `json:"maxRequests"`
}

// RequestType enumerates the worker request kinds dispatched inside
// the child runtime.
type RequestType string

const (
	RequestAgentMessage  RequestType = "AgentMessage"
	RequestAgentCommand  RequestType = "AgentCommand"
	RequestSession       RequestType = "Session"
	RequestHealthCheck   RequestType = "HealthCheck"
	RequestShutdown      RequestType = "Shutdown"
)

// SessionOp enumerates the sub-operations of a RequestSession.
type SessionOp string

const (
	SessionGet    SessionOp = "get"
	SessionSet    SessionOp = "set"
	SessionDelete SessionOp = "delete"
	SessionList   SessionOp = "list"
)

// Request is the payload of a supervisor→worker Request envelope. Payload
// is opaque structured data interpreted only by the application handler
// for Type; the core never inspects it beyond routing on Type/SessionOp.
type Request struct {
	RequestID string          `json:"requestId"`
	UserID    string          `json:"userId"`
	Type      RequestType     `json:"type"`
	SessionOp SessionOp       `json:"sessionOp,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	TimeoutMs int64           `json:"timeoutMs,omitempty"`
}

// Response is the payload of a worker→supervisor Response envelope.
type Response struct {
	RequestID  string          `json:"requestId"`
	Success    bool            `json:"success"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorCode  string          `json:"errorCode,omitempty"`
	DurationMs int64           `json:"durationMs"`
}

// LifecycleState is one of the six worker-slot states.
type LifecycleState string

const (
	StateStarting LifecycleState = "Starting"
	StateReady    LifecycleState = "Ready"
	StateBusy     LifecycleState = "Busy"
	StateStopping LifecycleState = "Stopping"
	StateStopped  LifecycleState = "Stopped"
	StateCrashed  LifecycleState = "Crashed"
)

// Health is the payload of a worker→supervisor Health envelope: the
// child's full self-reported snapshot.
type Health struct {
	Pid              int            `json:"pid"`
	State            LifecycleState `json:"state"`
	MemoryBytes      int64          `json:"memoryBytes"`
	RequestsProcessed int64         `json:"requestsProcessed"`
	ActiveRequests   int            `json:"activeRequests"`
	LastHeartbeat    int64          `json:"lastHeartbeat"`
	UptimeMs         int64          `json:"uptimeMs"`
	ErrorCount       int64          `json:"errorCount"`
	CPUUsage         float64        `json:"cpuUsage"`
}

// HeartbeatPayload is the payload of a worker→supervisor Heartbeat
// envelope: a partial Health snapshot sent on every heartbeatInterval.
type HeartbeatPayload struct {
	WorkerID          string         `json:"workerId"`
	State             LifecycleState `json:"state"`
	ActiveRequests    int            `json:"activeRequests"`
	MemoryBytes       int64          `json:"memoryBytes"`
	RequestsProcessed int64          `json:"requestsProcessed"`
}

// ReadyPayload is the payload of a worker→supervisor Ready envelope.
type ReadyPayload struct {
	WorkerID string `json:"workerId"`
}

// EventReason enumerates the reasons a worker emits a limit Event.
type EventReason string

const (
	EventReasonMemoryLimit  EventReason = "memory_limit"
	EventReasonRequestLimit EventReason = "request_limit"
	EventReasonStopped      EventReason = "stopped"
)

// EventPayload is the payload of a worker→supervisor Event envelope.
type EventPayload struct {
	Type   string      `json:"type"`
	Reason EventReason `json:"reason,omitempty"`
	Usage  int64       `json:"usage,omitempty"`
}

// ErrorPayload is the payload of a worker→supervisor Error envelope.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Fatal   bool   `json:"fatal"`
}

// ShutdownPayload is the payload of a supervisor→worker Shutdown envelope.
type ShutdownPayload struct {
	GracePeriodMs int64 `json:"gracePeriodMs"`
}
