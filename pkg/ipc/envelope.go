// Package ipc defines the tagged message envelopes exchanged between
// the supervisor and a worker child process over a framed channel, one
// stream per child. Every envelope carries a type tag and a
// monotonic-millisecond send timestamp; the per-type payload fields are
// declared in messages.go.
package ipc

import (
	"encoding/json"
	"time"
)

// Type enumerates every envelope type in either direction. Declaring
// both directions in one sum type lets a single Decode path dispatch on
// Type without the caller needing to know which side sent it.
type Type string

const (
	// Supervisor → worker.
	TypeInit        Type = "Init"
	TypeRequest     Type = "Request"
	TypeHealthCheck Type = "HealthCheck"
	TypeShutdown    Type = "Shutdown"
	TypeKill        Type = "Kill"

	// Worker → supervisor.
	TypeReady     Type = "Ready"
	TypeResponse  Type = "Response"
	TypeHealth    Type = "Health"
	TypeEvent     Type = "Event"
	TypeError     Type = "Error"
	TypeHeartbeat Type = "Heartbeat"
)

// Envelope is the wire shape of every message: `{ type, ts, ...payload }`.
// Payload is carried as raw JSON and decoded into the concrete type
// matching Type by the caller, keeping the core's parsing boundary
// narrow.
type Envelope struct {
	Type    Type            `json:"type"`
	Ts      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// clockBase anchors nowMillis: later readings add the monotonic time
// elapsed since it, so ts never goes backwards when the wall clock is
// stepped.
var clockBase = time.Now()

// nowMillis stamps ts at send time, in Unix milliseconds.
func nowMillis() int64 {
	return clockBase.Add(time.Since(clockBase)).UnixMilli()
}
