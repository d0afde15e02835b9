package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/moltpool/pkg/ipc"
	"github.com/cuemby/moltpool/pkg/workerproc"
)

// sessionEntry is the on-disk shape of one sessions/<id>.json file.
type sessionEntry struct {
	Value json.RawMessage `json:"value"`
}

// newHandler builds the request handler this worker dispatches to. It
// closes over rt rather than holding its own sandbox reference, since
// the sandbox only exists after boot completes.
func newHandler(rt **workerproc.Runtime) workerproc.Handler {
	return func(ctx context.Context, req ipc.Request) (any, error) {
		switch req.Type {
		case ipc.RequestSession:
			return handleSession(*rt, req)
		case ipc.RequestHealthCheck:
			return map[string]bool{"healthy": true}, nil
		case ipc.RequestAgentMessage, ipc.RequestAgentCommand:
			return handleAgent(req)
		default:
			return nil, fmt.Errorf("unsupported request type %q", req.Type)
		}
	}
}

// handleAgent is a placeholder for the embedder's own agent logic; this
// binary only demonstrates the pool/sandbox/IPC plumbing, so it echoes
// the request payload back under an "echo" key.
func handleAgent(req ipc.Request) (any, error) {
	return map[string]json.RawMessage{
		"echo": req.Payload,
	}, nil
}

func handleSession(rt *workerproc.Runtime, req ipc.Request) (any, error) {
	sb := rt.Sandbox()
	if sb == nil {
		return nil, fmt.Errorf("sandbox not initialized")
	}
	path := sb.SessionPath(req.SessionID)

	switch req.SessionOp {
	case ipc.SessionGet:
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %q not found", req.SessionID)
		}
		if err != nil {
			return nil, err
		}
		var entry sessionEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, err
		}
		return entry.Value, nil

	case ipc.SessionSet:
		entry := sessionEntry{Value: req.Payload}
		data, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil

	case ipc.SessionDelete:
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil

	case ipc.SessionList:
		// Underspecified upstream: always returns an empty result.
		return []string{}, nil

	default:
		return nil, fmt.Errorf("unsupported session op %q", req.SessionOp)
	}
}
