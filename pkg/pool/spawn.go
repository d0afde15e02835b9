package pool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cuemby/moltpool/pkg/events"
	"github.com/cuemby/moltpool/pkg/ipc"
)

// sensitiveExact is the set of variable names the supervisor must strip
// before forking a child, case-insensitively.
var sensitiveExact = map[string]bool{
	"ANTHROPIC_API_KEY":   true,
	"OPENAI_API_KEY":      true,
	"CLAUDE_API_KEY":      true,
	"DISCORD_TOKEN":       true,
	"DISCORD_BOT_TOKEN":   true,
	"TELEGRAM_BOT_TOKEN":  true,
	"SLACK_BOT_TOKEN":     true,
	"SLACK_SIGNING_SECRET": true,
	"GITHUB_TOKEN":        true,
	"GH_TOKEN":            true,
	"NPM_TOKEN":           true,
	"MOLTPOOL_OAUTH_DIR":  true,
}

// sensitiveSuffixes are matched case-insensitively against the full
// variable name.
var sensitiveSuffixes = []string{"_TOKEN", "_SECRET", "_API_KEY", "_PASSWORD", "_PRIVATE_KEY"}

// isSensitive reports whether a parent-environment variable name must
// never reach a child.
func isSensitive(name string) bool {
	upper := strings.ToUpper(name)
	if sensitiveExact[upper] {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// filteredEnviron returns the parent process's environment with every
// sensitive variable removed. The sandbox-provided environment is
// merged on top by the caller.
func filteredEnviron() []string {
	parent := os.Environ()
	kept := make([]string, 0, len(parent))
	for _, kv := range parent {
		name, _, found := strings.Cut(kv, "=")
		if found && isSensitive(name) {
			continue
		}
		kept = append(kept, kv)
	}
	return kept
}

// spawnAndAwaitReady obtains/initializes the slot's sandbox, forks its
// child process, sends Init, and blocks until the slot reaches Ready or
// cfg.StartupTimeout elapses.
func (s *Supervisor) spawnAndAwaitReady(ctx context.Context, id string) error {
	started := time.Now()
	if err := s.spawn(ctx, id); err != nil {
		return fmt.Errorf("pool: failed to spawn %s: %w", id, err)
	}

	deadline := time.Now().Add(s.cfg.StartupTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.workerState(id) == ipc.StateReady {
			s.events.Publish(&events.Event{Type: events.EventWorkerStartup, WorkerID: id, Duration: time.Since(started)})
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pool: %s did not become ready within %s: WorkerStartupTimeout", id, s.cfg.StartupTimeout)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// spawn composes the WorkerConfig, forks the child, attaches message
// handling, and sends Init. It does not wait for Ready.
func (s *Supervisor) spawn(ctx context.Context, id string) error {
	s.mu.RLock()
	w, ok := s.workers[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("pool: unknown slot %s", id)
	}

	if err := w.sandbox.Init(); err != nil {
		return fmt.Errorf("failed to initialize sandbox: %w", err)
	}
	instanceID, err := w.sandbox.InstanceID()
	if err != nil {
		return fmt.Errorf("failed to read instance id: %w", err)
	}
	meta, _ := w.sandbox.Metadata()

	cfg := ipc.WorkerConfig{
		WorkerID:            id,
		SandboxRoot:         w.sandbox.Root(),
		InstanceID:          instanceID,
		KeyFingerprint:      meta.KeyFingerprint,
		MaxConcurrent:       s.cfg.MaxConcurrent,
		RequestTimeoutMs:    s.cfg.RequestTimeout.Milliseconds(),
		HeartbeatIntervalMs: s.cfg.HeartbeatInterval.Milliseconds(),
		MaxMemoryBytes:      s.cfg.MaxMemoryBytes,
		MaxRequests:         s.cfg.MaxRequests,
	}

	cmd := exec.CommandContext(ctx, s.binPath, s.binArgs...)
	cmd.Env = append(filteredEnviron(), envSlice(w.sandbox.Environment())...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start child process: %w", err)
	}

	conn := ipc.NewConn(stdout, stdin)
	exited := make(chan struct{})

	w.mu.Lock()
	w.cmd = cmd
	w.conn = conn
	w.exited = exited
	w.state = ipc.StateStarting
	w.mu.Unlock()

	go s.watchExit(id, cmd, exited)
	go s.dispatchInbox(id, conn)

	return conn.Send(ipc.TypeInit, cfg)
}

func envSlice(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

func (s *Supervisor) workerState(id string) ipc.LifecycleState {
	s.mu.RLock()
	w, ok := s.workers[id]
	s.mu.RUnlock()
	if !ok {
		return ipc.StateStopped
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
