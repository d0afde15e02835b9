package sandbox

import "path/filepath"

// Environment returns the variables merged into a worker's environment:
// the supervisor appends them to the child's environment when forking
// it, and the worker sets them again on boot. Beyond exposing the
// sandbox's own paths under agreed names, it overrides the XDG
// base-directory variables, TMPDIR, and an app-specific credentials
// directory pointer so that any downstream library honoring those
// variables is automatically re-rooted inside the sandbox.
func (s *Sandbox) Environment() map[string]string {
	return map[string]string{
		"MOLTPOOL_WORKER_ID":       s.workerID,
		"MOLTPOOL_SANDBOX_ROOT":    s.root,
		"MOLTPOOL_SESSIONS_DIR":    filepath.Join(s.root, "sessions"),
		"MOLTPOOL_STATE_DIR":       filepath.Join(s.root, "state"),
		"MOLTPOOL_CACHE_DIR":       filepath.Join(s.root, "cache"),
		"MOLTPOOL_TEMP_DIR":        filepath.Join(s.root, "temp"),
		"MOLTPOOL_LOGS_DIR":        filepath.Join(s.root, "logs"),
		"MOLTPOOL_CREDENTIALS_DIR": filepath.Join(s.root, "credentials"),
		"MOLTPOOL_CONFIG_DIR":      filepath.Join(s.root, "config"),
		"MOLTPOOL_KEYS_DIR":        filepath.Join(s.root, "keys"),

		// XDG base directory overrides: any library that respects these
		// reads and writes exclusively inside the sandbox.
		"XDG_CONFIG_HOME": filepath.Join(s.root, "config"),
		"XDG_CACHE_HOME":  filepath.Join(s.root, "cache"),
		"XDG_DATA_HOME":   filepath.Join(s.root, "state"),
		"XDG_STATE_HOME":  filepath.Join(s.root, "state"),
		"TMPDIR":          filepath.Join(s.root, "temp"),

		// App-specific OAuth/credentials directory pointer — never
		// inherited from the host; see pkg/pool/spawn.go for the
		// corresponding env-filtering side of this contract.
		"MOLTPOOL_OAUTH_DIR": filepath.Join(s.root, "credentials"),
	}
}
