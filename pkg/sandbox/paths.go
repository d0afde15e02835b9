package sandbox

import (
	"path/filepath"
	"strings"
)

// sanitizeGeneral replaces every character outside [A-Za-z0-9._-] with
// an underscore. This is the sandbox's path-traversal defense: every
// slash of a "../" sequence becomes an underscore before reaching
// filepath.Join, so a name cannot reach past its parent. Dots are kept:
// a name of exactly "." or ".." still resolves to the subdirectory
// itself or to the sandbox root.
func sanitizeGeneral(name string) string {
	return sanitize(name, func(r byte) bool {
		return (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
	})
}

// sanitizeSessionID is stricter than sanitizeGeneral: session ids allow
// only [A-Za-z0-9_-], with no dot, so a sanitized session id can never
// contain the literal sequence "..".
func sanitizeSessionID(name string) string {
	return sanitize(name, func(r byte) bool {
		return (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '_' || r == '-'
	})
}

func sanitize(name string, allowed func(byte) bool) string {
	b := []byte(name)
	out := make([]byte, len(b))
	for i, c := range b {
		if allowed(c) {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}

// SessionPath returns the path for a session file under sessions/,
// sanitizing sessionID with the stricter session-id rule.
func (s *Sandbox) SessionPath(sessionID string) string {
	name := sanitizeSessionID(sessionID) + ".json"
	return filepath.Join(s.root, "sessions", name)
}

// StatePath returns the path for a state file under state/.
func (s *Sandbox) StatePath(name string) string {
	return filepath.Join(s.root, "state", sanitizeGeneral(name)+".json")
}

// CachePath returns a sanitized path under cache/.
func (s *Sandbox) CachePath(name string) string {
	return filepath.Join(s.root, "cache", sanitizeGeneral(name))
}

// TempPath returns a sanitized path under temp/.
func (s *Sandbox) TempPath(name string) string {
	return filepath.Join(s.root, "temp", sanitizeGeneral(name))
}

// LogPath returns a sanitized path under logs/, with a .log suffix.
func (s *Sandbox) LogPath(name string) string {
	return filepath.Join(s.root, "logs", sanitizeGeneral(name)+".log")
}

// CredentialPath returns a sanitized path under credentials/.
func (s *Sandbox) CredentialPath(name string) string {
	return filepath.Join(s.root, "credentials", sanitizeGeneral(name))
}

// ConfigPath returns a sanitized path under config/.
func (s *Sandbox) ConfigPath(name string) string {
	return filepath.Join(s.root, "config", sanitizeGeneral(name))
}

// KeysDir returns the keys/ subdirectory.
func (s *Sandbox) KeysDir() string {
	return filepath.Join(s.root, "keys")
}

// underSandbox reports whether path resolves to a location inside the
// sandbox root. Exercised by tests asserting the path-traversal defense
// holds even if a helper's sanitization rule is ever loosened.
func (s *Sandbox) underSandbox(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
