package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesSubdirsAndMetadata(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	for _, d := range subdirs {
		assert.DirExists(t, filepath.Join(sb.Root(), d))
	}

	meta, ok := sb.Metadata()
	require.True(t, ok)
	assert.Equal(t, "worker-0", meta.WorkerID)
	assert.NotEmpty(t, meta.KeyFingerprint)
}

func TestInitIsIdempotentAndPreservesCreatedAt(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	first, ok := sb.Metadata()
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, sb.Init())

	second, ok := sb.Metadata()
	require.True(t, ok)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.LastAccessed.After(first.LastAccessed) || second.LastAccessed.Equal(first.LastAccessed))
}

func TestInstanceKeyPersistsAcrossReinit(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())
	id1, err := sb.InstanceID()
	require.NoError(t, err)
	meta1, _ := sb.Metadata()

	sb2 := New(base, "worker-0")
	require.NoError(t, sb2.Init())
	id2, err := sb2.InstanceID()
	require.NoError(t, err)
	meta2, _ := sb2.Metadata()

	assert.Equal(t, id1, id2)
	assert.Equal(t, meta1.KeyFingerprint, meta2.KeyFingerprint)
}

func TestSessionPathResolvesUnderSandboxDespiteTraversal(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	path := sb.SessionPath("../../../etc/passwd")
	assert.True(t, sb.underSandbox(path), "path %q escaped sandbox root %q", path, sb.Root())
	assert.Equal(t, filepath.Join(sb.Root(), "sessions"), filepath.Dir(path))
}

func TestSanitizeGeneralStripsTraversalAndSeparators(t *testing.T) {
	got := sanitizeGeneral("../../secret")
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, "..")
}

func TestSanitizeSessionIDForbidsDots(t *testing.T) {
	got := sanitizeSessionID("a..b/c")
	assert.NotContains(t, got, ".")
	assert.NotContains(t, got, "/")
}

func TestReadStateMissingReturnsFalseNoError(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	var out map[string]string
	ok, err := sb.ReadState("nonexistent", &out)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestWriteStateThenReadStateRoundTrips(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	type session struct {
		UserID string `json:"userId"`
	}
	require.NoError(t, sb.WriteState("session-a", session{UserID: "user-a"}))

	var out session
	ok, err := sb.ReadState("session-a", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user-a", out.UserID)
}

func TestClearTempRecreatesEmptyDir(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	tmpFile := sb.TempPath("scratch")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0600))

	require.NoError(t, sb.ClearTemp())
	assert.DirExists(t, filepath.Join(sb.Root(), "temp"))
	assert.NoFileExists(t, tmpFile)
}

func TestEnvironmentOverridesXDGUnderSandboxRoot(t *testing.T) {
	base := t.TempDir()
	sb := New(base, "worker-0")
	require.NoError(t, sb.Init())

	env := sb.Environment()
	assert.Equal(t, "worker-0", env["MOLTPOOL_WORKER_ID"])
	for _, key := range []string{"XDG_CONFIG_HOME", "XDG_CACHE_HOME", "XDG_DATA_HOME", "TMPDIR", "MOLTPOOL_OAUTH_DIR"} {
		assert.True(t, sb.underSandbox(env[key]), "%s = %q not under sandbox root", key, env[key])
	}
}

func TestManagerCleanupDestroysStaleSandboxes(t *testing.T) {
	base := t.TempDir()
	mgr, err := NewManager(base)
	require.NoError(t, err)

	stale := mgr.For("worker-stale")
	require.NoError(t, stale.Init())
	fresh := mgr.For("worker-fresh")
	require.NoError(t, fresh.Init())

	meta, _ := stale.Metadata()
	meta.LastAccessed = time.Now().Add(-48 * time.Hour)
	require.NoError(t, stale.writeMetadata(meta))

	removed, err := mgr.Cleanup(24*time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"worker-stale"}, removed)
	assert.NoDirExists(t, stale.Root())
	assert.DirExists(t, fresh.Root())
}

func TestManagerCleanupSkipsKept(t *testing.T) {
	base := t.TempDir()
	mgr, err := NewManager(base)
	require.NoError(t, err)

	sb := mgr.For("worker-0")
	require.NoError(t, sb.Init())
	meta, _ := sb.Metadata()
	meta.LastAccessed = time.Now().Add(-48 * time.Hour)
	require.NoError(t, sb.writeMetadata(meta))

	removed, err := mgr.Cleanup(24*time.Hour, map[string]bool{"worker-0": true})
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.DirExists(t, sb.Root())
}
