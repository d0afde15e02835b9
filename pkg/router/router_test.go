package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(workers ...string) *Router {
	r := New(150)
	for _, w := range workers {
		r.AddWorker(w)
	}
	return r
}

func TestRouteIsSticky(t *testing.T) {
	r := newTestRouter("w0", "w1", "w2")

	first, err := r.Route("user-a")
	require.NoError(t, err)
	assert.True(t, first.IsNewAssignment)

	for i := 0; i < 10; i++ {
		again, err := r.Route("user-a")
		require.NoError(t, err)
		assert.Equal(t, first.WorkerID, again.WorkerID)
		assert.False(t, again.IsNewAssignment)
	}
}

func TestRouteNoWorkersAvailable(t *testing.T) {
	r := New(150)
	_, err := r.Route("user-a")
	assert.ErrorIs(t, err, ErrNoWorkersAvailable)
}

func TestAddWorkerDoesNotDisturbExistingAssignments(t *testing.T) {
	r := newTestRouter("w0", "w1")

	assignments := make(map[string]string)
	for i := 0; i < 50; i++ {
		userID := fmt.Sprintf("user-%d", i)
		a, err := r.Route(userID)
		require.NoError(t, err)
		assignments[userID] = a.WorkerID
	}

	r.AddWorker("w2")

	for userID, workerID := range assignments {
		a, err := r.Route(userID)
		require.NoError(t, err)
		assert.Equal(t, workerID, a.WorkerID)
		assert.False(t, a.IsNewAssignment)
	}
}

func TestRemoveWorkerPurgesCacheAndReroutesElsewhere(t *testing.T) {
	r := newTestRouter("w0", "w1", "w2")

	assigned := make(map[string]string)
	for i := 0; i < 100; i++ {
		userID := fmt.Sprintf("user-%d", i)
		a, err := r.Route(userID)
		require.NoError(t, err)
		assigned[userID] = a.WorkerID
	}

	r.RemoveWorker("w1")
	assert.Equal(t, 2, len(r.Workers()))

	for userID, prevWorker := range assigned {
		if prevWorker != "w1" {
			continue
		}
		a, err := r.Route(userID)
		require.NoError(t, err)
		assert.NotEqual(t, "w1", a.WorkerID)
	}
}

func TestAddThenRemoveRestoresRingAndWorkerSet(t *testing.T) {
	r := newTestRouter("w0", "w1")
	before := r.ExportState()

	r.AddWorker("w2")
	r.RemoveWorker("w2")

	after := r.ExportState()
	assert.ElementsMatch(t, before.Workers, after.Workers)
}

func TestPeekDoesNotMutateCache(t *testing.T) {
	r := newTestRouter("w0", "w1")

	sizeBefore := r.CacheSize()
	for i := 0; i < 20; i++ {
		_, ok := r.Peek(fmt.Sprintf("user-%d", i))
		require.True(t, ok)
	}
	assert.Equal(t, sizeBefore, r.CacheSize())
}

func TestForceAssignUnknownWorker(t *testing.T) {
	r := newTestRouter("w0")
	err := r.ForceAssign("user-a", "ghost")
	assert.ErrorIs(t, err, ErrUnknownWorker)
}

func TestForceAssignOverridesRingLookup(t *testing.T) {
	r := newTestRouter("w0", "w1")

	require.NoError(t, r.ForceAssign("user-a", "w0"))
	a, err := r.Route("user-a")
	require.NoError(t, err)
	assert.Equal(t, "w0", a.WorkerID)
	assert.False(t, a.IsNewAssignment)
}

func TestClearAssignmentAndClearCache(t *testing.T) {
	r := newTestRouter("w0")
	_, err := r.Route("user-a")
	require.NoError(t, err)
	_, err = r.Route("user-b")
	require.NoError(t, err)
	require.Equal(t, 2, r.CacheSize())

	r.ClearAssignment("user-a")
	assert.Equal(t, 1, r.CacheSize())

	r.ClearCache()
	assert.Equal(t, 0, r.CacheSize())
}

func TestExportImportRoundTrip(t *testing.T) {
	r := newTestRouter("w0", "w1", "w2")
	for i := 0; i < 30; i++ {
		_, err := r.Route(fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
	}

	state := r.ExportState()
	restored := FromState(state)

	assert.ElementsMatch(t, r.Workers(), restored.Workers())
	assert.Equal(t, r.CacheSize(), restored.CacheSize())

	for i := 0; i < 30; i++ {
		userID := fmt.Sprintf("user-%d", i)
		want, err := r.Route(userID)
		require.NoError(t, err)
		got, err := restored.Route(userID)
		require.NoError(t, err)
		assert.Equal(t, want.WorkerID, got.WorkerID)
	}
}

func TestFromStateDropsAssignmentsForAbsentWorkers(t *testing.T) {
	state := State{
		Workers: []string{"w0"},
		Assignments: []Entry{
			{UserID: "user-a", WorkerID: "w0"},
			{UserID: "user-b", WorkerID: "w-ghost"},
		},
		VirtualNodes: 150,
	}

	restored := FromState(state)
	assert.Equal(t, 1, restored.CacheSize())
}

func TestDistributionAcrossFourWorkers(t *testing.T) {
	r := newTestRouter("w0", "w1", "w2", "w3")

	counts := make(map[string]int)
	for i := 0; i < 1000; i++ {
		a, err := r.Route(fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		counts[a.WorkerID]++
	}

	assert.Len(t, counts, 4)
	for workerID, count := range counts {
		assert.GreaterOrEqualf(t, count, 51, "worker %s under-loaded: %d", workerID, count)
		assert.LessOrEqualf(t, count, 499, "worker %s over-loaded: %d", workerID, count)
	}
}
