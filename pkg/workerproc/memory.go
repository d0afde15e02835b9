package workerproc

import "runtime"

// currentMemoryBytes reports the process's current heap usage. It is
// the basis for the memory_limit check and the value surfaced in
// health/heartbeat payloads.
func currentMemoryBytes() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}
