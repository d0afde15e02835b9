package router

import "errors"

// ErrNoWorkersAvailable is returned by Route when the ring has no
// registered workers; Peek reports ok=false instead.
var ErrNoWorkersAvailable = errors.New("router: no workers available")

// ErrUnknownWorker is returned by ForceAssign when the target worker is
// not currently registered.
var ErrUnknownWorker = errors.New("router: unknown worker")
