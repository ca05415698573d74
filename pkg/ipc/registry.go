package ipc

import (
	"strconv"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// HandleInfo describes one live segment handle in this process.
type HandleInfo struct {
	Key      int
	ID       int
	Capacity int
	Owner    bool
}

var (
	liveSegments  = cmap.New[HandleInfo]()
	handleCounter atomic.Uint64
)

// registerSegment records a snapshot of the handle's identity. The registry
// must not keep a reference to the Segment itself: a leaked handle has to
// stay collectable so its finalizer can still dispose the kernel object.
func registerSegment(s *Segment) uint64 {
	id := handleCounter.Add(1)
	liveSegments.Set(strconv.FormatUint(id, 10), HandleInfo{
		Key:      s.key,
		ID:       s.id,
		Capacity: s.capacity,
		Owner:    s.owner,
	})
	return id
}

func unregisterSegment(id uint64) {
	liveSegments.Remove(strconv.FormatUint(id, 10))
}

// LiveHandles reports every segment handle currently open in this process,
// in no particular order. Intended for debugging and operational dashboards;
// it says nothing about handles held by other processes.
func LiveHandles() []HandleInfo {
	out := make([]HandleInfo, 0, liveSegments.Count())
	for _, h := range liveSegments.Items() {
		out = append(out, h)
	}
	return out
}
