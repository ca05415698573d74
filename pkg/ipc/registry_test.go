package ipc

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveHandlesTrackSegments(t *testing.T) {
	requireSysvIPC(t)

	key := testKey()
	owner, err := CreateSegment(key, 4096)
	require.NoError(t, err)
	peer, err := AttachSegment(key)
	require.NoError(t, err)

	var owners, peers int
	for _, h := range LiveHandles() {
		if h.Key != key {
			continue
		}
		assert.Equal(t, 4096, h.Capacity)
		if h.Owner {
			owners++
		} else {
			peers++
		}
	}
	assert.Equal(t, 1, owners)
	assert.Equal(t, 1, peers)

	peer.Dispose()
	owner.Dispose()
	for _, h := range LiveHandles() {
		assert.NotEqual(t, key, h.Key, "disposed handle still registered")
	}
}

// leakOwningSegment drops the only reference to a freshly created owner so
// the collector can reclaim it.
func leakOwningSegment(t *testing.T, key int) {
	t.Helper()
	_, err := CreateSegment(key, 4096)
	require.NoError(t, err)
}

func TestFinalizerDisposesLeakedOwner(t *testing.T) {
	requireSysvIPC(t)

	key := testKey()
	leakOwningSegment(t, key)

	// The finalizer runs on a collector goroutine, so poll until the kernel
	// object is gone.
	require.Eventually(t, func() bool {
		runtime.GC()
		seg, err := AttachSegment(key)
		if err == nil {
			seg.Dispose()
			return false
		}
		return errors.Is(err, ErrNotFound)
	}, 5*time.Second, 20*time.Millisecond, "leaked owner was never disposed")

	for _, h := range LiveHandles() {
		assert.NotEqual(t, key, h.Key, "reclaimed handle still registered")
	}
}
