package ipc

import (
	"math"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
)

func TestCanAllocateSegment(t *testing.T) {
	assert.True(t, canAllocateSegment(1))
	assert.True(t, canAllocateSegment(4096))

	if _, err := mem.VirtualMemory(); err != nil {
		t.Skip("memory probe unavailable; oversized requests are waved through")
	}
	assert.False(t, canAllocateSegment(math.MaxUint64))
}
