/*
 * Copyright 2026 Shanewas Ahmed
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ipc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"syscall"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shanewas/posix-ipc-go/internal/sysv"
)

const (
	// lengthHeaderSize is the width of the wire format's length prefix. It is
	// a cross-implementation compatibility constant.
	lengthHeaderSize = 4

	// minPlausibleSize is the smallest size recovery result accepted on
	// attach; kernel segments are page-granular, so anything below one page
	// means the introspection call lied.
	minPlausibleSize = 4096

	// fallbackSegmentSize is the conservative oversized capacity assumed when
	// size recovery fails, so reads of any legitimately-sized payload still
	// succeed at the cost of not bounding writes precisely.
	fallbackSegmentSize = 1 << 30
)

// framedRegion is the length-prefixed view over a raw mapping.
// Layout: length 4 byte little endian | payload.
type framedRegion []byte

func (r framedRegion) payloadLength() int32 {
	return int32(binary.LittleEndian.Uint32(r[:lengthHeaderSize]))
}

func (r framedRegion) setPayloadLength(n int32) {
	binary.LittleEndian.PutUint32(r[:lengthHeaderSize], uint32(n))
}

func (r framedRegion) payload(n int32) []byte {
	return r[lengthHeaderSize : lengthHeaderSize+int(n)]
}

// Segment is a process-local handle to one System V shared memory region.
//
// Only the handle that created the kernel object removes it on Dispose;
// attached handles detach their mapping and leave the object intact. Multiple
// handles to the same key share no in-process state: coordination across
// handles and across processes is the external semaphore's job.
type Segment struct {
	mu       sync.Mutex
	key      int
	id       int
	data     framedRegion // live mapping; nil once disposed
	capacity int          // usable bytes as known to this handle
	owner    bool
	disposed bool

	handleID uint64

	tracer     trace.Tracer
	writeBytes metric.Int64Counter
	readBytes  metric.Int64Counter
}

// Option configures optional instrumentation on a segment handle.
type Option func(*segmentOptions)

type segmentOptions struct {
	meter  metric.Meter
	tracer trace.Tracer
}

// WithMeter attaches an OpenTelemetry meter; the handle records written and
// read byte counts through it.
func WithMeter(m metric.Meter) Option {
	return func(o *segmentOptions) { o.meter = m }
}

// WithTracer attaches an OpenTelemetry tracer; Write and Read run inside
// spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *segmentOptions) { o.tracer = t }
}

// CreateSegment allocates a kernel segment of size bytes for key and maps it
// into the process. The returned handle owns the kernel object: its Dispose
// removes the segment. If mapping fails after a successful create, the fresh
// kernel object is removed before the failure is reported.
func CreateSegment(key, size int, opts ...Option) (*Segment, error) {
	if !sysv.Supported() {
		return nil, classify("shm create", sysv.ErrUnsupportedPlatform)
	}
	if size <= 0 {
		return nil, fmt.Errorf("shm create: size %d: %w", size, ErrInvalidArgument)
	}
	if !canAllocateSegment(uint64(size)) {
		return nil, fmt.Errorf("shm create: %d bytes exceed system memory: %w", size, ErrOutOfRange)
	}
	id, err := sysv.ShmCreate(key, size)
	if err != nil {
		return nil, classify("shm create", err)
	}
	data, err := sysv.ShmAttach(id)
	if err != nil {
		// no orphaned kernel object on the failure path
		if rmErr := sysv.ShmRemove(id); rmErr != nil {
			internalLogger.warnf("shm create: removing segment %d after failed attach: %v", id, rmErr)
		}
		return nil, classify("shm map", err)
	}
	s := newSegment(key, id, data, size, true, opts)
	metricSegmentsCreated.Inc()
	return s, nil
}

// AttachSegment maps the existing segment for key without creation rights.
// It fails with ErrNotFound when no such segment exists.
//
// The handle's capacity is recovered from the kernel on a best-effort basis:
// a plausible IPC_STAT result (at least one page, at most the maximum
// representable size) is used exactly, anything else falls back to a 1 GiB
// estimate. The returned handle never owns the kernel object.
func AttachSegment(key int, opts ...Option) (*Segment, error) {
	if !sysv.Supported() {
		return nil, classify("shm attach", sysv.ErrUnsupportedPlatform)
	}
	id, err := sysv.ShmLookup(key)
	if err != nil {
		if errors.Is(err, syscall.ENOENT) {
			return nil, fmt.Errorf("shm attach: segment for key %d does not exist: %w", key, ErrNotFound)
		}
		return nil, classify("shm attach", err)
	}
	data, err := sysv.ShmAttach(id)
	if err != nil {
		return nil, classify("shm map", err)
	}
	s := newSegment(key, id, data, recoverSegmentSize(id), false, opts)
	metricSegmentsAttached.Inc()
	return s, nil
}

// recoverSegmentSize asks the kernel for the segment's true size.
func recoverSegmentSize(id int) int {
	size, err := sysv.ShmSize(id)
	if err == nil && size >= minPlausibleSize && size <= uint64(math.MaxInt) {
		return int(size)
	}
	internalLogger.warnf("shm attach: size recovery for segment %d failed (size=%d err=%v), assuming %d bytes",
		id, size, err, fallbackSegmentSize)
	return fallbackSegmentSize
}

func newSegment(key, id int, data []byte, capacity int, owner bool, opts []Option) *Segment {
	var o segmentOptions
	for _, opt := range opts {
		opt(&o)
	}
	s := &Segment{
		key:      key,
		id:       id,
		data:     data,
		capacity: capacity,
		owner:    owner,
		tracer:   o.tracer,
	}
	if o.meter != nil {
		var err error
		if s.writeBytes, err = o.meter.Int64Counter("posix_ipc.segment.written_bytes"); err != nil {
			internalLogger.warnf("shm: creating write counter: %v", err)
		}
		if s.readBytes, err = o.meter.Int64Counter("posix_ipc.segment.read_bytes"); err != nil {
			internalLogger.warnf("shm: creating read counter: %v", err)
		}
	}
	s.handleID = registerSegment(s)
	// Explicit Dispose is the contract; the finalizer is a best-effort
	// fallback for handles the caller leaked.
	runtime.SetFinalizer(s, (*Segment).Dispose)
	return s
}

// Key returns the caller-chosen kernel key.
func (s *Segment) Key() int { return s.key }

// ID returns the kernel-assigned segment identifier.
func (s *Segment) ID() int { return s.id }

// Capacity returns the usable bytes of the region as known to this handle:
// exact for a creator, best-effort for an attacher.
func (s *Segment) Capacity() int { return s.capacity }

// Owner reports whether this handle created the kernel object.
func (s *Segment) Owner() bool { return s.owner }

// Disposed reports whether Dispose ran.
func (s *Segment) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Write stores p as the segment's single length-prefixed payload, replacing
// any previous contents. The size check happens before any memory is touched,
// so a failed write leaves the previous payload intact.
//
// The caller is responsible for holding the protecting semaphore around the
// call; the segment applies no cross-process locking of its own. The internal
// mutex only guards this handle's fields against a concurrent Dispose.
func (s *Segment) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return fmt.Errorf("shm write: %w", ErrDisposed)
	}
	if s.tracer != nil {
		_, span := s.tracer.Start(context.Background(), "ipc.Segment.Write")
		defer span.End()
	}
	limit := s.capacity
	if len(s.data) < limit {
		// attacher running under the oversized fallback estimate; the mapping
		// itself is the hard bound
		limit = len(s.data)
	}
	if len(p) > math.MaxInt32 || lengthHeaderSize+len(p) > limit {
		return fmt.Errorf("shm write: %d payload bytes into %d byte segment: %w", len(p), s.capacity, ErrSizeExceeded)
	}
	s.data.setPayloadLength(int32(len(p)))
	copy(s.data.payload(int32(len(p))), p)
	metricBytesWritten.Add(float64(len(p)))
	if s.writeBytes != nil {
		s.writeBytes.Add(context.Background(), int64(len(p)))
	}
	return nil
}

// WriteString encodes s as UTF-8 and writes it.
func (s *Segment) WriteString(text string) error {
	return s.Write([]byte(text))
}

// Read returns a copy of the current payload. A region that was never written
// reads as an empty payload, since fresh kernel segments are zero-filled.
//
// A negative length header fails with ErrCorruptData: the writer side can
// never produce one, so it indicates a corrupted region. Reading a region
// whose last writer used a larger segment than this handle can see is a
// caller synchronization bug; it surfaces as ErrCorruptData instead of an
// out-of-bounds access.
func (s *Segment) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, fmt.Errorf("shm read: %w", ErrDisposed)
	}
	if s.tracer != nil {
		_, span := s.tracer.Start(context.Background(), "ipc.Segment.Read")
		defer span.End()
	}
	n := s.data.payloadLength()
	if n < 0 {
		return nil, fmt.Errorf("shm read: negative payload length %d: %w", n, ErrCorruptData)
	}
	if lengthHeaderSize+int(n) > len(s.data) {
		return nil, fmt.Errorf("shm read: payload length %d exceeds %d byte mapping: %w", n, len(s.data), ErrCorruptData)
	}
	out := make([]byte, n)
	copy(out, s.data.payload(n))
	metricBytesRead.Add(float64(n))
	if s.readBytes != nil {
		s.readBytes.Add(context.Background(), int64(n))
	}
	return out, nil
}

// ReadString reads the current payload and decodes it as UTF-8.
func (s *Segment) ReadString() (string, error) {
	p, err := s.Read()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Dispose detaches the mapping and, when this handle created the kernel
// object, removes it. It is idempotent and safe to call from a finalizer;
// failures are warned through the internal logger, never returned, so
// teardown sequences cannot be aborted by it.
func (s *Segment) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	runtime.SetFinalizer(s, nil)
	unregisterSegment(s.handleID)
	if err := sysv.ShmDetach(s.data); err != nil {
		internalLogger.warnf("shm dispose: detach key %d: %v", s.key, err)
	}
	s.data = nil
	if s.owner {
		if err := sysv.ShmRemove(s.id); err != nil {
			internalLogger.warnf("shm dispose: remove key %d: %v", s.key, err)
		}
	}
	metricSegmentsDisposed.Inc()
}
