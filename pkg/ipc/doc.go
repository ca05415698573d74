// Package ipc provides same-host inter-process communication over System V
// shared memory segments guarded by System V semaphores.
//
// A creating process allocates a Segment for an agreed-upon integer key and a
// semaphore with CreateSemaphore; any other process attaches to the same
// segment with AttachSegment and opens the same semaphore by key. Payloads are
// opaque byte blobs stored as a single 4-byte little-endian length prefix
// followed by the payload, so independently built processes interoperate at
// the byte level.
//
// The package performs no locking between processes. Callers wrap every
// Write/Read pair in WaitSemaphore/SignalSemaphore; a caller that skips this
// discipline can observe a previous or half-intended payload. The Mailbox type
// packages the common single-slot discipline for convenience.
//
// Example:
//
//	seg, err := ipc.CreateSegment(ipc.KeyFor("telemetry"), 4096)
//	if err != nil {
//		return err
//	}
//	defer seg.Dispose()
//
//	semid, err := ipc.CreateSemaphore(ipc.KeyFor("telemetry") + 1)
//	if err != nil {
//		return err
//	}
//	defer ipc.DestroySemaphore(semid)
//
// On hosts without System V IPC every entry point fails immediately with
// ErrUnsupportedPlatform.
package ipc
