// Package sysv wraps the raw System V IPC syscalls used by pkg/ipc.
//
// Real implementations live in the platform-specific files (sysv_linux.go);
// every other platform gets the stub in sysv_stub.go so callers fail with
// ErrUnsupportedPlatform on their first call instead of deep inside a kernel
// operation.
package sysv

import "errors"

// ErrUnsupportedPlatform is returned by every operation on hosts without
// System V IPC support.
var ErrUnsupportedPlatform = errors.New("System V IPC is not available on this platform")

// Kernel objects are created owner-only. This is a wire-compatibility
// constant shared with other implementations, not a tunable.
const ipcModeOwnerOnly = 0o600
