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
	"errors"
	"fmt"
	"syscall"

	"github.com/shanewas/posix-ipc-go/internal/sysv"
)

// Kernel failure classes. Every failed kernel call in this package wraps one
// of these, so callers match with errors.Is.
var (
	// ErrInterrupted marks a call interrupted by a signal. It is retried
	// internally by the semaphore wait/signal loops and only escapes from
	// operations with no retry semantics.
	ErrInterrupted = errors.New("interrupted by signal")
	// ErrNotFound means the named segment or semaphore does not exist.
	ErrNotFound = errors.New("ipc object does not exist")
	// ErrPermissionDenied means the caller lacks rights to the kernel object.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument means a kernel call received a malformed parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRemoved means the object was deleted by another process while an
	// operation was in flight. Distinct from ErrNotFound: it signals active
	// interference, not prior absence.
	ErrRemoved = errors.New("ipc object removed while in use")
	// ErrOutOfRange means a kernel-imposed limit was exceeded.
	ErrOutOfRange = errors.New("kernel ipc limit exceeded")
	// ErrUnknown covers everything else; the raw code stays in the message.
	ErrUnknown = errors.New("unclassified ipc error")
)

// Operation-level failures.
var (
	// ErrDisposed marks use of a segment handle after Dispose.
	ErrDisposed = errors.New("segment handle disposed")
	// ErrSizeExceeded marks a payload that does not fit the segment.
	ErrSizeExceeded = errors.New("payload exceeds segment capacity")
	// ErrCorruptData marks a negative or impossible length header.
	ErrCorruptData = errors.New("corrupt length header")
	// ErrCancelled marks a semaphore wait or signal cut short because the
	// semaphore was destroyed. Callers may recreate and retry.
	ErrCancelled = errors.New("semaphore removed while operating on it")
	// ErrUnsupportedPlatform is reported on hosts without System V IPC.
	ErrUnsupportedPlatform = sysv.ErrUnsupportedPlatform
)

// classify maps a raw kernel error onto the failure taxonomy, keeping the
// original errno visible in the message.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sysv.ErrUnsupportedPlatform) {
		return fmt.Errorf("%s: %w", op, ErrUnsupportedPlatform)
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnknown, err)
	}
	kind := ErrUnknown
	switch errno {
	case syscall.EINTR:
		kind = ErrInterrupted
	case syscall.ENOENT:
		kind = ErrNotFound
	case syscall.EACCES, syscall.EPERM:
		kind = ErrPermissionDenied
	case syscall.EINVAL:
		kind = ErrInvalidArgument
	case syscall.EIDRM:
		kind = ErrRemoved
	case syscall.ENOSPC, syscall.ENOMEM, syscall.EMFILE, syscall.E2BIG, syscall.ERANGE:
		kind = ErrOutOfRange
	}
	if kind == ErrUnknown {
		return fmt.Errorf("%s: %w (errno %d: %v)", op, kind, int(errno), errno)
	}
	return fmt.Errorf("%s: %w (%v)", op, kind, errno)
}
