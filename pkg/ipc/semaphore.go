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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shanewas/posix-ipc-go/internal/sysv"
)

// The semaphore protocol is a set of free functions over an explicit kernel
// identifier. The identifier's true owner is the kernel, not any one
// process's handle, so there is deliberately no wrapping object: any process
// holding the agreed key can operate on the slot.

// CreateSemaphore creates the single-slot semaphore for key, or opens it when
// another process got there first. A freshly created slot is explicitly set
// to 0, so the locked initial state is a hard guarantee rather than an
// accident of the kernel's default.
//
// The create/open race is handled both ways: exclusive creation losing to a
// concurrent creator falls through to an open, and an open losing to a
// concurrent destroyer retries the exclusive creation once (the slot's
// lifetime window was too short to open, so creating again is safe).
func CreateSemaphore(key int) (int, error) {
	if !sysv.Supported() {
		return 0, classify("sem create", sysv.ErrUnsupportedPlatform)
	}
	for attempt := 0; attempt < 2; attempt++ {
		semid, err := sysv.SemCreateExclusive(key)
		if err == nil {
			if err := sysv.SemSetValue(semid, 0); err != nil {
				return 0, classify("sem init", err)
			}
			repairSemaphore(semid)
			metricSemaphoresCreated.Inc()
			return semid, nil
		}
		if !errors.Is(err, syscall.EEXIST) {
			return 0, classify("sem create", err)
		}
		semid, err = sysv.SemOpen(key)
		if err == nil {
			return semid, nil
		}
		if !errors.Is(err, syscall.ENOENT) {
			return 0, classify("sem open", err)
		}
	}
	return 0, fmt.Errorf("sem create: key %d destroyed by a concurrent process twice: %w", key, ErrRemoved)
}

// repairSemaphore re-reads the slot and forces it back to 0 when the read
// reports an error. Best-effort: failures of the repair itself are discarded.
func repairSemaphore(semid int) {
	if _, err := sysv.SemGetValue(semid); err != nil {
		if err := sysv.SemSetValue(semid, 0); err != nil {
			internalLogger.warnf("sem repair: semid %d: %v", semid, err)
		}
	}
}

// WaitSemaphore blocks the calling thread until the slot is non-zero, then
// atomically takes it. Interrupted waits are retried indefinitely; a slot
// destroyed mid-wait surfaces as ErrCancelled so the caller can choose to
// recreate and retry instead of treating it as fatal.
func WaitSemaphore(semid int) error {
	return semOpRetry("sem wait", semid, -1, metricSemaphoreWaits)
}

// SignalSemaphore releases the slot, unblocking at most one waiter. Same
// interrupt-retry and removed-as-cancelled handling as WaitSemaphore.
func SignalSemaphore(semid int) error {
	return semOpRetry("sem signal", semid, 1, metricSemaphoreSignals)
}

func semOpRetry(op string, semid int, delta int16, counter prometheus.Counter) error {
	if !sysv.Supported() {
		return classify(op, sysv.ErrUnsupportedPlatform)
	}
	for {
		err := sysv.SemOp(semid, delta)
		if err == nil {
			counter.Inc()
			return nil
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		// EIDRM reaches blocked waiters when the set is destroyed under
		// them; latecomers on the reclaimed id get EINVAL instead. Both mean
		// the same thing to the caller.
		if errors.Is(err, syscall.EIDRM) || errors.Is(err, syscall.EINVAL) {
			return fmt.Errorf("%s: semid %d: %w", op, semid, ErrCancelled)
		}
		return classify(op, err)
	}
}

// DestroySemaphore requests kernel removal of the slot, waking blocked
// waiters with ErrCancelled. Destruction is a best-effort cleanup step that
// must never abort a caller's teardown sequence, so every failure — already
// removed, never existed, or anything else — is only warned, and calling it
// repeatedly is safe.
func DestroySemaphore(semid int) {
	if !sysv.Supported() {
		return
	}
	if err := sysv.SemRemove(semid); err != nil {
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.EIDRM) {
			internalLogger.infof("sem destroy: semid %d already removed", semid)
		} else {
			internalLogger.warnf("sem destroy: semid %d: %v", semid, err)
		}
		return
	}
	metricSemaphoresDestroyed.Inc()
}
