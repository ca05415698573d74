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
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
	"github.com/valyala/bytebufferpool"
)

const (
	// Semaphore keys are derived from the mailbox name's key by fixed
	// offsets so the segment and its guards never collide.
	mailboxDataSemOffset = 1
	mailboxFreeSemOffset = 2

	mailboxPendingHint     = 64
	mailboxDispatchWorkers = 4
	mailboxDrainPoll       = 100 * time.Millisecond
)

var mailboxLogger = newLogger("mailbox", nil)

// Mailbox is a broker-free, single-slot message channel between processes,
// built from one shared segment and an empty/full semaphore pair. One process
// constructs it with NewMailbox; any number of peers open it by name with
// OpenMailbox. Send blocks until the slot is free, Receive until a payload
// arrives, so every payload is consumed exactly once.
type Mailbox struct {
	name    string
	seg     *Segment
	dataSem int
	freeSem int
	owner   bool

	pending   *queue.Queue
	pool      *ants.Pool
	drainOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMailbox creates the mailbox named name with a slot of size bytes. The
// creating side owns the kernel objects; its Close tears them down and
// unblocks remote waiters with ErrCancelled.
func NewMailbox(name string, size int) (*Mailbox, error) {
	seg, err := CreateSegment(KeyFor(name), size)
	if err != nil {
		return nil, err
	}
	m, err := newMailbox(name, seg, true)
	if err != nil {
		seg.Dispose()
		return nil, err
	}
	// the slot starts free; exactly the creating side announces that
	if err := SignalSemaphore(m.freeSem); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// OpenMailbox attaches to an existing mailbox by name, waiting briefly for
// the creator if it has not come up yet.
func OpenMailbox(name string) (*Mailbox, error) {
	seg, err := AttachWithRetry(KeyFor(name), nil)
	if err != nil {
		return nil, err
	}
	m, err := newMailbox(name, seg, false)
	if err != nil {
		seg.Dispose()
		return nil, err
	}
	return m, nil
}

func newMailbox(name string, seg *Segment, owner bool) (*Mailbox, error) {
	key := KeyFor(name)
	dataSem, err := CreateSemaphore(key + mailboxDataSemOffset)
	if err != nil {
		return nil, err
	}
	freeSem, err := CreateSemaphore(key + mailboxFreeSemOffset)
	if err != nil {
		if owner {
			DestroySemaphore(dataSem)
		}
		return nil, err
	}
	pool, err := ants.NewPool(mailboxDispatchWorkers)
	if err != nil {
		return nil, err
	}
	return &Mailbox{
		name:    name,
		seg:     seg,
		dataSem: dataSem,
		freeSem: freeSem,
		owner:   owner,
		pending: queue.New(mailboxPendingHint),
		pool:    pool,
	}, nil
}

// Name returns the mailbox name.
func (m *Mailbox) Name() string { return m.name }

// Send publishes p and blocks until the previous payload, if any, has been
// consumed.
func (m *Mailbox) Send(p []byte) error {
	if err := WaitSemaphore(m.freeSem); err != nil {
		return err
	}
	if err := m.seg.Write(p); err != nil {
		// the slot stays free after a failed write
		if serr := SignalSemaphore(m.freeSem); serr != nil {
			mailboxLogger.warnf("%s: restoring free slot: %v", m.name, serr)
		}
		return err
	}
	return SignalSemaphore(m.dataSem)
}

// SendString encodes s as UTF-8 and sends it.
func (m *Mailbox) SendString(s string) error {
	return m.Send([]byte(s))
}

// Receive blocks until a payload is available and takes it, freeing the slot
// for the next sender.
func (m *Mailbox) Receive() ([]byte, error) {
	if err := WaitSemaphore(m.dataSem); err != nil {
		return nil, err
	}
	p, err := m.seg.Read()
	if err != nil {
		// leave the payload claimable by a healthier handle
		if serr := SignalSemaphore(m.dataSem); serr != nil {
			mailboxLogger.warnf("%s: restoring data slot: %v", m.name, serr)
		}
		return nil, err
	}
	if err := SignalSemaphore(m.freeSem); err != nil {
		return nil, err
	}
	return p, nil
}

// SendAsync queues p for delivery and returns immediately. Payloads are
// delivered in queueing order by a background drain; p is copied, so the
// caller may reuse it. Delivery failures are logged, not returned.
func (m *Mailbox) SendAsync(p []byte) error {
	buf := bytebufferpool.Get()
	_, _ = buf.Write(p)
	if err := m.pending.Put(buf); err != nil {
		bytebufferpool.Put(buf)
		return err
	}
	m.drainOnce.Do(m.startDrain)
	return nil
}

func (m *Mailbox) startDrain() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			items, err := m.pending.Poll(1, mailboxDrainPoll)
			if err != nil {
				if errors.Is(err, queue.ErrDisposed) {
					return
				}
				// poll timeout; keep draining
				continue
			}
			for _, item := range items {
				buf := item.(*bytebufferpool.ByteBuffer)
				if err := m.Send(buf.Bytes()); err != nil {
					mailboxLogger.errorf("%s: async send: %v", m.name, err)
				}
				bytebufferpool.Put(buf)
			}
		}
	}()
}

// Subscribe starts a receive loop dispatching every payload to handler on a
// worker pool and returns immediately. The loop ends when the mailbox's
// semaphores are destroyed by the owning side's Close. Handlers may run
// concurrently; payloads are not shared between invocations.
func (m *Mailbox) Subscribe(handler func([]byte)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			p, err := m.Receive()
			if err != nil {
				if !errors.Is(err, ErrCancelled) && !errors.Is(err, ErrDisposed) {
					mailboxLogger.errorf("%s: receive: %v", m.name, err)
				}
				return
			}
			payload := p
			if err := m.pool.Submit(func() { handler(payload) }); err != nil {
				mailboxLogger.warnf("%s: dispatch: %v", m.name, err)
			}
		}
	}()
}

// Close releases the mailbox. The creating side also destroys the semaphore
// pair and the segment, which unblocks waiters in every process with
// ErrCancelled; an attached side only releases its local resources and leaves
// the channel intact for the owner and other peers.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() {
		m.pending.Dispose()
		if m.owner {
			DestroySemaphore(m.dataSem)
			DestroySemaphore(m.freeSem)
		}
		m.seg.Dispose()
		if m.owner {
			// background loops end once the semaphores are gone
			m.wg.Wait()
			m.pool.Release()
			return
		}
		// An attached side's loops stay blocked in the kernel until the owner
		// tears the semaphores down; keep the pool alive until they actually
		// end so their final dispatches still succeed.
		go func() {
			m.wg.Wait()
			m.pool.Release()
		}()
	})
}
