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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWriterReaderHandshake drives the full discipline two cooperating
// processes would use: segment key K, semaphore keys K+1 and K+2, every
// access bracketed by wait/signal. The two sides run as goroutines here, but
// only the kernel objects connect them.
func TestWriterReaderHandshake(t *testing.T) {
	requireSysvIPC(t)

	segKey := testKey()

	seg, err := CreateSegment(segKey, 4096)
	require.NoError(t, err)
	defer seg.Dispose()

	dataSem, err := CreateSemaphore(segKey + 1)
	require.NoError(t, err)
	defer DestroySemaphore(dataSem)

	ackSem, err := CreateSemaphore(segKey + 2)
	require.NoError(t, err)
	defer DestroySemaphore(ackSem)

	payloads := [][]byte{[]byte("hello"), []byte("bytes!")}
	readerDone := make(chan error, 1)

	go func() {
		reader, err := AttachSegment(segKey)
		if err != nil {
			readerDone <- err
			return
		}
		defer reader.Dispose()
		for _, want := range payloads {
			if err := WaitSemaphore(dataSem); err != nil {
				readerDone <- err
				return
			}
			got, err := reader.Read()
			if err != nil {
				readerDone <- err
				return
			}
			if string(got) != string(want) {
				readerDone <- &mismatchError{want: string(want), got: string(got)}
				return
			}
			if err := SignalSemaphore(ackSem); err != nil {
				readerDone <- err
				return
			}
		}
		readerDone <- nil
	}()

	// writer side: publish, then wait for the reader's ack before overwriting
	for i, p := range payloads {
		require.NoError(t, seg.Write(p), "payload %d", i)
		require.NoError(t, SignalSemaphore(dataSem))
		require.NoError(t, WaitSemaphore(ackSem))
	}

	select {
	case err := <-readerDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not finish")
	}
}

type mismatchError struct {
	want, got string
}

func (e *mismatchError) Error() string {
	return "payload mismatch: want " + e.want + ", got " + e.got
}
