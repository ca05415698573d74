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
	"os"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
)

var testKeyCounter atomic.Int32

// testKey returns a process-unique IPC key so parallel CI jobs on one host do
// not collide.
func testKey() int {
	return 0x51000000 | (os.Getpid()&0x3FF)<<12 | int(testKeyCounter.Add(1))&0xFFF
}

func requireSysvIPC(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("System V IPC tests require Linux")
	}
}

type SegmentSuite struct {
	suite.Suite
}

func (s *SegmentSuite) SetupSuite() {
	requireSysvIPC(s.T())
}

func (s *SegmentSuite) TestCreateRejectsNonPositiveSize() {
	for _, size := range []int{0, -1, -4096} {
		seg, err := CreateSegment(testKey(), size)
		s.Nil(seg)
		s.ErrorIs(err, ErrInvalidArgument, "size %d", size)
	}
}

func (s *SegmentSuite) TestWriteReadRoundTrip() {
	seg, err := CreateSegment(testKey(), 4096)
	s.Require().NoError(err)
	defer seg.Dispose()

	payload := []byte{0x00, 0x01, 0xFE, 0xFF, 'h', 'i'}
	s.Require().NoError(seg.Write(payload))
	got, err := seg.Read()
	s.NoError(err)
	s.Equal(payload, got)

	// overwrite with a shorter payload
	s.Require().NoError(seg.WriteString("hello"))
	text, err := seg.ReadString()
	s.NoError(err)
	s.Equal("hello", text)

	// reads do not consume
	text, err = seg.ReadString()
	s.NoError(err)
	s.Equal("hello", text)
}

func (s *SegmentSuite) TestReadBeforeWriteIsEmpty() {
	seg, err := CreateSegment(testKey(), 4096)
	s.Require().NoError(err)
	defer seg.Dispose()

	// fresh kernel segments are zero-filled, so the length header reads 0
	got, err := seg.Read()
	s.NoError(err)
	s.Empty(got)
}

func (s *SegmentSuite) TestSizeExceededLeavesContents() {
	seg, err := CreateSegment(testKey(), 4096)
	s.Require().NoError(err)
	defer seg.Dispose()

	s.Require().NoError(seg.WriteString("keep me"))

	err = seg.Write(make([]byte, 4096-lengthHeaderSize+1))
	s.ErrorIs(err, ErrSizeExceeded)

	text, err := seg.ReadString()
	s.NoError(err)
	s.Equal("keep me", text)

	// the largest payload that fits still succeeds
	s.NoError(seg.Write(make([]byte, 4096-lengthHeaderSize)))
}

func (s *SegmentSuite) TestCrossHandleVisibility() {
	key := testKey()
	owner, err := CreateSegment(key, 4096)
	s.Require().NoError(err)
	defer owner.Dispose()

	peer, err := AttachSegment(key)
	s.Require().NoError(err)
	defer peer.Dispose()

	s.True(owner.Owner())
	s.False(peer.Owner())
	s.Equal(4096, peer.Capacity())

	s.Require().NoError(owner.WriteString("from owner"))
	text, err := peer.ReadString()
	s.NoError(err)
	s.Equal("from owner", text)

	s.Require().NoError(peer.WriteString("from peer"))
	text, err = owner.ReadString()
	s.NoError(err)
	s.Equal("from peer", text)
}

func (s *SegmentSuite) TestAttachMissingSegment() {
	seg, err := AttachSegment(testKey())
	s.Nil(seg)
	s.ErrorIs(err, ErrNotFound)
	s.Contains(err.Error(), "does not exist")
}

func (s *SegmentSuite) TestDisposeOwnershipAndIdempotency() {
	key := testKey()
	owner, err := CreateSegment(key, 4096)
	s.Require().NoError(err)
	peer, err := AttachSegment(key)
	s.Require().NoError(err)

	// an attached handle going away must not break the owner
	peer.Dispose()
	peer.Dispose()
	s.Require().NoError(owner.WriteString("still here"))
	text, err := owner.ReadString()
	s.NoError(err)
	s.Equal("still here", text)

	_, err = peer.Read()
	s.ErrorIs(err, ErrDisposed)
	s.ErrorIs(peer.Write([]byte("x")), ErrDisposed)

	owner.Dispose()
	owner.Dispose()
	s.True(owner.Disposed())

	_, err = AttachSegment(key)
	s.ErrorIs(err, ErrNotFound)
}

func (s *SegmentSuite) TestCorruptLengthHeader() {
	seg, err := CreateSegment(testKey(), 4096)
	s.Require().NoError(err)
	defer seg.Dispose()

	seg.data.setPayloadLength(-5)
	_, err = seg.Read()
	s.ErrorIs(err, ErrCorruptData)

	// a positive length past the mapping is equally impossible
	seg.data.setPayloadLength(1 << 30)
	_, err = seg.Read()
	s.ErrorIs(err, ErrCorruptData)

	seg.data.setPayloadLength(0)
	got, err := seg.Read()
	s.NoError(err)
	s.Empty(got)
}

func TestSegmentSuite(t *testing.T) {
	suite.Run(t, new(SegmentSuite))
}
