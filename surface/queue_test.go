/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
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

package surface

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/srediag/surface-shm/api"
	"github.com/srediag/surface-shm/pkg/region"
)

func testConfig() *Config {
	conf := DefaultConfig()
	conf.DequeuePollInterval = 200 * time.Microsecond
	conf.DequeueMaxWait = 30 * time.Millisecond
	conf.SignalWorkers = 1
	return conf
}

func testRing(t *testing.T) *SharedRing {
	t.Helper()
	ring, err := NewSharedRing(testConfig(), api.Token(3), 7)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = ring.Close() })
	return ring
}

func TestRingSlotLifecycle(t *testing.T) {
	ring := testRing(t)
	assert.Equal(t, 2, ring.FreeCount())
	assert.Equal(t, 0, ring.PendingCount())

	slot, err := ring.Dequeue()
	assert.NoError(t, err)
	assert.Equal(t, int32(0), slot)
	assert.Equal(t, slotDequeued, ring.slotState(slot))
	assert.Equal(t, 1, ring.FreeCount())

	assert.NoError(t, ring.Lock(slot))
	assert.Equal(t, slotLocked, ring.slotState(slot))

	assert.NoError(t, ring.Queue(slot))
	assert.Equal(t, slotQueued, ring.slotState(slot))
	assert.Equal(t, 1, ring.PendingCount())

	back, err := ring.Retire(false)
	assert.NoError(t, err)
	assert.Equal(t, slot, back)
	assert.Equal(t, slotFree, ring.slotState(slot))
	assert.Equal(t, 2, ring.FreeCount())
	assert.Equal(t, 0, ring.PendingCount())
}

func TestRingQueueWithoutLock(t *testing.T) {
	// queueing straight from the dequeued state is allowed; hardware
	// producers never take the CPU lock
	ring := testRing(t)
	slot, err := ring.Dequeue()
	assert.NoError(t, err)
	assert.NoError(t, ring.Queue(slot))
}

func TestRingQueueBadState(t *testing.T) {
	ring := testRing(t)
	assert.ErrorIs(t, ring.Queue(0), ErrBadSlotState)
	assert.ErrorIs(t, ring.Lock(0), ErrBadSlotState)
}

func TestRingUndoDequeue(t *testing.T) {
	ring := testRing(t)
	slot, err := ring.Dequeue()
	assert.NoError(t, err)
	assert.Equal(t, 1, ring.FreeCount())

	ring.UndoDequeue(slot)
	assert.Equal(t, 2, ring.FreeCount())
	assert.Equal(t, slotFree, ring.slotState(slot))

	// undo on a slot not held is a logged no-op
	ring.UndoDequeue(slot)
	assert.Equal(t, 2, ring.FreeCount())
}

func TestRingDequeueWouldBlock(t *testing.T) {
	ring := testRing(t)
	_, err := ring.Dequeue()
	assert.NoError(t, err)
	_, err = ring.Dequeue()
	assert.NoError(t, err)

	_, err = ring.Dequeue()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestRingNeedNewBufferConsuming(t *testing.T) {
	ring := testRing(t)
	slot, _ := ring.Dequeue()
	assert.NoError(t, ring.Queue(slot))
	_, err := ring.Retire(true)
	assert.NoError(t, err)

	assert.True(t, ring.NeedNewBuffer(slot))
	// reading the flag cleared it
	assert.False(t, ring.NeedNewBuffer(slot))
}

func TestRingIdentityAndValidate(t *testing.T) {
	ring := testRing(t)
	assert.Equal(t, uint32(7), ring.Identity(api.Token(3)))
	assert.Equal(t, uint32(0), ring.Identity(api.Token(99)))
	assert.NoError(t, ring.Validate(api.Token(3)))
	assert.ErrorIs(t, ring.Validate(api.Token(99)), ErrInvalidArgument)

	ring.SetIdentity(8)
	assert.Equal(t, uint32(8), ring.Identity(api.Token(3)))
}

func TestRingPoison(t *testing.T) {
	ring := testRing(t)
	ring.Poison(ErrInvalidOperation)
	assert.ErrorIs(t, ring.Status(), ErrInvalidOperation)
	assert.ErrorIs(t, ring.Validate(api.Token(3)), ErrInvalidOperation)

	slot, _ := ring.Dequeue()
	assert.ErrorIs(t, ring.Queue(slot), ErrInvalidOperation)

	ring.Poison(nil)
	assert.NoError(t, ring.Status())
}

func TestRingSetBufferCount(t *testing.T) {
	ring := testRing(t)
	calls := 0
	renegotiate := func(count int) error { calls++; return nil }

	assert.ErrorIs(t, ring.SetBufferCount(1, renegotiate), ErrInvalidArgument)
	assert.ErrorIs(t, ring.SetBufferCount(100, renegotiate), ErrInvalidArgument)
	assert.Equal(t, 0, calls)

	assert.NoError(t, ring.SetBufferCount(4, renegotiate))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 4, ring.SlotCount())
	assert.Equal(t, 4, ring.FreeCount())
}

func TestRingSetBufferCountWithOutstandingSlot(t *testing.T) {
	ring := testRing(t)
	_, err := ring.Dequeue()
	assert.NoError(t, err)

	err = ring.SetBufferCount(4, func(int) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, 2, ring.SlotCount())
}

func TestRingSetBufferCountRenegotiateFailure(t *testing.T) {
	ring := testRing(t)
	err := ring.SetBufferCount(4, func(int) error { return ErrOutOfMemory })
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 2, ring.SlotCount())
	assert.Equal(t, 2, ring.FreeCount())
}

func TestRingCropAndDirtyMetadata(t *testing.T) {
	ring := testRing(t)
	slot, _ := ring.Dequeue()

	crop := region.Rect{Left: 1, Top: 2, Right: 30, Bottom: 40}
	dirty := region.WH(30, 40)
	ring.SetCrop(slot, crop)
	ring.SetDirtyRegion(slot, dirty)

	assert.Equal(t, crop, ring.Crop(slot))
	assert.Equal(t, dirty.Area(), ring.DirtyRegion(slot).Area())
}
