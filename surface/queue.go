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
	"errors"
	"fmt"
	"sync"

	queuepkg "github.com/Workiva/go-datastructures/queue"
	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/surface-shm/api"
	shmpkg "github.com/srediag/surface-shm/internal/shm"
	"github.com/srediag/surface-shm/pkg/region"
)

// control block layout: identity word, status word, slot count, then one
// state word and one needs-new-buffer word per slot
const (
	ringIdentityOffset  = 0
	ringStatusOffset    = 4
	ringSlotCountOffset = 8
	ringHeaderLength    = 12
	ringSlotStride      = 8
)

// slot ownership states, stored in the control block so both sides observe
// the same single-writer chain per slot
const (
	slotFree uint32 = iota
	slotDequeued
	slotLocked
	slotQueued
)

// SharedRing implements the api.ShareQueue protocol for compositors that
// share the control block with the producer: slot identity and ownership
// words live in the (optionally memfd- or /dev/shm-backed) control block,
// while the free-slot exchange rides an in-process queue on each side.
// It also carries the compositor-side helpers (Retire, SetIdentity, Poison)
// used by embedded compositors and tests.
type SharedRing struct {
	conf  *Config
	token api.Token

	region *shmpkg.Region
	mem    []byte

	free    *queuepkg.Queue
	pending *queuepkg.Queue

	mu        sync.Mutex
	slotCount int
	crops     []region.Rect
	dirty     []region.Region
	statusErr error
}

// NewSharedRing creates the ring for one surface token with the compositor
// identity word seeded to identity.
func NewSharedRing(conf *Config, token api.Token, identity uint32) (*SharedRing, error) {
	if conf == nil {
		conf = DefaultConfig()
	}
	size := ringHeaderLength + conf.MaxSlotCount*ringSlotStride
	name := fmt.Sprintf("%s_%d", conf.ShareMemoryPathPrefix, token)

	var reg *shmpkg.Region
	var err error
	switch conf.MemMapType {
	case MemMapTypeMemFd:
		reg, err = shmpkg.NewMemfdRegion(name, size)
	case MemMapTypeDevShmFile:
		if !shmpkg.CanCreateOnDevShm(uint64(size), name) {
			return nil, fmt.Errorf("err:%s path:%s, size:%d", ErrShareMemoryHadNotLeftSpace.Error(), name, size)
		}
		reg, err = shmpkg.NewFileRegion(name, size)
	default:
		reg = shmpkg.NewHeapRegion(name, size)
	}
	if err != nil {
		return nil, err
	}

	r := &SharedRing{
		conf:      conf,
		token:     token,
		region:    reg,
		mem:       reg.Data,
		free:      queuepkg.New(int64(conf.MaxSlotCount)),
		pending:   queuepkg.New(int64(conf.MaxSlotCount)),
		slotCount: conf.SlotCount,
		crops:     make([]region.Rect, conf.SlotCount),
		dirty:     make([]region.Region, conf.SlotCount),
	}
	shmpkg.StoreUint32(r.mem, ringIdentityOffset, identity)
	shmpkg.StoreUint32(r.mem, ringSlotCountOffset, uint32(conf.SlotCount))
	for i := 0; i < conf.SlotCount; i++ {
		if err := r.free.Put(int32(i)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func slotStateOffset(slot int32) int {
	return ringHeaderLength + int(slot)*ringSlotStride
}

func slotNeedNewOffset(slot int32) int {
	return slotStateOffset(slot) + 4
}

func (r *SharedRing) slotState(slot int32) uint32 {
	return shmpkg.LoadUint32(r.mem, slotStateOffset(slot))
}

func (r *SharedRing) setSlotState(slot int32, st uint32) {
	shmpkg.StoreUint32(r.mem, slotStateOffset(slot), st)
}

// Dequeue reserves a client-owned slot, polling under exponential backoff
// until the compositor returns one. With DequeueMaxWait zero the wait is
// unbounded; otherwise exhaustion reports ErrWouldBlock.
func (r *SharedRing) Dequeue() (int32, error) {
	var slot int32 = -1
	poll := func() error {
		items, err := r.free.Poll(1, r.conf.DequeuePollInterval)
		if err != nil {
			if errors.Is(err, queuepkg.ErrTimeout) {
				return ErrNoFreeSlot
			}
			return backoff.Permanent(err)
		}
		if len(items) == 0 {
			return ErrNoFreeSlot
		}
		slot = items[0].(int32)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.conf.DequeuePollInterval
	bo.MaxElapsedTime = r.conf.DequeueMaxWait
	if err := backoff.Retry(poll, bo); err != nil {
		if errors.Is(err, ErrNoFreeSlot) {
			return -1, ErrWouldBlock
		}
		return -1, err
	}

	if !shmpkg.CompareAndSwapUint32(r.mem, slotStateOffset(slot), slotFree, slotDequeued) {
		// the peer violated the handoff protocol for this slot
		return -1, ErrBadSlotState
	}
	return slot, nil
}

// UndoDequeue releases a reservation so a failed allocation does not strand
// the slot.
func (r *SharedRing) UndoDequeue(slot int32) {
	if !shmpkg.CompareAndSwapUint32(r.mem, slotStateOffset(slot), slotDequeued, slotFree) {
		internalLogger.warnf("undoDequeue on slot %d in state %d", slot, r.slotState(slot))
		return
	}
	if err := r.free.Put(slot); err != nil {
		internalLogger.warnf("undoDequeue: returning slot %d failed: %v", slot, err)
	}
}

// NeedNewBuffer reports and clears the slot's needs-new-buffer flag.
func (r *SharedRing) NeedNewBuffer(slot int32) bool {
	return shmpkg.SwapUint32(r.mem, slotNeedNewOffset(slot), 0) != 0
}

// Lock marks a dequeued slot as in active producer use.
func (r *SharedRing) Lock(slot int32) error {
	if !shmpkg.CompareAndSwapUint32(r.mem, slotStateOffset(slot), slotDequeued, slotLocked) {
		return ErrBadSlotState
	}
	return nil
}

// SetCrop records the crop rectangle published with the slot.
func (r *SharedRing) SetCrop(slot int32, crop region.Rect) {
	r.mu.Lock()
	if int(slot) < len(r.crops) {
		r.crops[slot] = crop
	}
	r.mu.Unlock()
}

// SetDirtyRegion records the dirty region published with the slot.
func (r *SharedRing) SetDirtyRegion(slot int32, dirty region.Region) {
	r.mu.Lock()
	if int(slot) < len(r.dirty) {
		r.dirty[slot] = dirty
	}
	r.mu.Unlock()
}

// Queue transfers slot ownership to the compositor.
func (r *SharedRing) Queue(slot int32) error {
	if err := r.Status(); err != nil {
		return err
	}
	st := r.slotState(slot)
	if st != slotDequeued && st != slotLocked {
		return ErrBadSlotState
	}
	r.setSlotState(slot, slotQueued)
	return r.pending.Put(slot)
}

// Status returns the ring's sticky error state.
func (r *SharedRing) Status() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusErr
}

// Identity returns the compositor identity word for the token, zero for
// unknown tokens.
func (r *SharedRing) Identity(token api.Token) uint32 {
	if token != r.token {
		return 0
	}
	return shmpkg.LoadUint32(r.mem, ringIdentityOffset)
}

// Validate checks that the token still names this ring and the ring is
// healthy.
func (r *SharedRing) Validate(token api.Token) error {
	if token != r.token {
		return ErrInvalidArgument
	}
	return r.Status()
}

// SetBufferCount resizes the ring to count slots. Requires every slot to be
// idle; the compositor round trip runs through renegotiate before the
// resize takes effect.
func (r *SharedRing) SetBufferCount(count int, renegotiate func(count int) error) error {
	if count < 2 || count > r.conf.MaxSlotCount {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := int32(0); i < int32(r.slotCount); i++ {
		if r.slotState(i) != slotFree {
			return ErrInvalidOperation
		}
	}
	if err := renegotiate(count); err != nil {
		return err
	}

	r.free.Dispose()
	r.free = queuepkg.New(int64(r.conf.MaxSlotCount))
	for i := 0; i < count; i++ {
		if err := r.free.Put(int32(i)); err != nil {
			return err
		}
	}
	r.slotCount = count
	r.crops = make([]region.Rect, count)
	r.dirty = make([]region.Region, count)
	shmpkg.StoreUint32(r.mem, ringSlotCountOffset, uint32(count))
	return nil
}

// FreeCount returns the number of client-claimable slots.
func (r *SharedRing) FreeCount() int {
	return int(r.free.Len())
}

// PendingCount returns the number of queued slots awaiting composition.
func (r *SharedRing) PendingCount() int {
	return int(r.pending.Len())
}

// SlotCount returns the current ring size.
func (r *SharedRing) SlotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotCount
}

// DirtyRegion returns the dirty region last published for the slot.
func (r *SharedRing) DirtyRegion(slot int32) region.Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(slot) >= len(r.dirty) {
		return region.Region{}
	}
	return r.dirty[slot]
}

// Crop returns the crop rectangle last published for the slot.
func (r *SharedRing) Crop(slot int32) region.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(slot) >= len(r.crops) {
		return region.InvalidRect()
	}
	return r.crops[slot]
}

// Retire is the compositor side of the handoff: the oldest queued slot is
// composed and returned for reuse. With needNew set the producer is told to
// allocate a fresh backing buffer on the slot's next dequeue.
func (r *SharedRing) Retire(needNew bool) (int32, error) {
	items, err := r.pending.Poll(1, r.conf.DequeuePollInterval)
	if err != nil {
		if errors.Is(err, queuepkg.ErrTimeout) {
			return -1, ErrWouldBlock
		}
		return -1, err
	}
	slot := items[0].(int32)
	if needNew {
		shmpkg.StoreUint32(r.mem, slotNeedNewOffset(slot), 1)
	}
	r.setSlotState(slot, slotFree)
	if err := r.free.Put(slot); err != nil {
		return -1, err
	}
	return slot, nil
}

// SetIdentity rewrites the compositor identity word. The compositor bumps
// it when it tears down and recreates the surface's server-side state,
// invalidating every session still holding the old identity.
func (r *SharedRing) SetIdentity(identity uint32) {
	shmpkg.StoreUint32(r.mem, ringIdentityOffset, identity)
}

// Poison puts the ring into a sticky error state reported by Status.
func (r *SharedRing) Poison(err error) {
	r.mu.Lock()
	r.statusErr = err
	r.mu.Unlock()
	if err != nil {
		shmpkg.StoreUint32(r.mem, ringStatusOffset, 1)
	} else {
		shmpkg.StoreUint32(r.mem, ringStatusOffset, 0)
	}
}

// Close disposes both slot queues and releases the control block.
func (r *SharedRing) Close() error {
	r.free.Dispose()
	r.pending.Dispose()
	return r.region.Close()
}

var _ api.ShareQueue = (*SharedRing)(nil)
