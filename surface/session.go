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

// Package surface implements the client half of the producer/compositor
// buffer-exchange protocol: a Session owns a small ring of graphics buffer
// slots that the application fills and hands to the compositor for
// presentation, while the compositor asynchronously returns slots for
// reuse. The slot allocation and ownership handoff itself goes through an
// api.ShareQueue collaborator; pixel memory is owned by an api.Mapper.
package surface

import (
	"sync"

	"github.com/srediag/surface-shm/api"
	"github.com/srediag/surface-shm/pkg/region"
)

// LockInfo describes the buffer handed to the caller by Lock.
type LockInfo struct {
	Width  int32
	Height int32
	// Stride is in pixels.
	Stride int32
	Format api.PixelFormat
	Usage  api.Usage
	// Pix spans the whole mapping; the caller may only touch the dirty
	// bounds it negotiated.
	Pix []byte
}

// Session drives the dequeue/lock/queue/post buffer lifecycle for one
// surface. It may be shared across goroutines, but only one producer may
// drive the cycle at a time; the software producer entry points enforce
// that with a dedicated mutual-exclusion lock.
type Session struct {
	composer api.Composer
	shared   api.ShareQueue
	mapper   api.Mapper

	token    api.Token
	identity uint32
	format   api.PixelFormat
	flags    api.SurfaceFlags

	initErr error

	// apiMu serializes the software producer (Lock/UnlockAndPost). Taken
	// with TryLock only, so caller misuse reports ErrWouldBlock instead of
	// deadlocking.
	apiMu sync.Mutex

	// surfaceMu guards the descriptor, connection state, published
	// dimensions and the crop/swap rectangles against concurrent reads
	// during dequeue.
	surfaceMu sync.Mutex
	desc      bufferDescriptor
	connected api.ProducerAPI
	width     uint32
	height    uint32
	swapRect  region.Rect
	nextCrop  region.Rect

	slots bufferSlotTable

	lockedBuffer   *api.Buffer
	postedBuffer   *api.Buffer
	dirtyRegion    region.Region
	oldDirtyRegion region.Region

	signaler *signaler
}

// NewSession builds a session for the surface behind ctrl, with the shared
// synchronization collaborator and platform mapper injected explicitly.
func NewSession(ctrl *Control, shared api.ShareQueue, mapper api.Mapper, conf *Config) *Session {
	if ctrl == nil {
		return newSession(nil, api.InvalidToken, 0, 0, 0, api.PixelFormatNone, 0, shared, mapper, conf)
	}
	return newSession(ctrl.composer, ctrl.token, ctrl.identity,
		ctrl.width, ctrl.height, ctrl.format, ctrl.flags, shared, mapper, conf)
}

// SessionFromHandle reconstructs a session from a deserialized surface
// handle. A sentinel handle (token -1, identity 0) yields a session whose
// operations all fail with ErrOperationNotPermitted.
func SessionFromHandle(h Handle, composer api.Composer, shared api.ShareQueue, mapper api.Mapper, conf *Config) *Session {
	return newSession(composer, h.Token, h.Identity,
		h.Width, h.Height, h.Format, h.Flags, shared, mapper, conf)
}

func newSession(composer api.Composer, token api.Token, identity uint32,
	w, h uint32, format api.PixelFormat, flags api.SurfaceFlags,
	shared api.ShareQueue, mapper api.Mapper, conf *Config) *Session {
	if conf == nil {
		conf = DefaultConfig()
	}
	s := &Session{
		composer: composer,
		shared:   shared,
		mapper:   mapper,
		token:    token,
		identity: identity,
		format:   format,
		flags:    flags,
		desc:     newBufferDescriptor(w, h, format),
		width:    w,
		height:   h,
		swapRect: region.InvalidRect(),
		nextCrop: region.InvalidRect(),
		slots:    newBufferSlotTable(conf.SlotCount),
		signaler: newSignaler(conf.SignalWorkers),
	}
	switch {
	case composer == nil || shared == nil || mapper == nil:
		s.initErr = ErrUninitialized
	case token < 0:
		// all-default handles carry no server-side state; dequeue/queue are
		// not permitted on them
		s.initErr = ErrOperationNotPermitted
	}
	return s
}

// Validate enforces the cross-process identity contract before every buffer
// operation. A stale reference is fatal: the session performs no further
// compositor IPC and must be recreated by its owning layer.
func (s *Session) Validate() error {
	if s.initErr != nil {
		internalLogger.errorf("invalid surface (token=%d, identity=%d): %v", s.token, s.identity, s.initErr)
		return s.initErr
	}
	identity := s.shared.Identity(s.token)
	if identity == 0 {
		// identity 0 means no client operations are allowed; used for
		// passive push-buffer surfaces
		internalLogger.errorf("invalid operation on passive surface (token=%d)", s.token)
		return ErrOperationNotPermitted
	}
	if identity != s.identity {
		internalLogger.errorf("using a stale surface token=%d, identity=%d should be %d",
			s.token, s.identity, identity)
		return ErrStaleReference
	}
	if err := s.shared.Validate(s.token); err != nil {
		internalLogger.errorf("surface (token=%d, identity=%d) is invalid: %v", s.token, s.identity, err)
		return err
	}
	return nil
}

// Width returns the published surface width. Updated whenever a dequeue
// binds a buffer whose effective dimensions differ from the request.
func (s *Session) Width() uint32 {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	return s.width
}

// Height returns the published surface height.
func (s *Session) Height() uint32 {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	return s.height
}

// Format returns the surface pixel format.
func (s *Session) Format() api.PixelFormat {
	return s.format
}

// Token returns the compositor-facing surface token.
func (s *Session) Token() api.Token {
	return s.token
}

// needNewBuffer decides whether the slot must be (re)allocated and, if so,
// returns the requirements to allocate against.
func (s *Session) needNewBuffer(slot int32) (bool, uint32, uint32, api.PixelFormat, api.Usage) {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()

	// always consult the collaborator first, the call clears the slot's
	// needs-new-buffer flag
	refresh := s.shared.NeedNewBuffer(slot)
	valid := s.desc.validate(s.slots.get(slot))
	if refresh || !valid {
		w, h, format, usage := s.desc.request()
		return true, w, h, format, usage
	}
	return false, 0, 0, api.PixelFormatNone, 0
}

func (s *Session) setPublishedSize(w, h uint32) {
	s.surfaceMu.Lock()
	s.width = w
	s.height = h
	s.surfaceMu.Unlock()
}

// DequeueBuffer acquires a client-owned buffer slot and returns its backing
// buffer, (re)allocating the buffer when the slot's existing one no longer
// satisfies the current requirements. On any failure the slot reservation
// is released back to the collaborator.
func (s *Session) DequeueBuffer() (*api.Buffer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	slot, err := s.shared.Dequeue()
	if err != nil {
		internalLogger.errorf("error dequeuing a buffer slot: %v", err)
		return nil, err
	}
	s.slots.grow(int(slot) + 1)

	if need, w, h, format, usage := s.needNewBuffer(slot); need {
		if err := s.allocateBuffer(slot, w, h, format, usage); err != nil {
			internalLogger.errorf("allocating buffer for slot %d (%dx%d fmt=%d usage=%#x) failed: %v",
				slot, w, h, format, usage, err)
			s.shared.UndoDequeue(slot)
			return nil, err
		}
		back := s.slots.get(slot)
		// the allocator may hand back different effective dimensions
		s.setPublishedSize(uint32(back.Width), uint32(back.Height))
	}

	back := s.slots.get(slot)
	if back == nil {
		s.shared.UndoDequeue(slot)
		return nil, ErrOutOfMemory
	}

	s.dirtyRegion = region.WH(back.Width, back.Height)
	dequeuesTotal.Inc()
	return back, nil
}

// allocateBuffer replaces the slot's buffer with one satisfying the given
// requirements. The old handle is unregistered first; a failed allocation
// leaves the slot empty.
func (s *Session) allocateBuffer(slot int32, w, h uint32, format api.PixelFormat, usage api.Usage) error {
	if current := s.slots.get(slot); current != nil {
		if err := s.mapper.Unregister(current); err != nil {
			internalLogger.warnf("unregistering buffer %d failed: %v", current.ID, err)
		}
		s.slots.set(slot, nil)
	}

	buf, err := s.composer.RequestBuffer(s.token, slot, w, h, format, usage)
	if err != nil {
		return err
	}
	if buf == nil {
		return ErrOutOfMemory
	}
	if err := s.shared.Status(); err != nil {
		return err
	}
	if err := s.mapper.Register(buf); err != nil {
		internalLogger.warnf("registerBuffer failed: %v", err)
		return err
	}
	// remember the slot on the handle for later lookup at lock/queue time
	buf.Slot = slot
	s.slots.set(slot, buf)
	allocationsTotal.Inc()
	return nil
}

// LockBuffer marks the buffer's slot as in active use, making it ineligible
// for compositor-side reclamation.
func (s *Session) LockBuffer(buf *api.Buffer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.shared.Lock(buf.Slot); err != nil {
		internalLogger.errorf("error locking buffer slot %d: %v", buf.Slot, err)
		return err
	}
	return nil
}

// QueueBuffer publishes the crop and dirty region for the buffer's slot and
// transfers ownership to the compositor. The metadata writes are best
// effort; only the final transfer can fail. On success the compositor is
// signaled out-of-band so it need not wait for its own polling interval.
func (s *Session) QueueBuffer(buf *api.Buffer) error {
	if err := s.Validate(); err != nil {
		return err
	}

	s.surfaceMu.Lock()
	if s.swapRect.IsValid() {
		s.dirtyRegion = region.FromRect(s.swapRect)
	}
	crop := s.nextCrop
	s.surfaceMu.Unlock()

	s.shared.SetCrop(buf.Slot, crop)
	s.shared.SetDirtyRegion(buf.Slot, s.dirtyRegion)
	if err := s.shared.Queue(buf.Slot); err != nil {
		queueErrorsTotal.Inc()
		internalLogger.errorf("error queuing buffer slot %d: %v", buf.Slot, err)
		return err
	}
	s.signaler.signal(s.composer)
	return nil
}

// Lock is the software-rendering producer entry point: it dequeues and
// locks a back buffer, seeds it from the previously posted frame where the
// copy-back optimization applies, and grants the caller CPU access.
//
// dirtyIn names the region the caller intends to redraw; nil or empty means
// the whole buffer. On return it holds the region the caller must actually
// redraw, which widens to full bounds whenever copy-back was not possible.
func (s *Session) Lock(info *LockInfo, dirtyIn *region.Region) error {
	if s.ConnectedAPI() != api.ProducerAPINone {
		internalLogger.errorf("Lock failed, surface already connected to another producer API")
		return ErrAlreadyConnected
	}

	if !s.apiMu.TryLock() {
		internalLogger.errorf("calling Lock from different goroutines!")
		return ErrWouldBlock
	}
	defer s.apiMu.Unlock()

	if s.lockedBuffer != nil {
		internalLogger.errorf("Lock failed, already locked")
		return ErrAlreadyLocked
	}

	// software rendering from this point on
	s.SetUsage(api.UsageSWReadOften | api.UsageSWWriteOften)

	back, err := s.DequeueBuffer()
	if err != nil {
		return err
	}
	if err := s.LockBuffer(back); err != nil {
		return err
	}

	bounds := region.WH(back.Width, back.Height)
	newDirty := bounds
	if dirtyIn != nil && !dirtyIn.IsEmpty() {
		newDirty = dirtyIn.IntersectRect(region.RectWH(back.Width, back.Height))
	}

	front := s.postedBuffer
	canCopyBack := front != nil &&
		back.Width == front.Width &&
		back.Height == front.Height &&
		back.Format == front.Format &&
		s.flags&api.FlagDestroyBackBuffer == 0

	// the dirty region reported to the compositor is the caller's, not the
	// widened one handed back to the caller
	s.dirtyRegion = newDirty

	if canCopyBack {
		// seed the area that was clean before and is not being repainted
		// this round
		copyback := s.oldDirtyRegion.Subtract(newDirty)
		if !copyback.IsEmpty() {
			if err := s.copyBlt(back, front, copyback); err != nil {
				internalLogger.warnf("copy-back blit failed: %v", err)
			}
		}
	} else {
		// nothing can be assumed clean, make the caller redraw everything
		newDirty = bounds
	}

	// remember what will be clean after this frame, for the next round's
	// copy-back decision
	s.oldDirtyRegion = newDirty

	pix, err := s.mapper.Lock(back, api.UsageSWReadOften|api.UsageSWWriteOften, newDirty.Bounds())
	if err != nil {
		internalLogger.warnf("failed locking buffer %d for CPU access: %v", back.ID, err)
	}

	s.lockedBuffer = back
	info.Width = back.Width
	info.Height = back.Height
	info.Stride = back.Stride
	info.Format = back.Format
	info.Usage = back.Usage
	info.Pix = pix
	if dirtyIn != nil {
		*dirtyIn = newDirty
	}
	return nil
}

// UnlockAndPost releases the CPU mapping of the locked buffer and queues it
// to the compositor. The buffer becomes the posted front buffer regardless
// of the queue outcome; the queue error, if any, is returned.
func (s *Session) UnlockAndPost() error {
	if s.lockedBuffer == nil {
		internalLogger.errorf("UnlockAndPost failed, no locked buffer")
		return ErrInvalidOperation
	}

	if err := s.mapper.Unlock(s.lockedBuffer); err != nil {
		internalLogger.warnf("failed unlocking buffer %d: %v", s.lockedBuffer.ID, err)
	}

	err := s.QueueBuffer(s.lockedBuffer)
	s.postedBuffer = s.lockedBuffer
	s.lockedBuffer = nil
	return err
}

// SetUsage overwrites the usage bits required of newly allocated buffers.
func (s *Session) SetUsage(usage api.Usage) {
	s.surfaceMu.Lock()
	s.desc.setUsage(usage)
	s.surfaceMu.Unlock()
}

// Connect attaches a producer API to the surface. A surface accepts exactly
// one producer at a time.
func (s *Session) Connect(producer api.ProducerAPI) error {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	switch producer {
	case api.ProducerAPIEGL:
		if s.connected != api.ProducerAPINone {
			return ErrInvalidArgument
		}
		s.connected = producer
		return nil
	default:
		return ErrInvalidArgument
	}
}

// Disconnect detaches the producer API. The argument must match the
// connected API exactly.
func (s *Session) Disconnect(producer api.ProducerAPI) error {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	switch producer {
	case api.ProducerAPIEGL:
		if s.connected != producer {
			return ErrInvalidArgument
		}
		s.connected = api.ProducerAPINone
		return nil
	default:
		return ErrInvalidArgument
	}
}

// ConnectedAPI returns the currently attached producer API, if any.
func (s *Session) ConnectedAPI() api.ProducerAPI {
	s.surfaceMu.Lock()
	defer s.surfaceMu.Unlock()
	return s.connected
}

// SetBuffersGeometry requests a new buffer geometry/format. Both dimensions
// zero defers to the buffer's natural size; a single zero dimension is
// invalid. The change takes effect on the next dequeue.
func (s *Session) SetBuffersGeometry(w, h int32, format api.PixelFormat) error {
	if w < 0 || h < 0 || format < 0 {
		return ErrInvalidArgument
	}
	if (w == 0) != (h == 0) {
		return ErrInvalidArgument
	}
	s.surfaceMu.Lock()
	s.desc.setGeometry(uint32(w), uint32(h), format)
	s.surfaceMu.Unlock()
	return nil
}

// SetBufferCount renegotiates the surface's slot count through the
// collaborator, performing the compositor round trip when the collaborator
// asks for it.
func (s *Session) SetBufferCount(count int) error {
	if s.initErr != nil {
		return s.initErr
	}
	err := s.shared.SetBufferCount(count, func(count int) error {
		return s.composer.SetBufferCount(s.token, count)
	})
	if err != nil {
		internalLogger.errorf("SetBufferCount(%d) returned %v", count, err)
	}
	return err
}

// SetCrop sets the crop rectangle published with the next queued buffer.
func (s *Session) SetCrop(crop region.Rect) error {
	// TODO: validate the crop rectangle against the buffer bounds
	s.surfaceMu.Lock()
	s.nextCrop = crop
	s.surfaceMu.Unlock()
	return nil
}

// SetSwapRectangle overrides the dirty region published at queue time.
func (s *Session) SetSwapRectangle(r region.Rect) {
	s.surfaceMu.Lock()
	s.swapRect = r
	s.surfaceMu.Unlock()
}

// Close tears the session down client-side: every still-registered buffer
// is unregistered unconditionally so mapped memory is never leaked.
func (s *Session) Close() error {
	s.slots.unregisterAll(s.mapper)
	s.lockedBuffer = nil
	s.postedBuffer = nil
	s.signaler.close()
	return nil
}
