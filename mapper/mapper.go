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

// Package mapper implements the process-local buffer allocator and mapper.
// Pixel memory comes from a size-class arena so buffer churn does not
// fragment the shared block; each handle's Register/Unregister pair brackets
// its lifetime in this process.
package mapper

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/surface-shm/api"
	"github.com/srediag/surface-shm/pkg/arena"
	"github.com/srediag/surface-shm/pkg/region"
)

var (
	ErrUnknownHandle     = errors.New("mapper: unknown buffer handle")
	ErrAlreadyRegistered = errors.New("mapper: buffer already registered")
	ErrNotRegistered     = errors.New("mapper: buffer not registered")
	ErrNotLocked         = errors.New("mapper: buffer not locked")
	ErrUnknownFormat     = errors.New("mapper: unknown pixel format")
)

// strideAlignPixels is the row alignment applied to every allocation, in
// pixels. Consumers may scan out rows directly, so rows start on 16-pixel
// boundaries regardless of the requested width.
const strideAlignPixels = 16

type mapping struct {
	pix    []byte
	slice  *arena.Slice
	width  int32
	height int32
	stride int32
	format api.PixelFormat

	registered bool
	locked     bool
	usage      api.Usage
	bounds     region.Rect
}

// Config holds mapper creation parameters.
type Config struct {
	// Arena backs pixel allocations. Nil is allowed only with
	// AllowHeapFallback set.
	Arena *arena.Arena
	// AllowHeapFallback lets Allocate fall back to a heap slice when the
	// arena has no free slice of the needed class.
	AllowHeapFallback bool
}

// ShmMapper is the reference api.Mapper. Handles are process-unique ids;
// the registry is sharded so sessions on different surfaces never contend.
type ShmMapper struct {
	conf   Config
	nextID atomic.Uint64
	table  cmap.ConcurrentMap[string, *mapping]
}

// New creates a mapper backed by cfg.Arena.
func New(cfg Config) *ShmMapper {
	return &ShmMapper{
		conf:  cfg,
		table: cmap.New[*mapping](),
	}
}

func key(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Allocate carves a new buffer out of the arena. The returned buffer is not
// yet registered in any process; its producer must Register it before
// locking.
func (m *ShmMapper) Allocate(ctx context.Context, width, height int32, format api.PixelFormat, usage api.Usage) (*api.Buffer, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, ErrUnknownFormat
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("mapper: non-positive buffer dimensions")
	}
	stride := (width + strideAlignPixels - 1) &^ (strideAlignPixels - 1)
	size := uint32(stride) * uint32(height) * uint32(bpp)

	var pix []byte
	var slice *arena.Slice
	if m.conf.Arena != nil {
		s, err := m.conf.Arena.Alloc(ctx, size)
		switch {
		case err == nil:
			slice, pix = s, s.Data[:size]
		case errors.Is(err, arena.ErrExhausted) && m.conf.AllowHeapFallback:
			pix = make([]byte, size)
		default:
			return nil, err
		}
	} else if m.conf.AllowHeapFallback {
		pix = make([]byte, size)
	} else {
		return nil, arena.ErrExhausted
	}

	id := m.nextID.Add(1)
	m.table.Set(key(id), &mapping{
		pix:    pix,
		slice:  slice,
		width:  width,
		height: height,
		stride: stride,
		format: format,
	})
	return &api.Buffer{
		ID:     id,
		Slot:   -1,
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Usage:  usage,
	}, nil
}

// Register maps the buffer's pixels into this process. A second Register
// without an intervening Unregister is a protocol violation and fails.
func (m *ShmMapper) Register(buf *api.Buffer) error {
	mp, ok := m.table.Get(key(buf.ID))
	if !ok {
		return ErrUnknownHandle
	}
	if mp.registered {
		return ErrAlreadyRegistered
	}
	mp.registered = true
	return nil
}

// Unregister unmaps the buffer and recycles its arena slice. The handle is
// dead afterwards.
func (m *ShmMapper) Unregister(buf *api.Buffer) error {
	k := key(buf.ID)
	mp, ok := m.table.Get(k)
	if !ok {
		return ErrUnknownHandle
	}
	if !mp.registered {
		return ErrNotRegistered
	}
	mp.registered = false
	if mp.slice != nil && m.conf.Arena != nil {
		m.conf.Arena.Recycle(mp.slice)
	}
	m.table.Remove(k)
	return nil
}

// Lock grants CPU access to the buffer's pixels. The recorded usage and
// bounds describe what the caller declared, not what it touched.
func (m *ShmMapper) Lock(buf *api.Buffer, usage api.Usage, bounds region.Rect) ([]byte, error) {
	mp, ok := m.table.Get(key(buf.ID))
	if !ok {
		return nil, ErrUnknownHandle
	}
	if !mp.registered {
		return nil, ErrNotRegistered
	}
	mp.locked = true
	mp.usage = usage
	mp.bounds = bounds
	return mp.pix, nil
}

// Unlock ends a Lock.
func (m *ShmMapper) Unlock(buf *api.Buffer) error {
	mp, ok := m.table.Get(key(buf.ID))
	if !ok {
		return ErrUnknownHandle
	}
	if !mp.locked {
		return ErrNotLocked
	}
	mp.locked = false
	return nil
}

// Registered reports whether the handle is currently mapped here.
func (m *ShmMapper) Registered(id uint64) bool {
	mp, ok := m.table.Get(key(id))
	return ok && mp.registered
}

// Count returns the number of live handles.
func (m *ShmMapper) Count() int {
	return m.table.Count()
}

var _ api.Mapper = (*ShmMapper)(nil)
