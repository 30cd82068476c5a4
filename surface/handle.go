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
	"encoding/binary"
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/surface-shm/api"
)

// Handle is the serialized form of a surface for cross-process transfer.
// Field order on the wire is fixed: connection ref, surface ref, token,
// identity, width, height, format, flags, all little endian.
type Handle struct {
	ConnectionRef uint64
	SurfaceRef    uint64
	Token         api.Token
	Identity      uint32
	Width         uint32
	Height        uint32
	Format        api.PixelFormat
	Flags         api.SurfaceFlags
}

const handleWireSize = 8 + 8 + 4 + 4 + 4 + 4 + 4 + 4

// NullHandle returns the sentinel handle a nil or invalid control
// serializes to. Deserializing it yields a session that permits no buffer
// operations.
func NullHandle() Handle {
	return Handle{Token: api.InvalidToken}
}

// IsNull reports whether the handle carries no server-side state.
func (h Handle) IsNull() bool {
	return h.Token < 0 && h.Identity == 0
}

// Marshal encodes the handle for transfer.
func (h Handle) Marshal() []byte {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	var w [8]byte
	binary.LittleEndian.PutUint64(w[:], h.ConnectionRef)
	_, _ = bb.Write(w[:])
	binary.LittleEndian.PutUint64(w[:], h.SurfaceRef)
	_, _ = bb.Write(w[:])
	binary.LittleEndian.PutUint32(w[:4], uint32(h.Token))
	_, _ = bb.Write(w[:4])
	binary.LittleEndian.PutUint32(w[:4], h.Identity)
	_, _ = bb.Write(w[:4])
	binary.LittleEndian.PutUint32(w[:4], h.Width)
	_, _ = bb.Write(w[:4])
	binary.LittleEndian.PutUint32(w[:4], h.Height)
	_, _ = bb.Write(w[:4])
	binary.LittleEndian.PutUint32(w[:4], uint32(h.Format))
	_, _ = bb.Write(w[:4])
	binary.LittleEndian.PutUint32(w[:4], uint32(h.Flags))
	_, _ = bb.Write(w[:4])

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())
	return out
}

// UnmarshalHandle decodes a handle serialized by Marshal.
func UnmarshalHandle(data []byte) (Handle, error) {
	if len(data) != handleWireSize {
		return Handle{}, fmt.Errorf("%w: surface handle must be %d bytes, got %d",
			ErrInvalidArgument, handleWireSize, len(data))
	}
	var h Handle
	h.ConnectionRef = binary.LittleEndian.Uint64(data[0:])
	h.SurfaceRef = binary.LittleEndian.Uint64(data[8:])
	h.Token = api.Token(binary.LittleEndian.Uint32(data[16:]))
	h.Identity = binary.LittleEndian.Uint32(data[20:])
	h.Width = binary.LittleEndian.Uint32(data[24:])
	h.Height = binary.LittleEndian.Uint32(data[28:])
	h.Format = api.PixelFormat(binary.LittleEndian.Uint32(data[32:]))
	h.Flags = api.SurfaceFlags(binary.LittleEndian.Uint32(data[36:]))
	return h, nil
}
