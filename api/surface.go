// Package api defines the contracts consumed by the surface session: the
// shared synchronization collaborator, the remote compositor connection and
// the platform buffer mapper, plus the wire-level types they exchange.
package api

// Token identifies a surface to the compositor. Negative tokens are invalid.
type Token = int32

// InvalidToken marks a surface handle with no server-side state.
const InvalidToken Token = -1

// PixelFormat enumerates the renderable pixel layouts.
type PixelFormat int32

const (
	PixelFormatNone     PixelFormat = 0
	PixelFormatRGBA8888 PixelFormat = 1
	PixelFormatRGBX8888 PixelFormat = 2
	PixelFormatRGB888   PixelFormat = 3
	PixelFormatRGB565   PixelFormat = 4
	PixelFormatBGRA8888 PixelFormat = 5
)

// BytesPerPixel returns the per-pixel byte width, or 0 for unknown formats.
func (f PixelFormat) BytesPerPixel() int32 {
	switch f {
	case PixelFormatRGBA8888, PixelFormatRGBX8888, PixelFormatBGRA8888:
		return 4
	case PixelFormatRGB888:
		return 3
	case PixelFormatRGB565:
		return 2
	}
	return 0
}

// Usage is a bitmask of the access capabilities a buffer must support.
// Requested usage only ever widens over a surface's life; downgrading the
// capabilities of a live buffer is unsafe.
type Usage uint32

const (
	UsageSWReadOften  Usage = 1 << 0
	UsageSWWriteOften Usage = 1 << 1
	UsageHWTexture    Usage = 1 << 2
	UsageHWRender     Usage = 1 << 3
)

// Covers reports whether every capability in req is present in u.
func (u Usage) Covers(req Usage) bool {
	return u&req == req
}

// ProducerAPI identifies the producer driving a surface's dequeue/queue
// cycle. A surface is connected to at most one producer at a time; the
// software Lock path requires no connection at all.
type ProducerAPI int32

const (
	ProducerAPINone ProducerAPI = 0
	ProducerAPIEGL  ProducerAPI = 1
)

// SurfaceFlags carry compositor-side behavior bits for a surface.
type SurfaceFlags uint32

const (
	// FlagHidden creates the surface in hidden state.
	FlagHidden SurfaceFlags = 1 << 2
	// FlagDestroyBackBuffer disables the copy-back optimization: the back
	// buffer contents are treated as undefined on every dequeue.
	FlagDestroyBackBuffer SurfaceFlags = 1 << 5
	// FlagSecure excludes the surface from screen captures.
	FlagSecure SurfaceFlags = 1 << 7
)

// Buffer is an allocated graphics buffer handle. The pixel memory itself is
// owned by the platform mapper; the handle carries only geometry and the
// identity needed to reach it.
type Buffer struct {
	// ID is the mapper-assigned handle identity.
	ID uint64
	// Slot is the buffer's position in its surface's slot table. Set by the
	// session when the buffer is bound to a slot.
	Slot int32

	Width  int32
	Height int32
	// Stride is in pixels, not bytes. May exceed Width.
	Stride int32
	Format PixelFormat
	Usage  Usage
}
