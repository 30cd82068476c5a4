package api

import "github.com/srediag/surface-shm/pkg/region"

// Composer is the remote compositor connection. Every call is a one-way
// remote procedure with no local state; the session validates before
// forwarding and propagates the returned status verbatim.
type Composer interface {
	SetLayer(token Token, layer int32) error
	SetPosition(token Token, x, y int32) error
	SetSize(token Token, w, h uint32) error
	Hide(token Token) error
	Show(token Token, layer int32) error
	Freeze(token Token) error
	Unfreeze(token Token) error
	SetFlags(token Token, flags, mask SurfaceFlags) error
	SetTransparentRegionHint(token Token, transparent region.Region) error
	SetAlpha(token Token, alpha float32) error
	SetMatrix(token Token, dsdx, dtdx, dsdy, dtdy float32) error
	SetFreezeTint(token Token, tint uint32) error

	// SetBufferCount asks the compositor to renegotiate the surface's slot
	// count. Invoked through the ShareQueue renegotiation callback.
	SetBufferCount(token Token, count int) error

	// RequestBuffer allocates the backing buffer for a slot on the
	// compositor side and returns its handle. A nil buffer with a nil error
	// means the compositor ran out of memory.
	RequestBuffer(token Token, slot int32, w, h uint32, format PixelFormat, usage Usage) (*Buffer, error)

	// Signal wakes the compositor so it can schedule composition without
	// waiting for its own polling interval.
	Signal() error

	// DestroySurface tears down the surface's server-side state.
	DestroySurface(token Token) error
}
