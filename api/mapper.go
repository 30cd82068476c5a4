package api

import "github.com/srediag/surface-shm/pkg/region"

// Mapper is the platform allocator/mapper that owns the actual pixel
// memory behind buffer handles. Register and Unregister must pair exactly
// once per handle; a handle's lifetime in this process ends when it is
// unregistered.
type Mapper interface {
	// Register maps the buffer's pixel memory into this process.
	Register(buf *Buffer) error

	// Unregister unmaps the buffer. Exactly one Unregister per Register.
	Unregister(buf *Buffer) error

	// Lock grants CPU access to the buffer's pixels, restricted to bounds
	// and to the given usage. The returned slice spans the whole mapping;
	// writes outside bounds are undefined.
	Lock(buf *Buffer, usage Usage, bounds region.Rect) ([]byte, error)

	// Unlock ends a Lock.
	Unlock(buf *Buffer) error
}
