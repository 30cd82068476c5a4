// Package shm contains platform helpers for the shared control-block memory
// behind the buffer-exchange protocol: anonymous-fd mapping on Linux and a
// heap fallback for same-process use and tests.
package shm

import "errors"

// ErrUnsupported is returned for shared mappings on platforms without
// memfd support.
var ErrUnsupported = errors.New("shared memory mapping not supported on this platform")

// Region is a block of memory usable as a cross-process control block.
type Region struct {
	Data []byte
	Name string

	fd     int
	mapped bool
	unlink bool
}

// NewHeapRegion returns a process-private region. Used when producer and
// compositor share an address space (tests, single-process compositors).
func NewHeapRegion(name string, size int) *Region {
	return &Region{Data: make([]byte, size), Name: name, fd: -1}
}

// Fd returns the backing file descriptor, or -1 for heap regions.
func (r *Region) Fd() int {
	return r.fd
}
