//go:build !linux

package shm

// NewMemfdRegion is unsupported outside Linux; callers fall back to heap
// regions.
func NewMemfdRegion(name string, size int) (*Region, error) {
	return nil, ErrUnsupported
}

// MapFdRegion is unsupported outside Linux.
func MapFdRegion(name string, fd int) (*Region, error) {
	return nil, ErrUnsupported
}

// NewFileRegion is unsupported outside Linux.
func NewFileRegion(path string, size int) (*Region, error) {
	return nil, ErrUnsupported
}

// MapFileRegion is unsupported outside Linux.
func MapFileRegion(path string) (*Region, error) {
	return nil, ErrUnsupported
}

// Close releases the region's memory.
func (r *Region) Close() error {
	r.Data = nil
	return nil
}

// CanCreateOnDevShm always reports true outside Linux.
func CanCreateOnDevShm(size uint64, path string) bool {
	return true
}
