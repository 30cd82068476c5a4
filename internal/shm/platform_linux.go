//go:build linux

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// NewMemfdRegion creates a memfd-backed region whose fd can be passed to the
// compositor process over the connection's control channel.
func NewMemfdRegion(name string, size int) (*Region, error) {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("memfd_create %s failed: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("truncate memfd %s to %d failed: %w", name, size, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap memfd %s failed: %w", name, err)
	}
	for i := range data {
		data[i] = 0
	}
	return &Region{Data: data, Name: name, fd: fd, mapped: true}, nil
}

// NewFileRegion creates a file-backed region shared by path, typically under
// /dev/shm. The file must not already exist.
func NewFileRegion(path string, size int) (*Region, error) {
	_ = os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("shared region already exists, path %s", path)
	}
	if !CanCreateOnDevShm(uint64(size), path) {
		return nil, fmt.Errorf("not enough space for shared region, path:%s size:%d", path, size)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("truncate shared region failed: %w", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	for i := range data {
		data[i] = 0
	}
	return &Region{Data: data, Name: path, fd: -1, mapped: true, unlink: true}, nil
}

// MapFileRegion maps an existing file-backed region created by the peer.
func MapFileRegion(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &Region{Data: data, Name: path, fd: -1, mapped: true}, nil
}

// MapFdRegion maps an existing region received from the peer process.
func MapFdRegion(name string, fd int) (*Region, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap fd %d failed: %w", fd, err)
	}
	return &Region{Data: data, Name: name, fd: fd, mapped: true}, nil
}

// Close unmaps and releases the region. File-backed regions created here
// are unlinked; heap regions only drop their data.
func (r *Region) Close() error {
	if r.mapped {
		if err := unix.Munmap(r.Data); err != nil {
			return err
		}
		r.mapped = false
	}
	r.Data = nil
	if r.unlink {
		if err := os.Remove(r.Name); err != nil {
			return err
		}
		r.unlink = false
	}
	if r.fd >= 0 {
		err := unix.Close(r.fd)
		r.fd = -1
		return err
	}
	return nil
}

// CanCreateOnDevShm reports whether /dev/shm has room for size bytes. Paths
// outside /dev/shm are not checked.
func CanCreateOnDevShm(size uint64, path string) bool {
	if !strings.HasPrefix(path, "/dev/shm") {
		return true
	}
	stat, err := disk.Usage("/dev/shm")
	if err != nil {
		return true
	}
	return stat.Free >= size
}
