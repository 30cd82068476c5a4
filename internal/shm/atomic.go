package shm

import (
	"sync/atomic"
	"unsafe"
)

// Word views four bytes of a region as an atomically accessed uint32. The
// offset must be 4-byte aligned; both sides of the protocol rely on these
// accesses for the identity and slot-state words.

// LoadUint32 atomically reads the word at off.
func LoadUint32(mem []byte, off int) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&mem[off])))
}

// StoreUint32 atomically writes the word at off.
func StoreUint32(mem []byte, off int, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&mem[off])), v)
}

// SwapUint32 atomically replaces the word at off and returns the old value.
func SwapUint32(mem []byte, off int, v uint32) uint32 {
	return atomic.SwapUint32((*uint32)(unsafe.Pointer(&mem[off])), v)
}

// CompareAndSwapUint32 atomically CASes the word at off.
func CompareAndSwapUint32(mem []byte, off int, old, new uint32) bool {
	return atomic.CompareAndSwapUint32((*uint32)(unsafe.Pointer(&mem[off])), old, new)
}
