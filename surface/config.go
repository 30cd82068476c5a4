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

import "time"

// MemMapType selects the backing of the shared ring control block.
type MemMapType int

const (
	// MemMapTypeHeap keeps the control block process-private. Producer and
	// compositor must share an address space (tests, embedded compositors).
	MemMapTypeHeap MemMapType = iota
	// MemMapTypeDevShmFile backs the control block with a file under
	// /dev/shm shared by path.
	MemMapTypeDevShmFile
	// MemMapTypeMemFd backs the control block with an anonymous fd passed
	// to the compositor over the connection's control channel.
	MemMapTypeMemFd
)

// Config carries the tunables of a surface session and its shared ring.
type Config struct {
	// SlotCount is the initial number of buffer slots in the ring.
	SlotCount int
	// MaxSlotCount bounds SetBufferCount renegotiation.
	MaxSlotCount int
	// MemMapType selects heap, /dev/shm file or memfd control blocks.
	MemMapType MemMapType
	// ShareMemoryPathPrefix locates /dev/shm-file control blocks.
	ShareMemoryPathPrefix string
	// DequeuePollInterval is the initial poll period while waiting for the
	// compositor to return a slot.
	DequeuePollInterval time.Duration
	// DequeueMaxWait bounds the dequeue wait; zero blocks until a slot is
	// returned or the ring is torn down.
	DequeueMaxWait time.Duration
	// SignalWorkers sizes the goroutine pool delivering out-of-band
	// compositor wakeups.
	SignalWorkers int
}

// DefaultConfig returns the default surface configuration: a double-buffered
// ring with an unbounded dequeue wait.
func DefaultConfig() *Config {
	return &Config{
		SlotCount:             2,
		MaxSlotCount:          16,
		MemMapType:            MemMapTypeHeap,
		ShareMemoryPathPrefix: "/dev/shm/surface_ring",
		DequeuePollInterval:   500 * time.Microsecond,
		DequeueMaxWait:        0,
		SignalWorkers:         2,
	}
}
