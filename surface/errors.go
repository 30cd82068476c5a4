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

import "errors"

var (
	// ErrUninitialized means the session failed construction and is unusable.
	ErrUninitialized = errors.New("surface session is not initialized")

	// ErrOperationNotPermitted marks a passive surface: the compositor-side
	// identity is the zero sentinel, so the client may not dequeue or queue.
	ErrOperationNotPermitted = errors.New("no buffer operations permitted on this surface")

	// ErrStaleReference means the compositor recreated the surface's
	// server-side state; the session must be discarded and rebuilt.
	ErrStaleReference = errors.New("stale surface reference, identity changed server-side")

	// ErrAlreadyLocked is returned by Lock while a previous buffer is still
	// locked and unposted.
	ErrAlreadyLocked = errors.New("surface already has a locked buffer")

	// ErrAlreadyConnected is returned by Lock while a producer API is
	// connected to the surface.
	ErrAlreadyConnected = errors.New("surface is connected to another producer API")

	// ErrWouldBlock flags caller misuse (concurrent Lock from two
	// goroutines) or an exhausted bounded dequeue wait.
	ErrWouldBlock = errors.New("operation would block")

	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrOutOfMemory is returned when the compositor could not allocate a
	// backing buffer.
	ErrOutOfMemory = errors.New("buffer allocation failed, out of memory")

	// ErrNoFreeSlot means every buffer slot is currently compositor-held.
	ErrNoFreeSlot = errors.New("no free buffer slot")

	// ErrBadSlotState flags a slot-ownership protocol violation, for
	// example queueing a slot that was never dequeued.
	ErrBadSlotState = errors.New("buffer slot is not in the required state")

	// ErrUnknownOperation is returned by Perform for operation types
	// outside the closed variant set.
	ErrUnknownOperation = errors.New("unknown surface operation")

	// ErrShareMemoryHadNotLeftSpace means /dev/shm lacks room for the
	// ring control block.
	ErrShareMemoryHadNotLeftSpace = errors.New("shared memory had not left space")
)
