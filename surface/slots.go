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

import "github.com/srediag/surface-shm/api"

// bufferSlotTable maps slot index to the allocated buffer handle bound to
// it. Capacity only ever grows. The session owns slot contents exclusively
// client-side; replacing a slot's buffer requires unregistering the old one
// first.
type bufferSlotTable struct {
	bufs []*api.Buffer
}

func newBufferSlotTable(capacity int) bufferSlotTable {
	return bufferSlotTable{bufs: make([]*api.Buffer, capacity)}
}

// grow extends the table to hold at least n slots.
func (t *bufferSlotTable) grow(n int) {
	for len(t.bufs) < n {
		t.bufs = append(t.bufs, nil)
	}
}

func (t *bufferSlotTable) size() int {
	return len(t.bufs)
}

func (t *bufferSlotTable) get(slot int32) *api.Buffer {
	if int(slot) >= len(t.bufs) {
		return nil
	}
	return t.bufs[slot]
}

func (t *bufferSlotTable) set(slot int32, buf *api.Buffer) {
	t.bufs[slot] = buf
}

// unregisterAll unmaps every still-registered buffer unconditionally. Run at
// surface teardown so mapped memory is never leaked, even after earlier
// failures.
func (t *bufferSlotTable) unregisterAll(mapper api.Mapper) {
	for slot, buf := range t.bufs {
		if buf == nil {
			continue
		}
		if err := mapper.Unregister(buf); err != nil {
			internalLogger.warnf("unregistering buffer %d (slot %d) failed: %v", buf.ID, slot, err)
		}
		t.bufs[slot] = nil
	}
}
