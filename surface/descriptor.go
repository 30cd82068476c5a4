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

const geometryDirty uint32 = 1 << 0

// bufferDescriptor holds the requested geometry/format/usage for buffers not
// yet allocated. Guarded by the session's surfaceMu.
type bufferDescriptor struct {
	width  uint32
	height uint32
	format api.PixelFormat
	usage  api.Usage
	dirty  uint32
}

func newBufferDescriptor(w, h uint32, format api.PixelFormat) bufferDescriptor {
	return bufferDescriptor{
		width:  w,
		height: h,
		format: format,
		usage:  api.UsageHWRender,
	}
}

// setGeometry records a new geometry/format request and marks the descriptor
// dirty only when something actually changed, so an unchanged request never
// triggers a reallocation.
func (d *bufferDescriptor) setGeometry(w, h uint32, format api.PixelFormat) {
	if d.width != w || d.height != h || d.format != format {
		d.width = w
		d.height = h
		d.format = format
		d.dirty |= geometryDirty
	}
}

// setUsage overwrites the requested usage. Callers only ever widen it;
// narrowing the capabilities of a live buffer is unsafe.
func (d *bufferDescriptor) setUsage(usage api.Usage) {
	d.usage = usage
}

func (d *bufferDescriptor) request() (w, h uint32, format api.PixelFormat, usage api.Usage) {
	return d.width, d.height, d.format, d.usage
}

// validate reports whether buf still satisfies the descriptor: false when a
// geometry change is pending, no buffer exists, or buf lacks some requested
// usage bit. Consuming query: the check clears the dirty bit as a side
// effect, so a second call in a row reports the buffer valid. See the
// package tests for the geometry-churn anomaly this causes.
func (d *bufferDescriptor) validate(buf *api.Buffer) bool {
	if d.dirty != 0 || buf == nil || !buf.Usage.Covers(d.usage) {
		d.dirty = 0
		return false
	}
	return true
}
