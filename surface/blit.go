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

import (
	"github.com/srediag/surface-shm/api"
	"github.com/srediag/surface-shm/pkg/region"
)

// copyBlt copies the pixels of reg from src into dst, row by row with
// per-buffer strides. src and dst width, height and format must be
// identical; no verification is done here.
func (s *Session) copyBlt(dst, src *api.Buffer, reg region.Region) error {
	bounds := reg.Bounds()
	srcBits, err := s.mapper.Lock(src, api.UsageSWReadOften, bounds)
	if err != nil {
		internalLogger.errorf("error locking src buffer %d: %v", src.ID, err)
		return err
	}
	dstBits, err := s.mapper.Lock(dst, api.UsageSWWriteOften, bounds)
	if err != nil {
		internalLogger.errorf("error locking dst buffer %d: %v", dst.ID, err)
		_ = s.mapper.Unlock(src)
		return err
	}

	bpp := src.Format.BytesPerPixel()
	sbpr := src.Stride * bpp
	dbpr := dst.Stride * bpp
	var copied int64
	for _, r := range reg.Rects() {
		h := r.Height()
		if h <= 0 {
			continue
		}
		size := r.Width() * bpp
		so := (r.Left + src.Stride*r.Top) * bpp
		do := (r.Left + dst.Stride*r.Top) * bpp
		if dbpr == sbpr && size == sbpr {
			// rows are contiguous on both sides, collapse into one copy
			size *= h
			h = 1
		}
		for ; h > 0; h-- {
			copy(dstBits[do:do+size], srcBits[so:so+size])
			copied += int64(size)
			so += sbpr
			do += dbpr
		}
	}
	copybackBytesTotal.Add(float64(copied))

	err = s.mapper.Unlock(src)
	if uerr := s.mapper.Unlock(dst); err == nil {
		err = uerr
	}
	return err
}
