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
	"github.com/panjf2000/ants/v2"

	"github.com/srediag/surface-shm/api"
)

// signaler delivers the out-of-band compositor wakeup that follows a
// successful queue, off the caller's goroutine so queueing never stalls on
// the wakeup round trip.
type signaler struct {
	pool *ants.Pool
}

func newSignaler(workers int) *signaler {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		internalLogger.warnf("signal pool unavailable, compositor wakeups run inline: %v", err)
		return &signaler{}
	}
	return &signaler{pool: pool}
}

// signal wakes the compositor. Falls back to an inline call when the pool is
// saturated or gone.
func (sg *signaler) signal(composer api.Composer) {
	fire := func() {
		if err := composer.Signal(); err != nil {
			internalLogger.warnf("compositor signal failed: %v", err)
		}
	}
	if sg.pool != nil {
		if err := sg.pool.Submit(fire); err == nil {
			return
		}
	}
	fire()
}

func (sg *signaler) close() {
	if sg.pool != nil {
		sg.pool.Release()
	}
}
