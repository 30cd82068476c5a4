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

import "github.com/prometheus/client_golang/prometheus"

var (
	dequeuesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "surface_dequeues_total",
		Help: "Buffer slots dequeued from the share queue.",
	})
	allocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "surface_buffer_allocations_total",
		Help: "Backing buffers allocated or reallocated.",
	})
	copybackBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "surface_copyback_bytes_total",
		Help: "Bytes seeded into back buffers by the copy-back optimization.",
	})
	queueErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "surface_queue_errors_total",
		Help: "Failed buffer ownership transfers to the compositor.",
	})
)

func init() {
	prometheus.MustRegister(dequeuesTotal, allocationsTotal, copybackBytesTotal, queueErrorsTotal)
}
