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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"

	"github.com/srediag/surface-shm/pkg/region"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	assert.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func (s *SessionTestSuite) TestBufferLifecycleCounters() {
	// the counters are process-global, compare deltas
	dequeuesBefore := counterValue(s.T(), dequeuesTotal)
	allocsBefore := counterValue(s.T(), allocationsTotal)

	s.cycleOnce()
	s.cycleOnce()
	s.cycleOnce()

	s.Equal(float64(3), counterValue(s.T(), dequeuesTotal)-dequeuesBefore)
	s.Equal(float64(2), counterValue(s.T(), allocationsTotal)-allocsBefore)
}

func (s *SessionTestSuite) TestCopybackBytesCounted() {
	before := counterValue(s.T(), copybackBytesTotal)

	var info LockInfo
	s.Require().NoError(s.session.Lock(&info, nil))
	s.Require().NoError(s.session.UnlockAndPost())

	dirty := region.WH(testWidth/2, testHeight/2)
	s.Require().NoError(s.session.Lock(&info, &dirty))
	s.Require().NoError(s.session.UnlockAndPost())

	// full bounds minus the repainted quadrant were seeded
	seeded := int64(testWidth*testHeight) - int64(testWidth/2*testHeight/2)
	s.Equal(float64(seeded*4), counterValue(s.T(), copybackBytesTotal)-before)
}

func (s *SessionTestSuite) TestQueueErrorCounted() {
	before := counterValue(s.T(), queueErrorsTotal)

	buf, err := s.session.DequeueBuffer()
	s.Require().NoError(err)
	s.Require().NoError(s.session.QueueBuffer(buf))
	// queueing the same slot again is a protocol violation
	s.Error(s.session.QueueBuffer(buf))

	s.Equal(float64(1), counterValue(s.T(), queueErrorsTotal)-before)
}
