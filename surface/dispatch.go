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

// Op is one of the optional surface operations. The set is closed: window
// toolkits build operation requests as values of these types and hand them
// to Perform, which dispatches exhaustively.
type Op interface {
	isOp()
}

// OpSetUsage overwrites the usage bits required of new buffers.
type OpSetUsage struct {
	Usage api.Usage
}

// OpConnect attaches a producer API.
type OpConnect struct {
	API api.ProducerAPI
}

// OpDisconnect detaches a producer API.
type OpDisconnect struct {
	API api.ProducerAPI
}

// OpSetCrop sets the crop rectangle for subsequently queued buffers.
type OpSetCrop struct {
	Crop region.Rect
}

// OpSetBufferCount renegotiates the slot count.
type OpSetBufferCount struct {
	Count int
}

// OpSetGeometry requests new buffer geometry and format.
type OpSetGeometry struct {
	Width  int32
	Height int32
	Format api.PixelFormat
}

func (OpSetUsage) isOp()       {}
func (OpConnect) isOp()        {}
func (OpDisconnect) isOp()     {}
func (OpSetCrop) isOp()        {}
func (OpSetBufferCount) isOp() {}
func (OpSetGeometry) isOp()    {}

// Perform validates the session and executes op. Values outside the closed
// operation set return ErrUnknownOperation.
func (s *Session) Perform(op Op) error {
	if err := s.Validate(); err != nil {
		return err
	}
	switch op := op.(type) {
	case OpSetUsage:
		s.SetUsage(op.Usage)
		return nil
	case OpConnect:
		return s.Connect(op.API)
	case OpDisconnect:
		return s.Disconnect(op.API)
	case OpSetCrop:
		return s.SetCrop(op.Crop)
	case OpSetBufferCount:
		return s.SetBufferCount(op.Count)
	case OpSetGeometry:
		return s.SetBuffersGeometry(op.Width, op.Height, op.Format)
	default:
		return ErrUnknownOperation
	}
}
