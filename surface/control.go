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

// CreationData is what the compositor returns when a surface is created.
type CreationData struct {
	Token    api.Token
	Identity uint32
	Width    uint32
	Height   uint32
	Format   api.PixelFormat

	// ConnectionRef and SurfaceRef identify the compositor connection and
	// surface objects when a handle is transferred between processes.
	ConnectionRef uint64
	SurfaceRef    uint64
}

// Control is the window-manager-facing handle of a surface: pure one-way
// property setters forwarded to the compositor, with no buffer state.
type Control struct {
	composer api.Composer

	token    api.Token
	identity uint32
	width    uint32
	height   uint32
	format   api.PixelFormat
	flags    api.SurfaceFlags

	connectionRef uint64
	surfaceRef    uint64
}

// NewControl wraps the surface created by the compositor.
func NewControl(composer api.Composer, data CreationData, flags api.SurfaceFlags) *Control {
	return &Control{
		composer:      composer,
		token:         data.Token,
		identity:      data.Identity,
		width:         data.Width,
		height:        data.Height,
		format:        data.Format,
		flags:         flags,
		connectionRef: data.ConnectionRef,
		surfaceRef:    data.SurfaceRef,
	}
}

func (c *Control) validate() error {
	if c == nil || c.token < 0 || c.composer == nil {
		internalLogger.errorf("invalid control (token=%d)", c.tokenOrInvalid())
		return ErrUninitialized
	}
	return nil
}

func (c *Control) tokenOrInvalid() api.Token {
	if c == nil {
		return api.InvalidToken
	}
	return c.token
}

// IsValid reports whether the control references a live surface.
func (c *Control) IsValid() bool {
	return c != nil && c.token >= 0 && c.composer != nil
}

// Token returns the compositor-facing surface token.
func (c *Control) Token() api.Token {
	return c.token
}

func (c *Control) SetLayer(layer int32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetLayer(c.token, layer)
}

func (c *Control) SetPosition(x, y int32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetPosition(c.token, x, y)
}

func (c *Control) SetSize(w, h uint32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetSize(c.token, w, h)
}

func (c *Control) Hide() error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.Hide(c.token)
}

func (c *Control) Show(layer int32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.Show(c.token, layer)
}

func (c *Control) Freeze() error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.Freeze(c.token)
}

func (c *Control) Unfreeze() error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.Unfreeze(c.token)
}

func (c *Control) SetFlags(flags, mask api.SurfaceFlags) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetFlags(c.token, flags, mask)
}

func (c *Control) SetTransparentRegionHint(transparent region.Region) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetTransparentRegionHint(c.token, transparent)
}

func (c *Control) SetAlpha(alpha float32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetAlpha(c.token, alpha)
}

func (c *Control) SetMatrix(dsdx, dtdx, dsdy, dtdy float32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetMatrix(c.token, dsdx, dtdx, dsdy, dtdy)
}

func (c *Control) SetFreezeTint(tint uint32) error {
	if err := c.validate(); err != nil {
		return err
	}
	return c.composer.SetFreezeTint(c.token, tint)
}

// Destroy tears down the surface's server-side state. Safe to call on an
// invalid control.
func (c *Control) Destroy() {
	if !c.IsValid() {
		return
	}
	if err := c.composer.DestroySurface(c.token); err != nil {
		internalLogger.warnf("destroySurface(token=%d) failed: %v", c.token, err)
	}
	c.composer = nil
	c.token = api.InvalidToken
}

// Handle returns the control's cross-process transfer form. Invalid
// controls serialize the sentinel handle: token -1, identity 0, meaning
// "no operations permitted" on the receiving side.
func (c *Control) Handle() Handle {
	if !c.IsValid() {
		return NullHandle()
	}
	return Handle{
		ConnectionRef: c.connectionRef,
		SurfaceRef:    c.surfaceRef,
		Token:         c.token,
		Identity:      c.identity,
		Width:         c.width,
		Height:        c.height,
		Format:        c.format,
		Flags:         c.flags,
	}
}
