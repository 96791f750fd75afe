// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
)

// Size limits enforced by every device.
const (
	MaxTextureSize = 8192
	MaxTargetSize  = 16384
)

var (
	// ErrRemoved is reported by Err once a device has been lost.
	ErrRemoved = errors.New("device: removed")

	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("device: closed")

	// ErrTooLarge is returned for targets or textures over the size limits.
	ErrTooLarge = errors.New("device: size exceeds limit")

	// ErrNotRegistered is returned by Open for an unknown device name.
	ErrNotRegistered = errors.New("device: not registered")

	// ErrNotAvailable is returned by OpenDefault when no device opens.
	ErrNotAvailable = errors.New("device: no device available")
)

// Device is the rendering context the compositor draws through.
//
// A Device is not safe for concurrent use; the engine serializes every
// call on its device lock. Err may be polled at any time.
type Device interface {
	// Name identifies the device for logs.
	Name() string

	// Format is the pixel format of render targets.
	Format() gputypes.TextureFormat

	// NewTarget allocates a render target of the given size.
	NewTarget(width, height int) (*image.RGBA, error)

	// Err returns nil while the device is usable and a non-nil reason
	// (wrapping ErrRemoved) once it has been lost.
	Err() error

	// Close releases the device. Close on a lost device is allowed.
	Close() error
}

// ShaderLoader is implemented by devices that execute the composite
// shader themselves. Other devices accept the compiled module and ignore it.
type ShaderLoader interface {
	LoadShader(spirv []uint32) error
}

// Texture is an uploaded image in device memory.
type Texture struct {
	Image *image.RGBA
	Owner string
}

// Bounds returns the texture size as a rectangle at the origin.
func (t *Texture) Bounds() image.Rectangle { return t.Image.Bounds() }

// Upload copies img into a texture owned by d.
func Upload(d Device, img image.Image) (*Texture, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("device: empty image")
	}
	if b.Dx() > MaxTextureSize || b.Dy() > MaxTextureSize {
		return nil, fmt.Errorf("%w: texture %dx%d", ErrTooLarge, b.Dx(), b.Dy())
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = toRGBA(img)
	} else {
		rgba = cloneRGBA(rgba)
	}
	return &Texture{Image: rgba, Owner: d.Name()}, nil
}

func checkTargetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("device: invalid target size %dx%d", width, height)
	}
	if width > MaxTargetSize || height > MaxTargetSize {
		return fmt.Errorf("%w: target %dx%d", ErrTooLarge, width, height)
	}
	return nil
}
