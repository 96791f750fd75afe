// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Host adapts a device owned by a host application.
//
// The host keeps ownership of the GPU device; the engine composites on
// the CPU and the host uploads the published frames. Host reports the
// device as removed as soon as the provider stops returning a device.
type Host struct {
	name     string
	provider gpucontext.DeviceProvider

	mu     sync.Mutex
	closed bool
}

// NewHost wraps provider under the given registry name.
func NewHost(name string, provider gpucontext.DeviceProvider) *Host {
	return &Host{name: name, provider: provider}
}

// Name implements Device.
func (h *Host) Name() string { return h.name }

// Format implements Device. Hosts with an undefined surface format get
// RGBA8, which is what the compositor writes.
func (h *Host) Format() gputypes.TextureFormat {
	if f := h.provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		return f
	}
	return gputypes.TextureFormatRGBA8Unorm
}

// NewTarget implements Device.
func (h *Host) NewTarget(width, height int) (*image.RGBA, error) {
	if err := h.Err(); err != nil {
		return nil, err
	}
	if err := checkTargetSize(width, height); err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// Err implements Device.
func (h *Host) Err() error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if h.provider == nil || h.provider.Device() == nil {
		return ErrRemoved
	}
	return nil
}

// Close implements Device. The provider itself is not closed.
func (h *Host) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

// RegisterHost registers provider under name so the engine can open it.
func RegisterHost(name string, provider gpucontext.DeviceProvider) {
	Register(name, func() (Device, error) { return NewHost(name, provider), nil })
}

var _ Device = (*Host)(nil)
