// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
)

// NameSoftware is the registry name of the CPU device.
const NameSoftware = "software"

// Software is a CPU device. It never loses itself on its own; Invalidate
// simulates a driver reset.
type Software struct {
	mu     sync.Mutex
	lost   error
	closed bool
}

// NewSoftware returns a ready CPU device.
func NewSoftware() *Software { return &Software{} }

// Name implements Device.
func (*Software) Name() string { return NameSoftware }

// Format implements Device.
func (*Software) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// NewTarget implements Device.
func (s *Software) NewTarget(width, height int) (*image.RGBA, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}
	if err := checkTargetSize(width, height); err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// LoadShader implements ShaderLoader. The module header is validated;
// the CPU compositor does not execute it.
func (s *Software) LoadShader(spirv []uint32) error {
	if err := s.Err(); err != nil {
		return err
	}
	return checkSPIRV(spirv)
}

// Invalidate marks the device as removed with the given reason.
func (s *Software) Invalidate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost == nil {
		s.lost = fmt.Errorf("%w: %s", ErrRemoved, reason)
	}
}

// Err implements Device.
func (s *Software) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost != nil {
		return s.lost
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Device.
func (s *Software) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var (
	_ Device       = (*Software)(nil)
	_ ShaderLoader = (*Software)(nil)
)
