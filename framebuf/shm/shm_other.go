// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !unix

package shm

import (
	"image"

	"github.com/gogpu/daro/framebuf"
)

// Mirror is unavailable on this platform.
type Mirror struct{}

// Create always fails with ErrUnsupported.
func Create(string, int, int) (*Mirror, error) { return nil, ErrUnsupported }

// Write always fails with ErrUnsupported.
func (*Mirror) Write(framebuf.Frame) error { return ErrUnsupported }

// Close is a no-op.
func (*Mirror) Close() error { return nil }

// Reader is unavailable on this platform.
type Reader struct{}

// Open always fails with ErrUnsupported.
func Open(string) (*Reader, error) { return nil, ErrUnsupported }

// Size returns zero dimensions.
func (*Reader) Size() (int, int) { return 0, 0 }

// Read always fails with ErrUnsupported.
func (*Reader) Read(*image.RGBA) (uint64, error) { return 0, ErrUnsupported }

// Close is a no-op.
func (*Reader) Close() error { return nil }
