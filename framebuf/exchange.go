// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framebuf hands completed frames from the renderer to an
// independently paced consumer.
//
// An Exchange is a single-slot mailbox: the producer publishes whole
// frames tagged with a frame number, the consumer locks the slot, copies
// what it needs and unlocks. The producer never writes into a locked
// slot; it waits briefly for the consumer and otherwise skips the frame.
package framebuf

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// DefaultPublishWait is how long Publish waits for a locked slot.
const DefaultPublishWait = 10 * time.Millisecond

var (
	// ErrBusy is returned by Publish when the consumer held the slot for
	// longer than the publish wait. The frame is skipped.
	ErrBusy = errors.New("framebuf: consumer holds the frame")

	// ErrMismatch is returned when the source frame does not match the
	// exchange dimensions. The frame is skipped.
	ErrMismatch = errors.New("framebuf: frame dimensions mismatch")

	// ErrLocked is returned by Lock when the slot is already locked.
	ErrLocked = errors.New("framebuf: already locked")

	// ErrInvalidSize is returned by New for non-positive dimensions.
	ErrInvalidSize = errors.New("framebuf: invalid size")
)

// Frame is a read-only view of the published frame. Pix is valid only
// until the matching Unlock.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
	Number uint64
	Format gputypes.TextureFormat
}

// Image wraps the frame pixels without copying.
func (f Frame) Image() *image.RGBA {
	return &image.RGBA{Pix: f.Pix, Stride: f.Stride, Rect: image.Rect(0, 0, f.Width, f.Height)}
}

// Stats counts exchange activity.
type Stats struct {
	Published  uint64
	Busy       uint64
	Mismatched uint64
}

// Exchange is a versioned single-slot frame buffer.
type Exchange struct {
	width, height, stride int
	wait                  time.Duration

	mu       sync.Mutex
	pix      []byte
	number   uint64
	locked   bool
	released chan struct{}

	published  atomic.Uint64
	busy       atomic.Uint64
	mismatched atomic.Uint64
}

// New allocates an exchange for width x height RGBA frames.
func New(width, height int) (*Exchange, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	stride := width * BytesPerPixel
	return &Exchange{
		width:  width,
		height: height,
		stride: stride,
		wait:   DefaultPublishWait,
		pix:    make([]byte, stride*height),
	}, nil
}

// SetPublishWait changes how long Publish waits for a locked slot.
func (x *Exchange) SetPublishWait(d time.Duration) {
	x.mu.Lock()
	x.wait = d
	x.mu.Unlock()
}

// Size returns the frame dimensions and stride.
func (x *Exchange) Size() (width, height, stride int) {
	return x.width, x.height, x.stride
}

// Publish copies a complete frame into the slot and tags it with number.
// It returns ErrMismatch or ErrBusy when the frame is skipped.
func (x *Exchange) Publish(pix []byte, stride, width, height int, number uint64) error {
	if width != x.width || height != x.height || stride < width*BytesPerPixel ||
		len(pix) < (height-1)*stride+width*BytesPerPixel {
		x.mismatched.Add(1)
		return fmt.Errorf("%w: got %dx%d stride %d, want %dx%d",
			ErrMismatch, width, height, stride, x.width, x.height)
	}

	x.mu.Lock()
	if x.locked {
		if !x.awaitUnlockLocked() {
			x.mu.Unlock()
			x.busy.Add(1)
			return ErrBusy
		}
	}
	row := min(stride, x.stride)
	for y := range height {
		copy(x.pix[y*x.stride:y*x.stride+row], pix[y*stride:y*stride+row])
	}
	x.number = number
	x.mu.Unlock()

	x.published.Add(1)
	return nil
}

// PublishImage publishes img tagged with number.
func (x *Exchange) PublishImage(img *image.RGBA, number uint64) error {
	b := img.Bounds()
	return x.Publish(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], img.Stride, b.Dx(), b.Dy(), number)
}

// awaitUnlockLocked waits up to the publish wait for Unlock. It is called
// and returns with x.mu held.
func (x *Exchange) awaitUnlockLocked() bool {
	deadline := time.NewTimer(x.wait)
	defer deadline.Stop()
	for x.locked {
		ch := x.released
		x.mu.Unlock()
		select {
		case <-ch:
		case <-deadline.C:
			x.mu.Lock()
			return !x.locked
		}
		x.mu.Lock()
	}
	return true
}

// Lock grants read access to the last published frame. The producer will
// not modify it until Unlock. Only one consumer may hold the lock.
func (x *Exchange) Lock() (Frame, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.locked {
		return Frame{}, ErrLocked
	}
	x.locked = true
	x.released = make(chan struct{})
	return Frame{
		Pix:    x.pix,
		Width:  x.width,
		Height: x.height,
		Stride: x.stride,
		Number: x.number,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}, nil
}

// Unlock releases the frame obtained by Lock. Unlocking an unlocked
// exchange is a no-op.
func (x *Exchange) Unlock() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.locked {
		return
	}
	x.locked = false
	close(x.released)
}

// CopyTo copies the current frame into dst under the lock and returns its
// number. dst must have the exchange dimensions.
func (x *Exchange) CopyTo(dst *image.RGBA) (uint64, error) {
	b := dst.Bounds()
	if b.Dx() != x.width || b.Dy() != x.height {
		return 0, fmt.Errorf("%w: destination %dx%d", ErrMismatch, b.Dx(), b.Dy())
	}
	f, err := x.Lock()
	if err != nil {
		return 0, err
	}
	defer x.Unlock()
	row := x.width * BytesPerPixel
	for y := range x.height {
		d := dst.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[d:d+row], f.Pix[y*f.Stride:y*f.Stride+row])
	}
	return f.Number, nil
}

// Version returns the number of the last published frame.
func (x *Exchange) Version() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.number
}

// Stats returns exchange counters.
func (x *Exchange) Stats() Stats {
	return Stats{
		Published:  x.published.Load(),
		Busy:       x.busy.Load(),
		Mismatched: x.mismatched.Load(),
	}
}
