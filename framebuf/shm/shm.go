// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shm mirrors an exchange into a memory-mapped file so a preview
// process can read frames without a socket round trip.
//
// The file starts with a fixed header followed by the pixels. Writers
// bump a sequence counter to an odd value before copying and back to an
// even value after; readers retry when the counter changed or was odd.
package shm

import (
	"context"
	"errors"
	"time"

	"github.com/gogpu/daro/framebuf"
	"github.com/gogpu/daro/internal/logx"
)

const (
	magic      = 0x4f524144 // "DARO"
	version    = 1
	headerSize = 64

	offMagic   = 0
	offVersion = 4
	offWidth   = 8
	offHeight  = 12
	offStride  = 16
	offSeq     = 24
	offNumber  = 32
)

var (
	// ErrUnsupported is returned on platforms without mmap.
	ErrUnsupported = errors.New("shm: shared memory not supported on this platform")

	// ErrBadHeader is returned when opening a file that is not a mirror.
	ErrBadHeader = errors.New("shm: bad header")

	// ErrNoFrame is returned by Read when the writer keeps the sequence
	// busy for longer than the retry budget.
	ErrNoFrame = errors.New("shm: no consistent frame")
)

// Pump copies every new frame from x into m until ctx is done. It polls
// the exchange version at the given interval and never blocks the
// producer for longer than one frame copy.
func Pump(ctx context.Context, x *framebuf.Exchange, m *Mirror, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	var last uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if x.Version() == last {
			continue
		}
		f, err := x.Lock()
		if err != nil {
			continue
		}
		err = m.Write(f)
		x.Unlock()
		if err != nil {
			logx.L().Warn("shm: mirror write failed", "err", err)
			continue
		}
		last = f.Number
	}
}
