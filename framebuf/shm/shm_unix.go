// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/daro/framebuf"
	"golang.org/x/sys/unix"
)

// Mirror is the writing side of a shared frame file.
type Mirror struct {
	f                     *os.File
	data                  []byte
	width, height, stride int
}

// Create creates (or truncates) path and maps it for width x height frames.
func Create(path string, width, height int) (*Mirror, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", framebuf.ErrInvalidSize, width, height)
	}
	stride := width * framebuf.BytesPerPixel
	size := headerSize + stride*height

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: size %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	le := binary.LittleEndian
	le.PutUint32(data[offMagic:], magic)
	le.PutUint32(data[offVersion:], version)
	le.PutUint32(data[offWidth:], uint32(width))
	le.PutUint32(data[offHeight:], uint32(height))
	le.PutUint32(data[offStride:], uint32(stride))

	return &Mirror{f: f, data: data, width: width, height: height, stride: stride}, nil
}

// Write copies frame f into the mapping.
func (m *Mirror) Write(f framebuf.Frame) error {
	if f.Width != m.width || f.Height != m.height {
		return fmt.Errorf("%w: %dx%d into %dx%d", framebuf.ErrMismatch, f.Width, f.Height, m.width, m.height)
	}
	seq := word(m.data, offSeq)
	atomic.AddUint64(seq, 1)
	row := m.width * framebuf.BytesPerPixel
	for y := range m.height {
		d := headerSize + y*m.stride
		copy(m.data[d:d+row], f.Pix[y*f.Stride:y*f.Stride+row])
	}
	atomic.StoreUint64(word(m.data, offNumber), f.Number)
	atomic.AddUint64(seq, 1)
	return nil
}

// Close unmaps and closes the file. The file itself is left in place.
func (m *Mirror) Close() error {
	err := unix.Munmap(m.data)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Reader is the reading side of a shared frame file.
type Reader struct {
	f                     *os.File
	data                  []byte
	width, height, stride int
}

// Open maps an existing mirror file read-only.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() < headerSize {
		f.Close()
		return nil, ErrBadHeader
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	le := binary.LittleEndian
	r := &Reader{
		f:      f,
		data:   data,
		width:  int(le.Uint32(data[offWidth:])),
		height: int(le.Uint32(data[offHeight:])),
		stride: int(le.Uint32(data[offStride:])),
	}
	if le.Uint32(data[offMagic:]) != magic || le.Uint32(data[offVersion:]) != version ||
		r.width <= 0 || r.height <= 0 || r.stride < r.width*framebuf.BytesPerPixel ||
		int64(headerSize+r.stride*r.height) > st.Size() {
		r.Close()
		return nil, ErrBadHeader
	}
	return r, nil
}

// Size returns the frame dimensions stored in the header.
func (r *Reader) Size() (width, height int) { return r.width, r.height }

// Read copies the latest consistent frame into dst and returns its number.
func (r *Reader) Read(dst *image.RGBA) (uint64, error) {
	b := dst.Bounds()
	if b.Dx() != r.width || b.Dy() != r.height {
		return 0, fmt.Errorf("%w: destination %dx%d", framebuf.ErrMismatch, b.Dx(), b.Dy())
	}
	seq := word(r.data, offSeq)
	row := r.width * framebuf.BytesPerPixel
	for range 16 {
		before := atomic.LoadUint64(seq)
		if before%2 == 1 {
			continue
		}
		for y := range r.height {
			s := headerSize + y*r.stride
			d := dst.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[d:d+row], r.data[s:s+row])
		}
		n := atomic.LoadUint64(word(r.data, offNumber))
		if atomic.LoadUint64(seq) == before {
			return n, nil
		}
	}
	return 0, ErrNoFrame
}

// Close unmaps and closes the file.
func (r *Reader) Close() error {
	err := unix.Munmap(r.data)
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// word points at an 8-byte aligned counter in the mapping.
func word(data []byte, off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&data[off]))
}
