// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/daro/framebuf"
)

// Wire format of one frame message, little endian:
//
//	0  magic "DRF1"
//	4  width  uint32
//	8  height uint32
//	12 number uint64
//	20 reserved
//	24 pixels, RGBA, width*4 bytes per row
const (
	headerSize = 24
	maxExtent  = 16384
)

var frameMagic = [4]byte{'D', 'R', 'F', '1'}

// ErrBadFrame is returned for a message that is not a well-formed frame.
var ErrBadFrame = errors.New("stream: malformed frame")

// AppendFrame appends the wire encoding of f to dst. Rows are packed, so
// any padding in f's stride is dropped.
func AppendFrame(dst []byte, f framebuf.Frame) []byte {
	row := f.Width * framebuf.BytesPerPixel
	var hdr [headerSize]byte
	copy(hdr[:4], frameMagic[:])
	binary.LittleEndian.PutUint32(hdr[4:], uint32(f.Width))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(f.Height))
	binary.LittleEndian.PutUint64(hdr[12:], f.Number)
	dst = append(dst, hdr[:]...)
	for y := 0; y < f.Height; y++ {
		off := y * f.Stride
		dst = append(dst, f.Pix[off:off+row]...)
	}
	return dst
}

// DecodeFrame decodes msg into dst, reallocating it when the size
// differs, and returns the image and frame number.
func DecodeFrame(msg []byte, dst *image.RGBA) (*image.RGBA, uint64, error) {
	if len(msg) < headerSize || [4]byte(msg[:4]) != frameMagic {
		return dst, 0, ErrBadFrame
	}
	w := int(binary.LittleEndian.Uint32(msg[4:]))
	h := int(binary.LittleEndian.Uint32(msg[8:]))
	n := binary.LittleEndian.Uint64(msg[12:])
	if w <= 0 || h <= 0 || w > maxExtent || h > maxExtent {
		return dst, 0, fmt.Errorf("%w: size %dx%d", ErrBadFrame, w, h)
	}
	row := w * framebuf.BytesPerPixel
	if len(msg)-headerSize != row*h {
		return dst, 0, fmt.Errorf("%w: %d pixel bytes for %dx%d", ErrBadFrame, len(msg)-headerSize, w, h)
	}

	if dst == nil || dst.Rect.Dx() != w || dst.Rect.Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	pix := msg[headerSize:]
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+row], pix[y*row:(y+1)*row])
	}
	return dst, n, nil
}
