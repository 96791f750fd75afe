// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package preview shows published frames in a desktop window.
//
// The window is only built with the "preview" build tag, which pulls in
// ebiten and its platform dependencies. Without the tag Run returns
// ErrUnavailable and the rest of the package still works, so hosts can
// link it unconditionally.
package preview

import (
	"errors"
	"image"

	"github.com/gogpu/daro/framebuf"
)

// ErrUnavailable is returned by Run in builds without the preview tag.
var ErrUnavailable = errors.New("preview: built without the preview tag")

// Source supplies frames to the window. *shm.Reader implements it
// directly; wrap an in-process exchange with FromExchange.
type Source interface {
	Size() (width, height int)
	Read(dst *image.RGBA) (uint64, error)
}

// Options configures the window.
type Options struct {
	Title      string
	Scale      float64 // window size relative to the frame, 0 means 0.5
	Fullscreen bool
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 0.5
	}
	return o.Scale
}

func (o Options) title() string {
	if o.Title == "" {
		return "daro preview"
	}
	return o.Title
}

type exchangeSource struct{ x *framebuf.Exchange }

// FromExchange adapts an exchange to Source.
func FromExchange(x *framebuf.Exchange) Source { return exchangeSource{x} }

func (s exchangeSource) Size() (int, int) {
	w, h, _ := s.x.Size()
	return w, h
}

func (s exchangeSource) Read(dst *image.RGBA) (uint64, error) { return s.x.CopyTo(dst) }

// puller keeps the newest frame of a source. Frames that fail to read
// or repeat the last number leave the image untouched.
type puller struct {
	src    Source
	img    *image.RGBA
	number uint64
	frames uint64
}

func newPuller(src Source) *puller {
	w, h := src.Size()
	return &puller{src: src, img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// pull reads the source and reports whether a new frame arrived.
func (p *puller) pull() bool {
	n, err := p.src.Read(p.img)
	if err != nil || n == p.number {
		return false
	}
	p.number = n
	p.frames++
	return true
}
