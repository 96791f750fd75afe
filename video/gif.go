// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"bufio"
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"

	"github.com/gogpu/daro/media"
	"golang.org/x/image/draw"
)

func init() {
	RegisterDecoder("gif", []string{"gif"}, OpenGIF)
}

// gifDecoder plays an animated GIF. Frames are composed onto a canvas
// following each frame's disposal method.
type gifDecoder struct {
	g      *gif.GIF
	info   Info
	canvas *image.RGBA
	saved  *image.RGBA // canvas before a DisposalPrevious frame
	next   int
	prev   int // index of the last composed frame, -1 before the first
}

// OpenGIF decodes every frame of an animated GIF. The logical screen is
// checked against policy before any frame is decoded.
func OpenGIF(path string, policy media.Policy) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := gif.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("gif: %w", err)
	}
	if cfg.Width != 0 || cfg.Height != 0 {
		if err := policy.CheckDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, fmt.Errorf("gif: %w", err)
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	g, err := gif.DecodeAll(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif: no frames")
	}

	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}
	if err := policy.CheckDimensions(w, h); err != nil {
		return nil, fmt.Errorf("gif: %w", err)
	}

	return &gifDecoder{
		g: g,
		info: Info{
			Width:       w,
			Height:      h,
			FrameRate:   gifRate(g.Delay),
			TotalFrames: len(g.Image),
			HasAlpha:    gifHasAlpha(g),
		},
		canvas: image.NewRGBA(image.Rect(0, 0, w, h)),
		prev:   -1,
	}, nil
}

// gifRate derives a frame rate from the mean frame delay (1/100 s units).
// GIFs with no delays play at 10 fps, as browsers do.
func gifRate(delays []int) float64 {
	total := 0
	for _, d := range delays {
		total += max(d, 0)
	}
	if total == 0 {
		return 10
	}
	return 100 * float64(len(delays)) / float64(total)
}

func gifHasAlpha(g *gif.GIF) bool {
	for _, fr := range g.Image {
		for _, c := range fr.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

func (d *gifDecoder) Info() Info { return d.info }

func (d *gifDecoder) Next(dst *image.RGBA) error {
	if d.next >= len(d.g.Image) {
		return io.EOF
	}
	d.compose(d.next)
	d.next++
	copy(dst.Pix, d.canvas.Pix)
	return nil
}

// compose applies the previous frame's disposal and draws frame i.
func (d *gifDecoder) compose(i int) {
	if d.prev >= 0 && d.prev < len(d.g.Disposal) {
		switch d.g.Disposal[d.prev] {
		case gif.DisposalBackground:
			draw.Draw(d.canvas, d.g.Image[d.prev].Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			if d.saved != nil {
				copy(d.canvas.Pix, d.saved.Pix)
			}
		}
	}
	if i < len(d.g.Disposal) && d.g.Disposal[i] == gif.DisposalPrevious {
		if d.saved == nil {
			d.saved = image.NewRGBA(d.canvas.Rect)
		}
		copy(d.saved.Pix, d.canvas.Pix)
	}
	fr := d.g.Image[i]
	draw.Draw(d.canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)
	d.prev = i
}

// Seek replays frames up to frame so disposal state is exact.
func (d *gifDecoder) Seek(frame int) error {
	frame = min(max(frame, 0), len(d.g.Image))
	clear(d.canvas.Pix)
	d.prev = -1
	for i := range frame {
		d.compose(i)
	}
	d.next = frame
	return nil
}

func (d *gifDecoder) Close() error {
	d.g = &gif.GIF{}
	d.canvas, d.saved = nil, nil
	return nil
}
