// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gogpu/daro/layer"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// maxTextExtent bounds the layer-space raster of a text layer.
const maxTextExtent = 4096

type textLine struct {
	s     string
	width fixed.Int26_6
}

// measureLine returns the advance of s including letter spacing and
// kerning.
func measureLine(face font.Face, s string, spacing fixed.Int26_6) fixed.Int26_6 {
	var w fixed.Int26_6
	prev := rune(-1)
	n := 0
	for _, r := range s {
		if prev >= 0 {
			w += face.Kern(prev, r)
		}
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			adv, _ = face.GlyphAdvance('�')
		}
		w += adv
		prev = r
		n++
	}
	if n > 1 {
		w += spacing * fixed.Int26_6(n-1)
	}
	return w
}

// textExtent returns the size a text layer occupies when its rect is
// unset, so a bare string still renders.
func textExtent(lines []textLine, lineH fixed.Int26_6) (w, h int) {
	var maxW fixed.Int26_6
	for _, ln := range lines {
		maxW = max(maxW, ln.width)
	}
	return maxW.Ceil(), (lineH * fixed.Int26_6(len(lines))).Ceil()
}

// rasterizeText draws the layer's paragraph into a coverage mask in
// layer space. The paragraph is centred vertically in the layer rect and
// each line is aligned horizontally. The returned size is the layer
// extent actually used.
func rasterizeText(face font.Face, l *layer.Layer) (*image.Alpha, float64, float64) {
	text := strings.ReplaceAll(l.Text, "\r\n", "\n")
	if text == "" {
		return nil, 0, 0
	}

	spacing := fixed.Int26_6(math.Round(float64(l.LetterSpacing) * 64))
	m := face.Metrics()
	lineH := m.Height
	if l.LineHeight > 0 {
		// Uniform spacing as a multiple of the font size.
		lineH = fixed.Int26_6(math.Round(l.EffectiveFontSize() * float64(l.LineHeight) * 64))
	}
	if lineH <= 0 {
		lineH = m.Ascent + m.Descent
	}

	raw := strings.Split(text, "\n")
	lines := make([]textLine, len(raw))
	for i, s := range raw {
		lines[i] = textLine{s: s, width: measureLine(face, s, spacing)}
	}

	sx, sy := float64(l.SizeX), float64(l.SizeY)
	if sx <= 0 || sy <= 0 {
		w, h := textExtent(lines, lineH)
		if sx <= 0 {
			sx = float64(w)
		}
		if sy <= 0 {
			sy = float64(h)
		}
	}
	w := min(int(math.Ceil(sx)), maxTextExtent)
	h := min(int(math.Ceil(sy)), maxTextExtent)
	if w <= 0 || h <= 0 {
		return nil, 0, 0
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}

	total := lineH * fixed.Int26_6(len(lines))
	top := (fixed.I(h) - total) / 2
	for i, ln := range lines {
		var x fixed.Int26_6
		switch l.Align {
		case layer.AlignCenter:
			x = (fixed.I(w) - ln.width) / 2
		case layer.AlignRight:
			x = fixed.I(w) - ln.width
		}
		d.Dot = fixed.Point26_6{X: x, Y: top + lineH*fixed.Int26_6(i) + m.Ascent}
		drawLine(d, ln.s, spacing)
	}

	if l.Antialias == layer.AntialiasSharp {
		threshold(mask)
	}
	return mask, float64(w), float64(h)
}

func drawLine(d *font.Drawer, s string, spacing fixed.Int26_6) {
	if spacing == 0 {
		d.DrawString(s)
		return
	}
	prev := rune(-1)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if prev >= 0 {
			d.Dot.X += d.Face.Kern(prev, r) + spacing
		}
		d.DrawString(string(r))
		prev = r
	}
}

// threshold turns smooth coverage into hard edges.
func threshold(m *image.Alpha) {
	for i, a := range m.Pix {
		if a >= 0x80 {
			m.Pix[i] = 0xff
		} else {
			m.Pix[i] = 0
		}
	}
}
