// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/daro/internal/logx"
	"github.com/gogpu/daro/layer"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// Textures supplies layer pixels. Returned images must stay unchanged
// until Render returns.
type Textures interface {
	Image(handle int32) (*image.RGBA, bool)
	Video(id int32) (*image.RGBA, bool)
	Stream(handle int32) (*image.RGBA, bool)
}

// Options control a single Render call.
type Options struct {
	ShowBounds bool
}

// Stats counts what one Render call did.
type Stats struct {
	Drawn   int
	Masked  int
	Skipped int
}

var (
	boundsColor = premul(0, 1, 0, 0.8)
	anchorColor = color.RGBA{R: 0xff, A: 0xff}
)

const (
	boundsHalfWidth = 1
	anchorArm       = 10
)

// Compositor draws layer stacks into an RGBA target. It is not safe for
// concurrent use; the engine serializes calls under its device lock.
type Compositor struct {
	width, height int
	geom          *Geometry
	fonts         *Fonts
	interp        draw.Interpolator

	z       *vector.Rasterizer
	scratch *image.RGBA
	cover   *image.Alpha
	clip    *image.Alpha
}

// New returns a compositor for a width by height target.
func New(width, height int, fonts *Fonts) (*Compositor, error) {
	if err := validateSize(width, height); err != nil {
		return nil, err
	}
	if fonts == nil {
		fonts = NewFonts(false, "")
	}
	return &Compositor{
		width:  width,
		height: height,
		geom:   NewGeometry(),
		fonts:  fonts,
		interp: draw.ApproxBiLinear,
		z:      vector.NewRasterizer(width, height),
	}, nil
}

// Size returns the target dimensions.
func (c *Compositor) Size() (int, int) { return c.width, c.height }

// SetInterpolator selects the texture sampler. Nil restores bilinear.
func (c *Compositor) SetInterpolator(i draw.Interpolator) {
	if i == nil {
		i = draw.ApproxBiLinear
	}
	c.interp = i
}

// Render clears dst and draws the active layers in order.
func (c *Compositor) Render(dst *image.RGBA, layers []layer.Layer, tex Textures, opts Options) Stats {
	var st Stats
	clear(dst.Pix)

	masks := maskTargets(layers)
	for i := range layers {
		l := &layers[i]
		if !l.Active || l.Type == layer.TypeGroup {
			continue
		}

		drawn := false
		if mi, ok := masks[l.ID]; ok && mi != i {
			drawn = c.drawMasked(dst, l, &layers[mi], tex)
			if drawn {
				st.Masked++
			}
		} else {
			drawn = c.drawLayer(dst, l, tex)
		}
		if drawn {
			st.Drawn++
		} else {
			st.Skipped++
		}

		if opts.ShowBounds {
			c.drawBounds(dst, l)
		}
	}
	return st
}

// maskTargets maps each layer id to the index of the first active mask
// layer that lists it.
func maskTargets(layers []layer.Layer) map[int32]int {
	var m map[int32]int
	for i := range layers {
		l := &layers[i]
		if !l.Active || l.Type != layer.TypeMask {
			continue
		}
		for _, id := range l.Masks {
			if id < 0 {
				continue
			}
			if m == nil {
				m = make(map[int32]int)
			}
			if _, ok := m[id]; !ok {
				m[id] = i
			}
		}
	}
	return m
}

func (c *Compositor) drawLayer(dst *image.RGBA, l *layer.Layer, tex Textures) bool {
	if l.Opacity <= 0 {
		return false
	}
	switch l.Type {
	case layer.TypeRect, layer.TypeMask:
		if src, ok := texture(l, tex); ok {
			return c.drawTexture(dst, l, src)
		}
		c.fill(dst, l, premul(l.ColorR, l.ColorG, l.ColorB, l.Opacity), c.geom.quadPath)
		return true
	case layer.TypeEllipse:
		col := premul(l.ColorR, l.ColorG, l.ColorB, l.ColorA*l.Opacity)
		if col.A == 0 {
			return false
		}
		c.fill(dst, l, col, c.geom.ellipsePath)
		return true
	case layer.TypeText:
		return c.drawText(dst, l)
	case layer.TypeImage, layer.TypeVideo:
		src, ok := texture(l, tex)
		if !ok {
			return false
		}
		return c.drawTexture(dst, l, src)
	}
	return false
}

// drawMasked renders l off-screen and composites it through the
// coverage of mask m.
func (c *Compositor) drawMasked(dst *image.RGBA, l, m *layer.Layer, tex Textures) bool {
	if c.scratch == nil {
		c.scratch = image.NewRGBA(dst.Bounds())
		c.cover = image.NewAlpha(dst.Bounds())
	}
	clear(c.scratch.Pix)
	if !c.drawLayer(c.scratch, l, tex) {
		return false
	}

	clear(c.cover.Pix)
	c.coverage(c.cover, m)
	if m.MaskMode == layer.MaskOuter {
		for i, a := range c.cover.Pix {
			c.cover.Pix[i] = 0xff - a
		}
	}
	r := dst.Bounds()
	draw.DrawMask(dst, r, c.scratch, r.Min, c.cover, r.Min, draw.Over)
	return true
}

// coverage rasterizes the transformed rect of l into a.
func (c *Compositor) coverage(a *image.Alpha, l *layer.Layer) {
	c.z.Reset(c.width, c.height)
	c.geom.quadPath(c.z, l.Transform(), float64(l.SizeX), float64(l.SizeY))
	c.z.DrawOp = draw.Src
	c.z.Draw(a, a.Bounds(), image.Opaque, image.Point{})
	c.z.DrawOp = draw.Over
}

type pathFunc func(z *vector.Rasterizer, t f64.Aff3, sx, sy float64)

func (c *Compositor) fill(dst *image.RGBA, l *layer.Layer, col color.RGBA, path pathFunc) {
	if l.SizeX <= 0 || l.SizeY <= 0 {
		return
	}
	c.z.Reset(c.width, c.height)
	path(c.z, l.Transform(), float64(l.SizeX), float64(l.SizeY))
	c.z.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
}

// texture resolves the pixels a layer samples from.
func texture(l *layer.Layer, tex Textures) (*image.RGBA, bool) {
	if tex == nil {
		return nil, false
	}
	var (
		img *image.RGBA
		ok  bool
	)
	switch {
	case l.Source == layer.SourceStream:
		img, ok = tex.Stream(l.StreamID)
	case l.Source == layer.SourceVideo, l.Type == layer.TypeVideo:
		img, ok = tex.Video(l.TextureID)
	case l.Source == layer.SourceImage, l.Type == layer.TypeImage:
		img, ok = tex.Image(l.TextureID)
	}
	return img, ok && img != nil && !img.Bounds().Empty()
}

// subRect returns the texture region selected by the layer's normalized
// sub-rectangle.
func subRect(l *layer.Layer, b image.Rectangle) image.Rectangle {
	if l.TexW <= 0 || l.TexH <= 0 {
		return b
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	r := image.Rect(
		b.Min.X+int(math.Round(float64(l.TexX)*w)),
		b.Min.Y+int(math.Round(float64(l.TexY)*h)),
		b.Min.X+int(math.Round(float64(l.TexX+l.TexW)*w)),
		b.Min.Y+int(math.Round(float64(l.TexY+l.TexH)*h)),
	)
	return r.Intersect(b)
}

func (c *Compositor) drawTexture(dst *image.RGBA, l *layer.Layer, src *image.RGBA) bool {
	sr := subRect(l, src.Bounds())
	if sr.Empty() {
		return false
	}
	sized := *l
	if sized.SizeX <= 0 || sized.SizeY <= 0 {
		sized.SizeX, sized.SizeY = float32(sr.Dx()), float32(sr.Dy())
	}
	sx, sy := float64(sized.SizeX), float64(sized.SizeY)
	kx, ky := sx/float64(sr.Dx()), sy/float64(sr.Dy())

	// Source pixels to layer space, optionally spun about the layer
	// centre, then layer space to output.
	s := f64.Aff3{kx, 0, -float64(sr.Min.X) * kx, 0, ky, -float64(sr.Min.Y) * ky}
	if l.TexRot != 0 {
		s = mul(rotateAbout(float64(l.TexRot), sx/2, sy/2), s)
	}
	s2d := mul(sized.Transform(), s)

	var opts *draw.Options
	if l.Opacity < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: unit8(l.Opacity)})}
	}
	if l.TexRot != 0 {
		if c.clip == nil {
			c.clip = image.NewAlpha(dst.Bounds())
		}
		clear(c.clip.Pix)
		c.coverage(c.clip, &sized)
		if opts == nil {
			opts = &draw.Options{}
		}
		opts.DstMask = c.clip
	}

	if opts == nil {
		if p, ok := translation(s2d); ok {
			draw.Draw(dst, sr.Add(p), src, sr.Min, draw.Over)
			return true
		}
	}
	c.interp.Transform(dst, s2d, src, sr, draw.Over, opts)
	return true
}

func (c *Compositor) drawText(dst *image.RGBA, l *layer.Layer) bool {
	col := premul(l.ColorR, l.ColorG, l.ColorB, l.ColorA*l.Opacity)
	if col.A == 0 || l.Text == "" {
		return false
	}
	face, err := c.fonts.Face(l.FontFamily, l.Bold, l.Italic, l.EffectiveFontSize())
	if err != nil {
		logx.L().Debug("render: text layer skipped", "id", l.ID, "err", err)
		return false
	}
	mask, w, h := rasterizeText(face, l)
	if mask == nil {
		return false
	}

	sized := *l
	sized.SizeX, sized.SizeY = float32(w), float32(h)
	t := sized.Transform()
	if p, ok := translation(t); ok {
		r := mask.Bounds().Add(p)
		draw.DrawMask(dst, r, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
		return true
	}

	src := image.NewRGBA(mask.Bounds())
	for i, a := range mask.Pix {
		if a == 0 {
			continue
		}
		o := i * 4
		src.Pix[o+0] = mulDiv(col.R, a)
		src.Pix[o+1] = mulDiv(col.G, a)
		src.Pix[o+2] = mulDiv(col.B, a)
		src.Pix[o+3] = mulDiv(col.A, a)
	}
	c.interp.Transform(dst, t, src, src.Bounds(), draw.Over, nil)
	return true
}

// drawBounds outlines the layer rect in green and marks its anchor with
// a red cross.
func (c *Compositor) drawBounds(dst *image.RGBA, l *layer.Layer) {
	pts := l.Corners()
	c.z.Reset(c.width, c.height)
	for i := range pts {
		segmentPath(c.z, pts[i], pts[(i+1)%len(pts)], boundsHalfWidth)
	}
	c.z.Draw(dst, dst.Bounds(), image.NewUniform(boundsColor), image.Point{})

	ax, ay := l.Anchor()
	c.z.Reset(c.width, c.height)
	segmentPath(c.z, point{ax - anchorArm, ay}, point{ax + anchorArm, ay}, boundsHalfWidth)
	segmentPath(c.z, point{ax, ay - anchorArm}, point{ax, ay + anchorArm}, boundsHalfWidth)
	c.z.Draw(dst, dst.Bounds(), image.NewUniform(anchorColor), image.Point{})
}

// translation reports whether t only moves by whole pixels.
func translation(t f64.Aff3) (image.Point, bool) {
	const eps = 1e-9
	if math.Abs(t[0]-1) > eps || math.Abs(t[1]) > eps || math.Abs(t[3]) > eps || math.Abs(t[4]-1) > eps {
		return image.Point{}, false
	}
	x, y := math.Round(t[2]), math.Round(t[5])
	if math.Abs(t[2]-x) > eps || math.Abs(t[5]-y) > eps {
		return image.Point{}, false
	}
	return image.Pt(int(x), int(y)), true
}

// mul returns a*b, applying b first.
func mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

func rotateAbout(deg, cx, cy float64) f64.Aff3 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return f64.Aff3{
		c, -s, cx - c*cx + s*cy,
		s, c, cy - s*cx - c*cy,
	}
}

func unit8(v float32) uint8 {
	return uint8(math.Round(float64(min(max(v, 0), 1)) * 0xff))
}

// premul converts straight color and alpha in [0,1] to premultiplied
// RGBA.
func premul(r, g, b, a float32) color.RGBA {
	return color.RGBA{R: unit8(r * a), G: unit8(g * a), B: unit8(b * a), A: unit8(a)}
}

func mulDiv(v, a uint8) uint8 {
	return uint8((uint32(v)*uint32(a) + 0x7f) / 0xff)
}
