// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/daro/device"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// ErrInvalidSize is returned for a non-positive or oversized output.
var ErrInvalidSize = errors.New("render: invalid output size")

// kappa places cubic control points so four segments approximate a
// circle.
const kappa = 0.5522847498307936

type point = [2]float64

// cubic is one Bezier segment: two control points and an end point.
type cubic [3]point

// Geometry holds the shapes every layer is drawn from, in unit layer
// space where (0,0) is the top-left corner and (1,1) the bottom-right.
type Geometry struct {
	Quad    [4]point
	Ellipse struct {
		Start    point
		Segments [4]cubic
	}
}

// NewGeometry builds the unit quad and ellipse outline.
func NewGeometry() *Geometry {
	g := &Geometry{Quad: [4]point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	const c, r = 0.5, 0.5
	k := kappa * r
	g.Ellipse.Start = point{c + r, c}
	g.Ellipse.Segments = [4]cubic{
		{{c + r, c + k}, {c + k, c + r}, {c, c + r}},
		{{c - k, c + r}, {c - r, c + k}, {c - r, c}},
		{{c - r, c - k}, {c - k, c - r}, {c, c - r}},
		{{c + k, c - r}, {c + r, c - k}, {c + r, c}},
	}
	return g
}

// validateSize checks the output size against the device limits.
func validateSize(width, height int) error {
	if width <= 0 || height <= 0 || width > device.MaxTargetSize || height > device.MaxTargetSize {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return nil
}

// unitToOutput maps unit layer space through t after scaling by the
// layer size.
func unitToOutput(t f64.Aff3, sx, sy float64, p point) (float32, float32) {
	x, y := p[0]*sx, p[1]*sy
	return float32(t[0]*x + t[1]*y + t[2]), float32(t[3]*x + t[4]*y + t[5])
}

func (g *Geometry) quadPath(z *vector.Rasterizer, t f64.Aff3, sx, sy float64) {
	for i, p := range g.Quad {
		x, y := unitToOutput(t, sx, sy, p)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func (g *Geometry) ellipsePath(z *vector.Rasterizer, t f64.Aff3, sx, sy float64) {
	z.MoveTo(unitToOutput(t, sx, sy, g.Ellipse.Start))
	for _, s := range g.Ellipse.Segments {
		ax, ay := unitToOutput(t, sx, sy, s[0])
		bx, by := unitToOutput(t, sx, sy, s[1])
		cx, cy := unitToOutput(t, sx, sy, s[2])
		z.CubeTo(ax, ay, bx, by, cx, cy)
	}
	z.ClosePath()
}

// segmentPath adds a stroke of the given half width from a to b.
func segmentPath(z *vector.Rasterizer, a, b point, half float64) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	nx, ny := -dy/n*half, dx/n*half
	z.MoveTo(float32(a[0]+nx), float32(a[1]+ny))
	z.LineTo(float32(b[0]+nx), float32(b[1]+ny))
	z.LineTo(float32(b[0]-nx), float32(b[1]-ny))
	z.LineTo(float32(a[0]-nx), float32(a[1]-ny))
	z.ClosePath()
}
