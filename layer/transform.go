// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Transform returns the affine map from layer space to output pixels.
//
// Layer space has its origin at the layer's top-left corner and spans
// SizeX by SizeY pixels. Rotation happens about the anchor point, Z first,
// then Y, then X, and the result is projected orthographically onto the
// output plane, so Y and X rotations foreshorten the layer.
func (l *Layer) Transform() f64.Aff3 {
	sx, sy := float64(l.SizeX), float64(l.SizeY)
	ax := (float64(l.AnchorX) - 0.5) * sx
	ay := (float64(l.AnchorY) - 0.5) * sy

	m := rotation(l.RotX, l.RotY, l.RotZ)

	// q = p - (size/2 + anchor); out = m*q + pos + anchor
	qx, qy := -(sx/2 + ax), -(sy/2 + ay)
	return f64.Aff3{
		m[0], m[1], m[0]*qx + m[1]*qy + float64(l.PosX) + ax,
		m[2], m[3], m[2]*qx + m[3]*qy + float64(l.PosY) + ay,
	}
}

// Anchor returns the rotation pivot in output pixels.
func (l *Layer) Anchor() (x, y float64) {
	return float64(l.PosX) + (float64(l.AnchorX)-0.5)*float64(l.SizeX),
		float64(l.PosY) + (float64(l.AnchorY)-0.5)*float64(l.SizeY)
}

// Corners returns the four transformed corners of the layer rectangle
// in order top-left, top-right, bottom-right, bottom-left.
func (l *Layer) Corners() [4][2]float64 {
	t := l.Transform()
	sx, sy := float64(l.SizeX), float64(l.SizeY)
	pts := [4][2]float64{{0, 0}, {sx, 0}, {sx, sy}, {0, sy}}
	for i, p := range pts {
		pts[i] = Apply(t, p[0], p[1])
	}
	return pts
}

// Apply maps (x, y) through t.
func Apply(t f64.Aff3, x, y float64) [2]float64 {
	return [2]float64{t[0]*x + t[1]*y + t[2], t[3]*x + t[4]*y + t[5]}
}

// Invert returns the inverse of t, and false when t is singular.
func Invert(t f64.Aff3) (f64.Aff3, bool) {
	det := t[0]*t[4] - t[1]*t[3]
	if math.Abs(det) < 1e-12 {
		return f64.Aff3{}, false
	}
	inv := 1 / det
	a, b := t[4]*inv, -t[1]*inv
	d, e := -t[3]*inv, t[0]*inv
	return f64.Aff3{
		a, b, -(a*t[2] + b*t[5]),
		d, e, -(d*t[2] + e*t[5]),
	}, true
}

// rotation returns the upper 2x2 block of Rx*Ry*Rz in row-major order.
// Angles are in degrees, positive Z turns clockwise on screen.
func rotation(rx, ry, rz float32) [4]float64 {
	sx, cx := math.Sincos(float64(rx) * math.Pi / 180)
	sy, cy := math.Sincos(float64(ry) * math.Pi / 180)
	sz, cz := math.Sincos(float64(rz) * math.Pi / 180)
	return [4]float64{
		cy * cz, -cy * sz,
		cx*sz + sx*sy*cz, cx*cz - sx*sy*sz,
	}
}
