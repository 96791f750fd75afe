// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestTransformIdentity(t *testing.T) {
	l := Layer{PosX: 960, PosY: 540, SizeX: 800, SizeY: 200, AnchorX: 0.5, AnchorY: 0.5}
	c := l.Corners()
	want := [4][2]float64{{560, 440}, {1360, 440}, {1360, 640}, {560, 640}}
	for i := range c {
		if !near(c[i][0], want[i][0]) || !near(c[i][1], want[i][1]) {
			t.Errorf("corner %d = %v, want %v", i, c[i], want[i])
		}
	}
}

func TestTransformAnchorDoesNotMoveUnrotated(t *testing.T) {
	a := Layer{PosX: 100, PosY: 100, SizeX: 50, SizeY: 20, AnchorX: 0, AnchorY: 0}
	b := a
	b.AnchorX, b.AnchorY = 1, 1
	ca, cb := a.Corners(), b.Corners()
	for i := range ca {
		if !near(ca[i][0], cb[i][0]) || !near(ca[i][1], cb[i][1]) {
			t.Errorf("corner %d differs: %v vs %v", i, ca[i], cb[i])
		}
	}
}

func TestTransformRotateAboutAnchor(t *testing.T) {
	// Anchor at top-left: that corner must stay fixed under Z rotation.
	l := Layer{PosX: 100, PosY: 100, SizeX: 40, SizeY: 20, AnchorX: 0, AnchorY: 0, RotZ: 90}
	ax, ay := l.Anchor()
	c := l.Corners()
	if !near(c[0][0], ax) || !near(c[0][1], ay) {
		t.Errorf("top-left = %v, want anchor (%v, %v)", c[0], ax, ay)
	}
	// 90 degrees clockwise: the top edge now points down.
	if !near(c[1][0], ax) || !near(c[1][1], ay+40) {
		t.Errorf("top-right = %v, want (%v, %v)", c[1], ax, ay+40)
	}
}

func TestTransformYRotationForeshortens(t *testing.T) {
	l := Layer{SizeX: 100, SizeY: 10, AnchorX: 0.5, AnchorY: 0.5, RotY: 60}
	c := l.Corners()
	if w := c[1][0] - c[0][0]; !near(w, 50) {
		t.Errorf("projected width = %v, want 50", w)
	}
}

func TestInvert(t *testing.T) {
	l := Layer{PosX: 30, PosY: 40, SizeX: 10, SizeY: 20, AnchorX: 0.2, AnchorY: 0.7, RotZ: 33, RotX: 10}
	m := l.Transform()
	inv, ok := Invert(m)
	if !ok {
		t.Fatal("Invert() reported singular")
	}
	p := Apply(m, 3, 4)
	q := Apply(inv, p[0], p[1])
	if !near(q[0], 3) || !near(q[1], 4) {
		t.Errorf("round trip = %v, want [3 4]", q)
	}

	edge := Layer{SizeX: 10, SizeY: 10, RotY: 90}
	if _, ok := Invert(edge.Transform()); ok {
		t.Error("edge-on layer should be singular")
	}
}
