// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Limits of the fixed-size record. Every field crossing the host boundary
// is clamped to these before use.
const (
	MaxLayers   = 64
	MaxText     = 1024 // UTF-16 code units including the terminator
	MaxFontName = 64   // UTF-16 code units including the terminator
	MaxPath     = 260  // bytes including the terminator
	MaxMasks    = MaxLayers

	// DefaultFontSize is used when a text layer carries a non-positive size.
	DefaultFontSize = 48
)

// Type selects how a layer is drawn.
type Type int32

const (
	TypeRect Type = iota
	TypeEllipse
	TypeText
	TypeImage
	TypeVideo
	TypeMask
	TypeGroup
)

var typeNames = [...]string{"rect", "ellipse", "text", "image", "video", "mask", "group"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int32(t))
	}
	return typeNames[t]
}

// Valid reports whether t is a known layer type.
func (t Type) Valid() bool { return t >= TypeRect && t <= TypeGroup }

// Source selects where a layer's pixels come from.
type Source int32

const (
	SourceSolid Source = iota
	SourceStream
	SourceImage
	SourceVideo
)

// Align is the horizontal alignment of text lines.
type Align int32

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// MaskMode selects which side of a mask shape stays visible.
type MaskMode int32

const (
	MaskInner MaskMode = iota // draw only inside the mask
	MaskOuter                 // draw only outside the mask
)

// Antialias selects text edge rendering.
type Antialias int32

const (
	AntialiasSmooth Antialias = iota
	AntialiasSharp
)

// ErrInvalidType is returned by Validate for an unknown layer type.
var ErrInvalidType = errors.New("layer: invalid layer type")

// Layer is one renderable element of the composition.
//
// A Layer is a value: the engine stores copies, so a caller may reuse its
// own Layer after handing it over. Masks is cloned by Sanitize.
type Layer struct {
	ID     int32
	Active bool
	Type   Type

	// Transform. PosX/PosY is the centre of the layer in output pixels;
	// rotations are in degrees; the anchor is normalized (0.5 = centre).
	PosX, PosY       float32
	SizeX, SizeY     float32
	RotX, RotY, RotZ float32
	AnchorX, AnchorY float32

	Opacity                        float32
	ColorR, ColorG, ColorB, ColorA float32

	Source    Source
	TextureID int32 // image resource handle, or video id for SourceVideo
	StreamID  int32 // stream resource handle for SourceStream

	// Texture sub-rectangle in normalized coordinates. A zero width or
	// height selects the full texture.
	TexX, TexY, TexW, TexH float32
	TexRot                 float32
	TextureLocked          bool

	Text          string
	FontFamily    string
	FontSize      float32
	Bold, Italic  bool
	Align         Align
	LineHeight    float32 // multiplier, 0 means 1
	LetterSpacing float32 // extra pixels between glyphs
	Antialias     Antialias

	TexturePath string

	MaskMode MaskMode
	Masks    []int32 // ids of the layers this mask layer applies to
}

// Validate rejects records that cannot be clamped into a usable state.
func (l *Layer) Validate() error {
	if !l.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, int32(l.Type))
	}
	return nil
}

// Sanitize clamps every field into its legal range and bounds all
// variable-length fields. It never fails; call Validate first to reject
// unknown types.
func (l *Layer) Sanitize() {
	l.PosX, l.PosY = finite(l.PosX), finite(l.PosY)
	l.SizeX, l.SizeY = nonNegative(l.SizeX), nonNegative(l.SizeY)
	l.RotX, l.RotY, l.RotZ = finite(l.RotX), finite(l.RotY), finite(l.RotZ)
	l.AnchorX, l.AnchorY = finite(l.AnchorX), finite(l.AnchorY)

	l.Opacity = unit(l.Opacity)
	l.ColorR, l.ColorG = unit(l.ColorR), unit(l.ColorG)
	l.ColorB, l.ColorA = unit(l.ColorB), unit(l.ColorA)

	if l.Source < SourceSolid || l.Source > SourceVideo {
		l.Source = SourceSolid
	}
	l.TexX, l.TexY = unit(l.TexX), unit(l.TexY)
	l.TexW, l.TexH = unit(l.TexW), unit(l.TexH)
	l.TexRot = finite(l.TexRot)

	l.Text = clampUTF16(l.Text, MaxText-1)
	l.FontFamily = clampUTF16(l.FontFamily, MaxFontName-1)
	l.FontSize = nonNegative(l.FontSize)
	if l.Align < AlignLeft || l.Align > AlignRight {
		l.Align = AlignLeft
	}
	l.LineHeight = nonNegative(l.LineHeight)
	l.LetterSpacing = finite(l.LetterSpacing)
	if l.Antialias != AntialiasSharp {
		l.Antialias = AntialiasSmooth
	}

	l.TexturePath = clampBytes(l.TexturePath, MaxPath-1)

	if l.MaskMode != MaskOuter {
		l.MaskMode = MaskInner
	}
	if len(l.Masks) > MaxMasks {
		l.Masks = l.Masks[:MaxMasks]
	}
	if l.Masks != nil {
		l.Masks = append([]int32(nil), l.Masks...)
	}
}

// EffectiveFontSize returns the font size with the default applied.
func (l *Layer) EffectiveFontSize() float64 {
	if l.FontSize <= 0 {
		return DefaultFontSize
	}
	return float64(l.FontSize)
}

func finite(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func nonNegative(v float32) float32 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	return v
}

func unit(v float32) float32 {
	v = finite(v)
	return min(max(v, 0), 1)
}

// clampBytes truncates s to at most n bytes without splitting a rune.
func clampBytes(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
