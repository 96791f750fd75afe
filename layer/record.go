// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package layer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// Size is the byte size of the packed binary layer record.
const Size = 2832

// Field offsets of the packed record.
const (
	offID            = 0
	offActive        = 4
	offType          = 8
	offPosX          = 12
	offPosY          = 16
	offSizeX         = 20
	offSizeY         = 24
	offRotX          = 28
	offRotY          = 32
	offRotZ          = 36
	offAnchorX       = 40
	offAnchorY       = 44
	offOpacity       = 48
	offColorR        = 52
	offColorG        = 56
	offColorB        = 60
	offColorA        = 64
	offSource        = 68
	offTextureID     = 72
	offStreamID      = 76
	offTexX          = 80
	offTexY          = 84
	offTexW          = 88
	offTexH          = 92
	offTexRot        = 96
	offTextureLocked = 100
	offText          = 104
	offFontFamily    = offText + MaxText*2
	offFontSize      = offFontFamily + MaxFontName*2
	offBold          = offFontSize + 4
	offItalic        = offBold + 4
	offAlign         = offItalic + 4
	offLineHeight    = offAlign + 4
	offLetterSpacing = offLineHeight + 4
	offAntialias     = offLetterSpacing + 4
	offTexturePath   = offAntialias + 4
	offMaskMode      = offTexturePath + MaxPath
	offMaskCount     = offMaskMode + 4
	offMaskIDs       = offMaskCount + 4
	recordEnd        = offMaskIDs + MaxMasks*4
)

// The offsets must add up to Size exactly.
var (
	_ [recordEnd - Size]struct{}
	_ [Size - recordEnd]struct{}
)

// ErrRecordSize is returned when a binary record has the wrong length.
var ErrRecordSize = errors.New("layer: record size mismatch")

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// MarshalBinary encodes l into a packed record of exactly Size bytes.
// Variable-length fields are truncated to their limits.
func (l Layer) MarshalBinary() ([]byte, error) {
	b := make([]byte, Size)
	if err := l.put(b); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary decodes a packed record. The result is sanitized but
// not validated.
func (l *Layer) UnmarshalBinary(b []byte) error {
	if len(b) != Size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrRecordSize, len(b), Size)
	}
	le := binary.LittleEndian
	i32 := func(off int) int32 { return int32(le.Uint32(b[off:])) }
	f32 := func(off int) float32 { return math.Float32frombits(le.Uint32(b[off:])) }

	*l = Layer{
		ID:            i32(offID),
		Active:        i32(offActive) != 0,
		Type:          Type(i32(offType)),
		PosX:          f32(offPosX),
		PosY:          f32(offPosY),
		SizeX:         f32(offSizeX),
		SizeY:         f32(offSizeY),
		RotX:          f32(offRotX),
		RotY:          f32(offRotY),
		RotZ:          f32(offRotZ),
		AnchorX:       f32(offAnchorX),
		AnchorY:       f32(offAnchorY),
		Opacity:       f32(offOpacity),
		ColorR:        f32(offColorR),
		ColorG:        f32(offColorG),
		ColorB:        f32(offColorB),
		ColorA:        f32(offColorA),
		Source:        Source(i32(offSource)),
		TextureID:     i32(offTextureID),
		StreamID:      i32(offStreamID),
		TexX:          f32(offTexX),
		TexY:          f32(offTexY),
		TexW:          f32(offTexW),
		TexH:          f32(offTexH),
		TexRot:        f32(offTexRot),
		TextureLocked: i32(offTextureLocked) != 0,
		FontSize:      f32(offFontSize),
		Bold:          i32(offBold) != 0,
		Italic:        i32(offItalic) != 0,
		Align:         Align(i32(offAlign)),
		LineHeight:    f32(offLineHeight),
		LetterSpacing: f32(offLetterSpacing),
		Antialias:     Antialias(i32(offAntialias)),
		MaskMode:      MaskMode(i32(offMaskMode)),
	}

	var err error
	if l.Text, err = getUTF16(b[offText : offText+MaxText*2]); err != nil {
		return fmt.Errorf("layer: text: %w", err)
	}
	if l.FontFamily, err = getUTF16(b[offFontFamily : offFontFamily+MaxFontName*2]); err != nil {
		return fmt.Errorf("layer: font family: %w", err)
	}
	l.TexturePath = clampBytes(string(b[offTexturePath:offTexturePath+MaxPath]), MaxPath-1)

	// The count comes from the other side of the boundary; never index
	// with it unchecked.
	n := int(min(max(i32(offMaskCount), 0), MaxMasks))
	if n > 0 {
		l.Masks = make([]int32, n)
		for j := range n {
			l.Masks[j] = i32(offMaskIDs + j*4)
		}
	}

	l.Sanitize()
	return nil
}

func (l *Layer) put(b []byte) error {
	le := binary.LittleEndian
	pi := func(off int, v int32) { le.PutUint32(b[off:], uint32(v)) }
	pf := func(off int, v float32) { le.PutUint32(b[off:], math.Float32bits(v)) }
	pb := func(off int, v bool) {
		if v {
			pi(off, 1)
		}
	}

	pi(offID, l.ID)
	pb(offActive, l.Active)
	pi(offType, int32(l.Type))
	pf(offPosX, l.PosX)
	pf(offPosY, l.PosY)
	pf(offSizeX, l.SizeX)
	pf(offSizeY, l.SizeY)
	pf(offRotX, l.RotX)
	pf(offRotY, l.RotY)
	pf(offRotZ, l.RotZ)
	pf(offAnchorX, l.AnchorX)
	pf(offAnchorY, l.AnchorY)
	pf(offOpacity, l.Opacity)
	pf(offColorR, l.ColorR)
	pf(offColorG, l.ColorG)
	pf(offColorB, l.ColorB)
	pf(offColorA, l.ColorA)
	pi(offSource, int32(l.Source))
	pi(offTextureID, l.TextureID)
	pi(offStreamID, l.StreamID)
	pf(offTexX, l.TexX)
	pf(offTexY, l.TexY)
	pf(offTexW, l.TexW)
	pf(offTexH, l.TexH)
	pf(offTexRot, l.TexRot)
	pb(offTextureLocked, l.TextureLocked)

	if err := putUTF16(b[offText:offText+MaxText*2], l.Text); err != nil {
		return fmt.Errorf("layer: text: %w", err)
	}
	if err := putUTF16(b[offFontFamily:offFontFamily+MaxFontName*2], l.FontFamily); err != nil {
		return fmt.Errorf("layer: font family: %w", err)
	}

	pf(offFontSize, l.FontSize)
	pb(offBold, l.Bold)
	pb(offItalic, l.Italic)
	pi(offAlign, int32(l.Align))
	pf(offLineHeight, l.LineHeight)
	pf(offLetterSpacing, l.LetterSpacing)
	pi(offAntialias, int32(l.Antialias))

	copy(b[offTexturePath:offTexturePath+MaxPath-1], clampBytes(l.TexturePath, MaxPath-1))

	pi(offMaskMode, int32(l.MaskMode))
	n := min(len(l.Masks), MaxMasks)
	pi(offMaskCount, int32(n))
	for j := range n {
		pi(offMaskIDs+j*4, l.Masks[j])
	}
	return nil
}

// putUTF16 writes s as NUL-terminated UTF-16LE into dst, truncating on a
// code point boundary.
func putUTF16(dst []byte, s string) error {
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	copy(dst, truncateUTF16(enc, len(dst)/2-1))
	return nil
}

// getUTF16 reads a NUL-terminated UTF-16LE field. A missing terminator
// is tolerated: the field length bounds the read.
func getUTF16(src []byte) (string, error) {
	n := 0
	for n+1 < len(src) && (src[n] != 0 || src[n+1] != 0) {
		n += 2
	}
	out, err := utf16le.NewDecoder().Bytes(src[:n])
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// truncateUTF16 cuts an encoded UTF-16LE buffer to at most units code
// units, dropping a dangling high surrogate.
func truncateUTF16(enc []byte, units int) []byte {
	if len(enc) <= units*2 {
		return enc
	}
	enc = enc[:units*2]
	if units > 0 {
		last := uint16(enc[len(enc)-2]) | uint16(enc[len(enc)-1])<<8
		if last >= 0xD800 && last < 0xDC00 {
			enc = enc[:len(enc)-2]
		}
	}
	return enc
}

// clampUTF16 bounds s to units UTF-16 code units.
func clampUTF16(s string, units int) string {
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return ""
	}
	if len(enc) <= units*2 {
		return s
	}
	out, err := utf16le.NewDecoder().Bytes(truncateUTF16(enc, units))
	if err != nil {
		return ""
	}
	return string(out)
}

// UTF16Len returns the number of UTF-16 code units needed for s.
func UTF16Len(s string) int {
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return 0
	}
	return len(enc) / 2
}
