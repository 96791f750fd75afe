// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/fontscan"
	"github.com/gogpu/daro/internal/logx"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// maxFaces bounds the face cache. Faces are cheap to recreate.
const maxFaces = 64

type faceKey struct {
	family       string
	bold, italic bool
	size         float64
}

type fontKey struct {
	family       string
	bold, italic bool
}

// Fonts resolves font family names to faces. Installed system fonts are
// indexed on first use of a family that is not built in; the Go fonts are
// the fallback for everything else.
type Fonts struct {
	cacheDir string
	system   bool

	scanOnce sync.Once
	prints   []fontscan.Footprint

	mu    sync.Mutex
	fonts map[fontKey]*opentype.Font
	faces map[faceKey]xfont.Face
}

// NewFonts returns a resolver. With system set, family names are looked
// up among installed fonts; cacheDir holds the font index and defaults
// to the user cache directory.
func NewFonts(system bool, cacheDir string) *Fonts {
	return &Fonts{
		cacheDir: cacheDir,
		system:   system,
		fonts:    make(map[fontKey]*opentype.Font),
		faces:    make(map[faceKey]xfont.Face),
	}
}

// Face returns a face for family at size pixels. An empty or unknown
// family falls back to Go Regular in the requested style.
func (f *Fonts) Face(family string, bold, italic bool, size float64) (xfont.Face, error) {
	if size <= 0 || math.IsNaN(size) {
		return nil, fmt.Errorf("render: invalid font size %v", size)
	}
	family = strings.TrimSpace(family)
	fk := faceKey{family: strings.ToLower(family), bold: bold, italic: italic, size: size}

	f.mu.Lock()
	if face, ok := f.faces[fk]; ok {
		f.mu.Unlock()
		return face, nil
	}
	f.mu.Unlock()

	fnt, err := f.font(family, bold, italic)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("render: face %q: %w", family, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.faces) >= maxFaces {
		for k, old := range f.faces {
			old.Close()
			delete(f.faces, k)
		}
	}
	f.faces[fk] = face
	return face, nil
}

func (f *Fonts) font(family string, bold, italic bool) (*opentype.Font, error) {
	key := fontKey{family: strings.ToLower(family), bold: bold, italic: italic}
	f.mu.Lock()
	fnt, ok := f.fonts[key]
	f.mu.Unlock()
	if ok {
		return fnt, nil
	}

	var err error
	if f.system && key.family != "" && !isGoFamily(key.family) {
		fnt, err = f.systemFont(family, bold, italic)
		if err != nil {
			logx.L().Debug("render: system font unavailable, using Go font", "family", family, "err", err)
		}
	}
	if fnt == nil {
		fnt, err = opentype.Parse(goFont(bold, italic))
		if err != nil {
			return nil, fmt.Errorf("render: parse built-in font: %w", err)
		}
	}

	f.mu.Lock()
	f.fonts[key] = fnt
	f.mu.Unlock()
	return fnt, nil
}

func isGoFamily(family string) bool {
	return family == "go" || strings.HasPrefix(family, "go ")
}

func goFont(bold, italic bool) []byte {
	switch {
	case bold && italic:
		return gobolditalic.TTF
	case bold:
		return gobold.TTF
	case italic:
		return goitalic.TTF
	}
	return goregular.TTF
}

func (f *Fonts) scan() {
	dir := f.cacheDir
	if dir == "" {
		if d, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(d, "daro")
		} else {
			dir = os.TempDir()
		}
	}
	prints, err := fontscan.SystemFonts(nil, dir)
	if err != nil {
		logx.L().Warn("render: scan system fonts", "err", err)
		return
	}
	f.prints = prints
	logx.L().Debug("render: system fonts indexed", "count", len(prints))
}

// systemFont loads the installed font closest to the requested style.
func (f *Fonts) systemFont(family string, bold, italic bool) (*opentype.Font, error) {
	f.scanOnce.Do(f.scan)

	wantWeight := font.WeightNormal
	if bold {
		wantWeight = font.WeightBold
	}
	wantStyle := font.StyleNormal
	if italic {
		wantStyle = font.StyleItalic
	}

	best, bestScore := -1, math.MaxFloat64
	for i, fp := range f.prints {
		if !strings.EqualFold(fp.Family, family) {
			continue
		}
		score := math.Abs(float64(fp.Aspect.Weight - wantWeight))
		if fp.Aspect.Style != wantStyle {
			score += 1000
		}
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("render: font family %q not installed", family)
	}

	loc := f.prints[best].Location
	data, err := os.ReadFile(loc.File)
	if err != nil {
		return nil, fmt.Errorf("render: read font: %w", err)
	}
	if fnt, err := opentype.Parse(data); err == nil {
		return fnt, nil
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("render: parse %s: %w", loc.File, err)
	}
	return coll.Font(int(loc.Index))
}
