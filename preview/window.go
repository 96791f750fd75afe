// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build preview

package preview

import (
	"context"
	"fmt"

	"github.com/gogpu/daro/internal/logx"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type window struct {
	ctx     context.Context
	p       *puller
	tex     *ebiten.Image
	full    bool
	overlay bool
}

// Run opens a window showing src and blocks until the window is closed
// or ctx is cancelled. It must be called from the main goroutine.
// F11 toggles fullscreen, F12 the frame counter overlay.
func Run(ctx context.Context, src Source, opts Options) error {
	p := newPuller(src)
	w, h := p.img.Rect.Dx(), p.img.Rect.Dy()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("preview: empty source %dx%d", w, h)
	}

	ebiten.SetWindowTitle(opts.title())
	ebiten.SetWindowSize(int(float64(w)*opts.scale()), int(float64(h)*opts.scale()))
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetFullscreen(opts.Fullscreen)

	win := &window{ctx: ctx, p: p, full: opts.Fullscreen}
	logx.L().Info("preview: window open", "width", w, "height", h)
	err := ebiten.RunGame(win)
	logx.L().Info("preview: window closed", "frames", p.frames)
	return err
}

func (w *window) Update() error {
	if ebiten.IsWindowBeingClosed() || w.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		w.full = !w.full
		ebiten.SetFullscreen(w.full)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		w.overlay = !w.overlay
	}
	if w.p.pull() {
		if w.tex == nil {
			w.tex = ebiten.NewImage(w.p.img.Rect.Dx(), w.p.img.Rect.Dy())
		}
		w.tex.WritePixels(w.p.img.Pix)
	}
	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	if w.tex != nil {
		screen.DrawImage(w.tex, nil)
	}
	if w.overlay {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("frame %d  tps %.1f", w.p.number, ebiten.ActualTPS()))
	}
}

// Layout keeps the logical screen at the frame size; ebiten scales it
// into the window.
func (w *window) Layout(int, int) (int, int) {
	return w.p.img.Rect.Dx(), w.p.img.Rect.Dy()
}
