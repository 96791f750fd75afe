// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build unix

package shm

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/daro/framebuf"
)

func TestMirrorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.shm")
	m, err := Create(path, 3, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer m.Close()

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	f := framebuf.Frame{Pix: img.Pix, Width: 3, Height: 2, Stride: img.Stride, Number: 42}
	if err := m.Write(f); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	if w, h := r.Size(); w != 3 || h != 2 {
		t.Errorf("Size() = %dx%d", w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, 3, 2))
	n, err := r.Read(dst)
	if err != nil || n != 42 {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	for i := range dst.Pix {
		if dst.Pix[i] != byte(i) {
			t.Fatalf("pixel byte %d = %d", i, dst.Pix[i])
		}
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrBadHeader) {
		t.Errorf("Open() error = %v, want ErrBadHeader", err)
	}
}

func TestPump(t *testing.T) {
	x, _ := framebuf.New(2, 2)
	path := filepath.Join(t.TempDir(), "pump.shm")
	m, err := Create(path, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Pix[0] = 200
	if err := x.PublishImage(img, 9); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go func() { _ = Pump(ctx, x, m, time.Millisecond) }()

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for ctx.Err() == nil {
		if n, err := r.Read(dst); err == nil && n == 9 {
			if dst.Pix[0] != 200 {
				t.Errorf("pixel = %d, want 200", dst.Pix[0])
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("frame 9 never reached the mirror")
}
