// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framebuf

import (
	"bytes"
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

func solid(w, h int, v byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestNewRejectsBadSize(t *testing.T) {
	for _, sz := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		if _, err := New(sz[0], sz[1]); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("New(%d, %d) error = %v, want ErrInvalidSize", sz[0], sz[1], err)
		}
	}
}

func TestPublishAndLock(t *testing.T) {
	x, err := New(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := x.PublishImage(solid(4, 3, 7), 1); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	f, err := x.Lock()
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if f.Width != 4 || f.Height != 3 || f.Stride < 16 || f.Number != 1 {
		t.Errorf("frame = %dx%d stride %d #%d", f.Width, f.Height, f.Stride, f.Number)
	}
	if !bytes.Equal(f.Pix, bytes.Repeat([]byte{7}, 48)) {
		t.Error("pixels not copied")
	}
	if _, err := x.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}
	x.Unlock()
	x.Unlock()
}

func TestPublishMismatchSkips(t *testing.T) {
	x, _ := New(4, 4)
	_ = x.PublishImage(solid(4, 4, 1), 1)

	if err := x.PublishImage(solid(5, 4, 9), 2); !errors.Is(err, ErrMismatch) {
		t.Fatalf("Publish() error = %v, want ErrMismatch", err)
	}
	if err := x.Publish(make([]byte, 10), 16, 4, 4, 3); !errors.Is(err, ErrMismatch) {
		t.Fatalf("short buffer error = %v, want ErrMismatch", err)
	}
	if x.Version() != 1 {
		t.Errorf("Version() = %d, want 1", x.Version())
	}
	if x.Stats().Mismatched != 2 {
		t.Errorf("Mismatched = %d, want 2", x.Stats().Mismatched)
	}
}

func TestPublishWiderStride(t *testing.T) {
	x, _ := New(2, 2)
	src := []byte{
		1, 1, 1, 1, 2, 2, 2, 2, 0xee, 0xee,
		3, 3, 3, 3, 4, 4, 4, 4, 0xee, 0xee,
	}
	if err := x.Publish(src, 10, 2, 2, 5); err != nil {
		t.Fatal(err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	n, err := x.CopyTo(dst)
	if err != nil || n != 5 {
		t.Fatalf("CopyTo() = %d, %v", n, err)
	}
	if dst.Pix[4] != 2 || dst.Pix[8] != 3 || dst.Pix[15] != 4 {
		t.Errorf("pixels = %v", dst.Pix)
	}
}

func TestPublishSkipsWhileLocked(t *testing.T) {
	x, _ := New(2, 2)
	x.SetPublishWait(5 * time.Millisecond)
	_ = x.PublishImage(solid(2, 2, 1), 1)

	f, _ := x.Lock()
	if err := x.PublishImage(solid(2, 2, 2), 2); !errors.Is(err, ErrBusy) {
		t.Fatalf("Publish() error = %v, want ErrBusy", err)
	}
	if f.Pix[0] != 1 || x.Version() != 1 {
		t.Error("locked frame was modified")
	}
	x.Unlock()

	if err := x.PublishImage(solid(2, 2, 3), 3); err != nil {
		t.Fatalf("Publish() after Unlock error = %v", err)
	}
	if x.Stats().Busy != 1 || x.Stats().Published != 2 {
		t.Errorf("stats = %+v", x.Stats())
	}
}

func TestPublishWaitsForShortLock(t *testing.T) {
	x, _ := New(2, 2)
	x.SetPublishWait(time.Second)
	_, _ = x.Lock()

	done := make(chan error, 1)
	go func() { done <- x.PublishImage(solid(2, 2, 9), 1) }()

	time.Sleep(2 * time.Millisecond)
	x.Unlock()
	if err := <-done; err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if x.Version() != 1 {
		t.Errorf("Version() = %d, want 1", x.Version())
	}
}

// A locked frame's number always matches its pixels: every frame n is
// filled with byte n, so a torn read shows mixed values.
func TestLockNeverSeesTornFrame(t *testing.T) {
	const w, h = 64, 64
	x, _ := New(w, h)
	x.SetPublishWait(time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 1; n <= 2000; n++ {
			_ = x.PublishImage(solid(w, h, byte(n)), uint64(n))
		}
	}()

	for range 2000 {
		f, err := x.Lock()
		if err != nil {
			t.Fatal(err)
		}
		want := byte(f.Number)
		for _, p := range f.Pix {
			if p != want {
				x.Unlock()
				t.Fatalf("frame %d contains byte %d", f.Number, p)
			}
		}
		x.Unlock()
	}
	wg.Wait()
}
