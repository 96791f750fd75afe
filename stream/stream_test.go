// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"context"
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/daro/framebuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(w, h, stride int, n uint64) framebuf.Frame {
	pix := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w*4; x++ {
			pix[y*stride+x] = byte(y*31 + x)
		}
	}
	return framebuf.Frame{Pix: pix, Width: w, Height: h, Stride: stride, Number: n}
}

func TestFrameCodec(t *testing.T) {
	f := testFrame(3, 2, 16, 42)
	msg := AppendFrame(nil, f)
	require.Len(t, msg, headerSize+3*2*4)

	img, n, err := DecodeFrame(msg, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Rect)
	assert.Equal(t, f.Pix[16:16+12], img.Pix[img.Stride:img.Stride+12])

	same, _, err := DecodeFrame(msg, img)
	require.NoError(t, err)
	assert.Same(t, img, same)
}

func TestDecodeFrameRejects(t *testing.T) {
	good := AppendFrame(nil, testFrame(2, 2, 8, 1))
	badMagic := append([]byte("XXXX"), good[4:]...)
	for name, msg := range map[string][]byte{
		"short":     good[:10],
		"magic":     badMagic,
		"truncated": good[:len(good)-1],
		"zero":      AppendFrame(nil, framebuf.Frame{}),
	} {
		_, _, err := DecodeFrame(msg, nil)
		assert.ErrorIs(t, err, ErrBadFrame, name)
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("camera 1"))
	assert.ErrorIs(t, ValidateName(""), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(strings.Repeat("a", MaxNameLen+1)), ErrInvalidName)
	assert.ErrorIs(t, ValidateName("a/b"), ErrInvalidName)
	assert.ErrorIs(t, ValidateName("a\x00b"), ErrInvalidName)
	assert.NoError(t, ValidateName(strings.Repeat("a", MaxNameLen)))
}

func TestDirectory(t *testing.T) {
	d := NewDirectory("ws://host:1/streams")
	require.NoError(t, d.Register("cam", "ws://cam.local/feed"))
	assert.Error(t, d.Register("web", "http://x/"))

	u, err := d.Lookup("cam")
	require.NoError(t, err)
	assert.Equal(t, "ws://cam.local/feed", u)

	u, err = d.Lookup("main out")
	require.NoError(t, err)
	assert.Equal(t, "ws://host:1/streams/main%20out", u)

	assert.Equal(t, []string{"cam"}, d.Names())
	assert.True(t, d.Unregister("cam"))
	assert.False(t, d.Unregister("cam"))

	_, err = NewDirectory("").Lookup("cam")
	assert.ErrorIs(t, err, ErrUnknownStream)
}

func TestOfferKeepsNewest(t *testing.T) {
	slot := make(chan []byte, 1)
	assert.False(t, offer(slot, []byte{1}))
	assert.True(t, offer(slot, []byte{2}))
	assert.Equal(t, []byte{2}, <-slot)
}

func TestSenderToReceiver(t *testing.T) {
	s, err := NewSender("program")
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	defer srv.Close()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.Frame(nil)
	assert.ErrorIs(t, err, ErrNoFrame)

	f := testFrame(4, 3, 16, 7)
	var img *image.RGBA
	require.Eventually(t, func() bool {
		if s.Send(f) != nil {
			return false
		}
		var n uint64
		img, n, err = r.Frame(img)
		return err == nil && n == 7
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, f.Pix[:16], img.Pix[:16])
	assert.Equal(t, 1, s.Stats().Clients)
	assert.Positive(t, r.Frames())
}

func TestSenderClose(t *testing.T) {
	s, err := NewSender("out")
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	defer srv.Close()

	r, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Stats().Clients == 1 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("receiver not disconnected")
	}
	assert.ErrorIs(t, s.Send(testFrame(1, 1, 4, 1)), ErrSenderClosed)
	assert.NoError(t, s.Close())
	r.Close()
}

func TestNewSenderValidatesName(t *testing.T) {
	_, err := NewSender("")
	assert.ErrorIs(t, err, ErrInvalidName)
}
