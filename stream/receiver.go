// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/daro/internal/logx"
	"github.com/gorilla/websocket"
)

// ErrNoFrame is returned by Frame before the first frame arrives.
var ErrNoFrame = errors.New("stream: no frame received")

// Receiver reads frames from a WebSocket stream and keeps the newest.
type Receiver struct {
	url  string
	conn *websocket.Conn
	done chan struct{}

	mu     sync.Mutex
	front  *image.RGBA
	number uint64
	frames uint64
	err    error
}

// Dial connects to a frame stream at rawURL.
func Dial(ctx context.Context, rawURL string) (*Receiver, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %s: %w", rawURL, err)
	}
	r := &Receiver{url: rawURL, conn: conn, done: make(chan struct{})}
	go r.read()
	return r, nil
}

// URL returns the stream address.
func (r *Receiver) URL() string { return r.url }

func (r *Receiver) read() {
	defer close(r.done)
	var back *image.RGBA
	for {
		typ, msg, err := r.conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logx.L().Warn("stream: receive failed", "url", r.url, "err", err)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		img, n, err := DecodeFrame(msg, back)
		if err != nil {
			logx.L().Debug("stream: frame dropped", "url", r.url, "err", err)
			continue
		}
		r.mu.Lock()
		back, r.front = r.front, img
		r.number = n
		r.frames++
		r.mu.Unlock()
	}
}

// Frame copies the newest frame into dst, reallocating it when the size
// differs, and returns it with its frame number.
func (r *Receiver) Frame(dst *image.RGBA) (*image.RGBA, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.front == nil {
		if r.err != nil {
			return dst, 0, r.err
		}
		return dst, 0, ErrNoFrame
	}
	b := r.front.Rect
	if dst == nil || dst.Rect.Size() != b.Size() {
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	copy(dst.Pix, r.front.Pix)
	return dst, r.number, nil
}

// Frames returns how many frames have been received.
func (r *Receiver) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Err returns the error that ended the connection, if any.
func (r *Receiver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Done is closed when the connection ends.
func (r *Receiver) Done() <-chan struct{} { return r.done }

// Close ends the connection and waits for the reader to exit.
func (r *Receiver) Close() error {
	r.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := r.conn.Close()
	<-r.done
	return err
}
