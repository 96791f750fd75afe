// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/daro/framebuf"
	"github.com/gogpu/daro/internal/logx"
	"github.com/gorilla/websocket"
)

const writeWait = 2 * time.Second

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("stream: sender closed")

// SenderStats counts Sender activity.
type SenderStats struct {
	Clients int
	Sent    uint64 // frames handed to Send
	Dropped uint64 // per-client frames replaced before they were written
}

// Sender broadcasts frames to WebSocket clients. It is an http.Handler;
// mount it wherever the stream should be served. Each client has a
// single-slot mailbox, so a slow client sees the newest frame and never
// holds up the others.
type Sender struct {
	name     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

type client struct {
	conn *websocket.Conn
	slot chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewSender returns a sender for the named stream.
func NewSender(name string) (*Sender, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Sender{
		name: name,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// Name returns the stream name.
func (s *Sender) Name() string { return s.name }

// ServeHTTP upgrades the request and streams frames until the client
// goes away or the sender is closed.
func (s *Sender) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.L().Debug("stream: upgrade failed", "stream", s.name, "err", err)
		return
	}
	c := &client{conn: conn, slot: make(chan []byte, 1), done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	logx.L().Info("stream: client connected", "stream", s.name, "remote", r.RemoteAddr, "clients", n)

	go s.write(c)

	// Drain control frames; a read error means the client left.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.stop()
	logx.L().Info("stream: client disconnected", "stream", s.name, "remote", r.RemoteAddr)
}

func (s *Sender) write(c *client) {
	for {
		select {
		case msg := <-c.slot:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				logx.L().Debug("stream: write failed", "stream", s.name, "err", err)
				c.stop()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send encodes f once and offers it to every client.
func (s *Sender) Send(f framebuf.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}
	s.sent.Add(1)
	if len(s.clients) == 0 {
		return nil
	}
	msg := AppendFrame(make([]byte, 0, headerSize+f.Width*f.Height*framebuf.BytesPerPixel), f)
	for c := range s.clients {
		if offer(c.slot, msg) {
			s.dropped.Add(1)
		}
	}
	return nil
}

// offer puts msg into a single-slot mailbox, replacing an unread
// message. It reports whether a message was replaced.
func offer(slot chan []byte, msg []byte) (dropped bool) {
	for {
		select {
		case slot <- msg:
			return dropped
		default:
		}
		select {
		case <-slot:
			dropped = true
		default:
		}
	}
}

// Stats returns a snapshot of the counters.
func (s *Sender) Stats() SenderStats {
	s.mu.Lock()
	n := len(s.clients)
	s.mu.Unlock()
	return SenderStats{Clients: n, Sent: s.sent.Load(), Dropped: s.dropped.Load()}
}

// Close disconnects every client. Further Sends fail.
func (s *Sender) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		c.stop()
	}
	return nil
}
