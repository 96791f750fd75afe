// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/gogpu/daro/internal/logx"
	"github.com/gogpu/daro/media"
)

// ID identifies a loaded clip. Valid ids are positive.
type ID int32

// DefaultMaxVideos bounds the number of simultaneously loaded clips.
const DefaultMaxVideos = 32

var (
	ErrNotFound = errors.New("video: no such video")
	ErrTooMany  = errors.New("video: too many loaded videos")
	ErrClosed   = errors.New("video: registry closed")
)

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy sets the load policy.
func WithPolicy(p media.Policy) Option { return func(r *Registry) { r.policy = p } }

// WithMaxVideos sets the maximum number of loaded clips.
func WithMaxVideos(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.clock = now } }

// Registry owns every loaded clip.
type Registry struct {
	clock func() time.Time

	mu      sync.Mutex
	players map[ID]*Player
	next    ID
	max     int
	policy  media.Policy
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:   time.Now,
		players: make(map[ID]*Player),
		max:     DefaultMaxVideos,
		policy:  media.DefaultPolicy(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetPolicy replaces the load policy for later loads.
func (r *Registry) SetPolicy(p media.Policy) {
	r.mu.Lock()
	r.policy = p
	r.mu.Unlock()
}

// Load validates path, opens a decoder and registers a new player
// positioned at its first frame. Failures leave the registry unchanged.
func (r *Registry) Load(path string) (ID, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrClosed
	}
	if len(r.players) >= r.max {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: limit %d", ErrTooMany, r.max)
	}
	policy := r.policy
	r.mu.Unlock()

	abs, _, err := policy.CheckFile(path)
	if err != nil {
		return 0, err
	}
	_, sniffed, err := media.Sniff(abs)
	if err != nil {
		return 0, err
	}
	dec, codec, err := openDecoder(abs, sniffed, policy)
	if err != nil {
		return 0, err
	}
	info := dec.Info()
	if err := policy.CheckDimensions(info.Width, info.Height); err != nil {
		dec.Close()
		return 0, fmt.Errorf("video: %s: %w", path, err)
	}
	p, err := newPlayer(abs, codec, dec, r.clock)
	if err != nil {
		dec.Close()
		return 0, err
	}

	r.mu.Lock()
	if r.closed || len(r.players) >= r.max {
		closed := r.closed
		r.mu.Unlock()
		p.unload()
		if closed {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("%w: limit %d", ErrTooMany, r.max)
	}
	id := r.nextIDLocked()
	r.players[id] = p
	n := len(r.players)
	r.mu.Unlock()

	logx.L().Info("video: loaded", "id", id, "path", abs, "codec", codec,
		"size", fmt.Sprintf("%dx%d", info.Width, info.Height), "fps", info.FrameRate,
		"frames", info.TotalFrames, "loaded", n)
	return id, nil
}

// nextIDLocked returns a positive unused id, wrapping to 1 after the
// largest int32.
func (r *Registry) nextIDLocked() ID {
	for {
		if r.next >= math.MaxInt32 || r.next < 0 {
			r.next = 0
		}
		r.next++
		if _, used := r.players[r.next]; !used {
			return r.next
		}
	}
}

// Player returns the player for id.
func (r *Registry) Player(id ID) (*Player, error) {
	r.mu.Lock()
	p, ok := r.players[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p, nil
}

// Unload removes id and closes its decoder once any in-flight step on
// that clip finishes. Unknown ids are ignored.
func (r *Registry) Unload(id ID) bool {
	r.mu.Lock()
	p, ok := r.players[id]
	delete(r.players, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	p.unload()
	return true
}

func (r *Registry) with(id ID, fn func(*Player) error) error {
	p, err := r.Player(id)
	if err != nil {
		return err
	}
	return fn(p)
}

// Play starts id.
func (r *Registry) Play(id ID) error { return r.with(id, (*Player).Play) }

// Pause pauses id.
func (r *Registry) Pause(id ID) error { return r.with(id, (*Player).Pause) }

// Stop stops id and rewinds it.
func (r *Registry) Stop(id ID) error { return r.with(id, (*Player).Stop) }

// Seek moves id to frame, clamped to the clip.
func (r *Registry) Seek(id ID, frame int) error {
	return r.with(id, func(p *Player) error { return p.Seek(frame) })
}

// SeekTime moves id to the given offset in seconds.
func (r *Registry) SeekTime(id ID, seconds float64) error {
	return r.with(id, func(p *Player) error { return p.SeekTime(seconds) })
}

// SetLoop sets the loop flag of id.
func (r *Registry) SetLoop(id ID, loop bool) error {
	return r.with(id, func(p *Player) error { return p.SetLoop(loop) })
}

// SetAlpha sets the alpha flag of id.
func (r *Registry) SetAlpha(id ID, alpha bool) error {
	return r.with(id, func(p *Player) error { return p.SetAlpha(alpha) })
}

// Status returns a snapshot of id.
func (r *Registry) Status(id ID) (Status, error) {
	p, err := r.Player(id)
	if err != nil {
		return Status{}, err
	}
	st := p.Status()
	if st.Unloaded {
		return Status{}, ErrUnloaded
	}
	return st, nil
}

// Frame returns the current frame index of id.
func (r *Registry) Frame(id ID) (int, error) {
	st, err := r.Status(id)
	return st.Frame, err
}

// TotalFrames returns the frame count of id, 0 when unknown.
func (r *Registry) TotalFrames(id ID) (int, error) {
	st, err := r.Status(id)
	return st.Total, err
}

// State returns the transport state of id.
func (r *Registry) State(id ID) (State, error) {
	st, err := r.Status(id)
	return st.State, err
}

// Texture returns the frame currently shown by id.
func (r *Registry) Texture(id ID) (*image.RGBA, bool) {
	p, err := r.Player(id)
	if err != nil {
		return nil, false
	}
	return p.Texture()
}

// Update advances every playing clip and returns how many produced a new
// frame. The registry lock is released before any clip is touched.
func (r *Registry) Update() int {
	r.mu.Lock()
	ps := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		ps = append(ps, p)
	}
	r.mu.Unlock()

	n := 0
	for _, p := range ps {
		if p.update() {
			n++
		}
	}
	return n
}

// Len returns the number of loaded clips.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// IDs returns the loaded ids in no particular order.
func (r *Registry) IDs() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]ID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	return ids
}

// Close unloads every clip. Later loads fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	ps := r.players
	r.players = make(map[ID]*Player)
	r.mu.Unlock()
	for _, p := range ps {
		p.unload()
	}
}
