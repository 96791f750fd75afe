// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gogpu/daro/internal/logx"
)

// State is the transport state of a player.
type State int

const (
	StateLoaded  State = iota // loaded, positioned, not playing
	StatePlaying              // advancing with the clock
	StatePaused               // holding the current frame
	StateStopped              // reached the end without looping, or failed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// maxCatchUp bounds how many frames one Update decodes after a stall.
const maxCatchUp = 8

// ErrUnloaded is returned by every call on an unloaded player.
var ErrUnloaded = errors.New("video: player unloaded")

// Player is one loaded clip. All methods are safe for concurrent use.
type Player struct {
	path  string
	codec string
	clock func() time.Time

	mu       sync.Mutex
	dec      Decoder
	info     Info
	state    State
	frame    int
	accum    time.Duration
	last     time.Time
	loop     bool
	alpha    bool
	tex      *image.RGBA // frame currently shown
	back     *image.RGBA // decode target, swapped with tex
	version  uint64
	err      error
	unloaded bool
}

func newPlayer(path, codec string, dec Decoder, clock func() time.Time) (*Player, error) {
	info := dec.Info()
	if info.FrameRate <= 0 {
		info.FrameRate = DefaultFrameRate
	}
	r := image.Rect(0, 0, info.Width, info.Height)
	p := &Player{
		path:  path,
		codec: codec,
		clock: clock,
		dec:   dec,
		info:  info,
		loop:  true,
		tex:   image.NewRGBA(r),
		back:  image.NewRGBA(r),
	}
	if err := dec.Next(p.tex); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("video: first frame: %w", err)
	}
	p.fixAlphaLocked(p.tex)
	p.version = 1
	return p, nil
}

func (p *Player) frameDuration() time.Duration {
	return time.Duration(float64(time.Second) / p.info.FrameRate)
}

// update advances a playing clip by the elapsed clock time and reports
// whether a new frame was decoded. Decode failures stop only this clip.
func (p *Player) update() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded || p.state != StatePlaying {
		return false
	}

	now := p.clock()
	p.accum += now.Sub(p.last)
	p.last = now

	fd := p.frameDuration()
	if p.accum < fd {
		return false
	}
	if p.accum > maxCatchUp*fd {
		p.accum = maxCatchUp * fd
	}

	decoded := false
	for p.accum >= fd {
		p.accum -= fd
		err := p.dec.Next(p.back)
		if err == nil {
			p.fixAlphaLocked(p.back)
			p.tex, p.back = p.back, p.tex
			p.frame++
			// Container durations are estimates; a stream that runs long
			// extends the clip so the frame index stays in range.
			if p.info.TotalFrames > 0 && p.frame >= p.info.TotalFrames {
				p.info.TotalFrames = p.frame + 1
			}
			p.version++
			decoded = true
			continue
		}
		if errors.Is(err, io.EOF) {
			if p.loop {
				if err := p.seekLocked(0); err != nil {
					p.failLocked(err)
				}
				decoded = true
			} else {
				p.state = StateStopped
			}
			break
		}
		p.failLocked(err)
		break
	}
	return decoded
}

func (p *Player) failLocked(err error) {
	p.err = err
	p.state = StateStopped
	logx.L().Warn("video: decode failed, clip stopped", "path", p.path, "codec", p.codec, "err", err)
}

// seekLocked positions the decoder at frame and decodes it into tex.
func (p *Player) seekLocked(frame int) error {
	last := 0
	if p.info.TotalFrames > 0 {
		last = p.info.TotalFrames - 1
	}
	frame = min(max(frame, 0), last)
	if err := p.dec.Seek(frame); err != nil {
		return err
	}
	if err := p.dec.Next(p.back); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	p.fixAlphaLocked(p.back)
	p.tex, p.back = p.back, p.tex
	p.frame = frame
	p.accum = 0
	p.version++
	return nil
}

// fixAlphaLocked forces opaque pixels unless the clip's alpha is enabled.
func (p *Player) fixAlphaLocked(img *image.RGBA) {
	if p.alpha {
		return
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}

// Play starts or resumes playback. A clip that ran to its end restarts
// from the first frame.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return ErrUnloaded
	}
	if p.state == StateStopped {
		if err := p.seekLocked(0); err != nil {
			return fmt.Errorf("video: rewind: %w", err)
		}
		p.err = nil
	}
	p.state = StatePlaying
	p.accum = 0
	p.last = p.clock()
	return nil
}

// Pause holds the current frame.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return ErrUnloaded
	}
	if p.state == StatePlaying {
		p.state = StatePaused
	}
	return nil
}

// Stop halts playback and rewinds to the first frame.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return ErrUnloaded
	}
	p.state = StateLoaded
	if err := p.seekLocked(0); err != nil {
		p.failLocked(err)
		return err
	}
	return nil
}

// Seek shows frame, clamped to the clip.
func (p *Player) Seek(frame int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return ErrUnloaded
	}
	if err := p.seekLocked(frame); err != nil {
		p.failLocked(err)
		return err
	}
	if p.state == StateStopped {
		p.state = StatePaused
	}
	return nil
}

// SeekTime shows the frame at the given offset in seconds.
func (p *Player) SeekTime(seconds float64) error {
	p.mu.Lock()
	rate := p.info.FrameRate
	p.mu.Unlock()
	return p.Seek(frameAt(seconds, rate))
}

// frameAt converts an offset to a frame index, saturating rather than
// overflowing. NaN and negative offsets give frame 0.
func frameAt(seconds, rate float64) int {
	f := math.Floor(seconds * rate)
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(f)
}

// SetLoop selects whether the clip restarts at its end.
func (p *Player) SetLoop(loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return ErrUnloaded
	}
	p.loop = loop
	return nil
}

// SetAlpha selects whether the clip's alpha channel is kept. Disabled,
// every pixel is opaque. Takes effect from the next decoded frame.
func (p *Player) SetAlpha(alpha bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return ErrUnloaded
	}
	p.alpha = alpha
	return nil
}

// Status is a consistent snapshot of a player.
type Status struct {
	State    State
	Frame    int
	Total    int
	Loop     bool
	Alpha    bool
	Info     Info
	Codec    string
	Version  uint64
	Err      error
	Unloaded bool
}

// Status returns a snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:    p.state,
		Frame:    p.frame,
		Total:    p.info.TotalFrames,
		Loop:     p.loop,
		Alpha:    p.alpha,
		Info:     p.info,
		Codec:    p.codec,
		Version:  p.version,
		Err:      p.err,
		Unloaded: p.unloaded,
	}
}

// Texture returns the frame currently shown. The image stays valid
// until the next update of this player.
func (p *Player) Texture() (*image.RGBA, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return nil, false
	}
	return p.tex, true
}

// unload closes the decoder. It waits for an in-flight update.
func (p *Player) unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return
	}
	p.unloaded = true
	p.state = StateStopped
	if err := p.dec.Close(); err != nil {
		logx.L().Warn("video: close decoder", "path", p.path, "err", err)
	}
	p.dec = nil
	p.tex, p.back = nil, nil
}
