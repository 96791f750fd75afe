package daro

import (
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/daro/cache"
	"github.com/gogpu/daro/device"
	"github.com/gogpu/daro/framebuf"
	"github.com/gogpu/daro/internal/logx"
	"github.com/gogpu/daro/layer"
	"github.com/gogpu/daro/render"
	"github.com/gogpu/daro/stream"
	"github.com/gogpu/daro/video"
	"github.com/gogpu/gputypes"
)

// stagingAlign is the row pitch alignment of the readback buffer.
const stagingAlign = 256

// Engine composites a layer stack into frames at a fixed resolution.
//
// Every method that touches the device, the layer array or the frame
// cycle holds the engine lock for its duration. Slow loads (image decode,
// video open, stream dial) run outside it and take it only to hand the
// result over, so a load never stalls a frame. Frame buffer access goes
// to the exchange directly.
//
// The zero value is not usable; call New.
type Engine struct {
	opts options

	mu          sync.Mutex
	initialized bool
	lastErr     error

	width, height int
	fps           float64

	dev      device.Device
	target   *image.RGBA
	staging  []byte
	stride   int
	comp     *render.Compositor
	fb       *framebuf.Exchange
	lost     bool
	showBnds bool

	layers [layer.MaxLayers]layer.Layer
	count  int

	images  *cache.Cache[*device.Texture]
	streams *cache.Cache[*streamSource]
	videos  *video.Registry
	dir     *stream.Directory
	out     *stream.Sender

	frame    atomic.Uint64
	sched    *Scheduler
	composed bool
	lastEnd  time.Time
	stats    Stats
}

// New returns an uninitialized engine.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{opts: o}
}

// Initialize creates the device and every frame resource for a width by
// height output at fps frames per second. On failure nothing is left
// allocated and the engine stays uninitialized; Code classifies the error.
func (e *Engine) Initialize(width, height int, fps float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.initLocked(width, height, fps)
	e.lastErr = err
	if err != nil {
		logx.L().Warn("daro: initialize failed", "width", width, "height", height, "fps", fps, "err", err)
		return err
	}
	logx.L().Info("daro: initialized", "width", width, "height", height, "fps", fps, "device", e.dev.Name())
	return nil
}

func (e *Engine) initLocked(width, height int, fps float64) (err error) {
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidArgument, width, height)
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return fmt.Errorf("%w: fps %v", ErrInvalidArgument, fps)
	}
	if e.opts.hostLayerSize != layer.Size {
		return fmt.Errorf("%w: host %d bytes, engine %d bytes", ErrLayerLayout, e.opts.hostLayerSize, layer.Size)
	}

	var dev device.Device
	defer func() {
		if err != nil && dev != nil {
			dev.Close()
		}
	}()

	dev, err = e.openDevice()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateDevice, err)
	}
	target, err := dev.NewTarget(width, height)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateRenderTarget, err)
	}
	if err := device.LoadCompositeShader(dev); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateShaders, err)
	}
	comp, err := render.New(width, height, e.opts.fonts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateGeometry, err)
	}
	comp.SetInterpolator(e.opts.interp)
	staging, stride, err := newStaging(width, height)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateStaging, err)
	}
	fb, err := framebuf.New(width, height)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFrameBuffer, err)
	}

	e.dev, e.target, e.comp = dev, target, comp
	e.staging, e.stride, e.fb = staging, stride, fb
	e.width, e.height, e.fps = width, height, fps
	e.lost = false

	e.images = cache.New(e.opts.maxResources, e.loadImage, nil)
	e.streams = cache.New(e.opts.maxResources, e.dialStream, releaseStream)
	e.videos = video.NewRegistry(
		video.WithPolicy(e.opts.policy),
		video.WithMaxVideos(e.opts.maxVideos),
		video.WithClock(e.opts.now),
	)
	e.dir = e.opts.directory
	if e.dir == nil {
		e.dir = stream.NewDirectory("")
	}

	e.layers = [layer.MaxLayers]layer.Layer{}
	e.count = 0
	e.frame.Store(0)
	e.stats = Stats{}
	e.composed = false
	e.lastEnd = e.opts.now()
	e.initialized = true
	return nil
}

func (e *Engine) openDevice() (device.Device, error) {
	if e.opts.deviceName != "" {
		return device.Open(e.opts.deviceName)
	}
	return device.OpenDefault()
}

// newStaging allocates the readback buffer with an aligned row pitch.
func newStaging(width, height int) ([]byte, int, error) {
	stride := (width*framebuf.BytesPerPixel + stagingAlign - 1) &^ (stagingAlign - 1)
	if height > math.MaxInt/stride {
		return nil, 0, fmt.Errorf("staging %dx%d overflows", width, height)
	}
	return make([]byte, stride*height), stride, nil
}

// Shutdown stops an attached scheduler and releases everything
// Initialize created. It is a no-op on an uninitialized engine.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	s := e.sched
	e.mu.Unlock()
	if s != nil {
		s.Stop(DefaultStopTimeout)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return
	}
	e.initialized = false

	if e.out != nil {
		e.out.Close()
		e.out = nil
	}
	e.videos.Close()
	e.streams.Close()
	e.images.Close()
	if err := e.dev.Close(); err != nil {
		logx.L().Warn("daro: close device", "err", err)
	}
	e.dev, e.target, e.comp, e.staging, e.fb = nil, nil, nil, nil, nil
	e.videos, e.streams, e.images = nil, nil, nil
	e.layers = [layer.MaxLayers]layer.Layer{}
	e.count = 0
	logx.L().Info("daro: shut down", "frames", e.frame.Load())
}

// IsInitialized reports whether Initialize succeeded and Shutdown has not
// been called since.
func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// LastError returns the error of the most recent Initialize, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Size returns the output dimensions and target frame rate.
func (e *Engine) Size() (width, height int, fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, e.fps
}

// LayerRecordSize returns the size of the binary layer record the engine
// was built with.
func (e *Engine) LayerRecordSize() int { return layer.Size }

// Device returns the current rendering device, or nil when uninitialized.
func (e *Engine) Device() device.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dev
}

// FrameBuffer returns the exchange frames are published to, for
// consumers that poll it directly. Nil when uninitialized.
func (e *Engine) FrameBuffer() *framebuf.Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fb
}

// SetShowBounds toggles the layer bounds overlay.
func (e *Engine) SetShowBounds(show bool) {
	e.mu.Lock()
	e.showBnds = show
	e.mu.Unlock()
}

// FrameNumber returns the number of completed frames.
func (e *Engine) FrameNumber() uint64 { return e.frame.Load() }

// LockFrameBuffer grants read access to the last completed frame until
// UnlockFrameBuffer. The frame's Number is the FrameNumber after the
// cycle that produced it; zero means nothing has been published.
func (e *Engine) LockFrameBuffer() (framebuf.Frame, error) {
	fb := e.FrameBuffer()
	if fb == nil {
		return framebuf.Frame{}, ErrNotInitialized
	}
	return fb.Lock()
}

// UnlockFrameBuffer releases the frame obtained by LockFrameBuffer.
func (e *Engine) UnlockFrameBuffer() {
	if fb := e.FrameBuffer(); fb != nil {
		fb.Unlock()
	}
}

// IsDeviceLost polls the device and reports whether it has been lost.
// Once lost, the engine stays lost until RecoverDevice succeeds.
func (e *Engine) IsDeviceLost() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deviceLostLocked()
}

func (e *Engine) deviceLostLocked() bool {
	if !e.initialized {
		return false
	}
	if !e.lost {
		if err := e.dev.Err(); err != nil {
			e.lost = true
			logx.L().Warn("daro: device lost", "device", e.dev.Name(), "err", err)
		}
	}
	return e.lost
}

// RecoverDevice replaces a lost device with a freshly opened one and
// recreates everything that lived on it. The lost state clears only on
// success. Recovering a healthy device is a no-op.
func (e *Engine) RecoverDevice() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if !e.deviceLostLocked() {
		return nil
	}

	if err := e.dev.Close(); err != nil {
		logx.L().Debug("daro: close lost device", "err", err)
	}
	dev, err := e.openDevice()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateDevice, err)
	}
	target, err := dev.NewTarget(e.width, e.height)
	if err != nil {
		dev.Close()
		return fmt.Errorf("%w: %w", ErrCreateRenderTarget, err)
	}
	if err := device.LoadCompositeShader(dev); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %w", ErrCreateShaders, err)
	}
	staging, stride, err := newStaging(e.width, e.height)
	if err != nil {
		dev.Close()
		return fmt.Errorf("%w: %w", ErrCreateStaging, err)
	}

	e.dev, e.target = dev, target
	e.staging, e.stride = staging, stride
	e.composed = false
	e.lost = false
	logx.L().Info("daro: device recovered", "device", dev.Name())
	return nil
}

// checkLocked returns the error a frame call must fail with, if any.
func (e *Engine) checkLocked() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if e.deviceLostLocked() {
		return ErrDeviceLost
	}
	return nil
}

// BeginFrame starts a frame cycle and refreshes stream textures.
func (e *Engine) BeginFrame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.beginLocked()
}

// Composite renders the layer stack and publishes the result to the frame
// buffer exchange.
func (e *Engine) Composite() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compositeLocked()
}

// Present sends the composited frame to the stream output, if enabled.
func (e *Engine) Present() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presentLocked()
}

// EndFrame completes the cycle, updates timing statistics and advances
// the frame number.
func (e *Engine) EndFrame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.endLocked()
}

// Tick runs BeginFrame, Composite, Present and EndFrame under a single
// hold of the engine lock.
func (e *Engine) Tick() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickLocked()
}

func (e *Engine) tickLocked() error {
	if err := e.beginLocked(); err != nil {
		return err
	}
	if err := e.compositeLocked(); err != nil {
		return err
	}
	if err := e.presentLocked(); err != nil {
		return err
	}
	return e.endLocked()
}

func (e *Engine) beginLocked() error {
	if err := e.checkLocked(); err != nil {
		return err
	}
	e.streams.Each(func(_ string, _ cache.Handle, s *streamSource) bool {
		s.refresh()
		return true
	})
	return nil
}

func (e *Engine) compositeLocked() error {
	if err := e.checkLocked(); err != nil {
		return err
	}
	start := e.opts.now()
	e.videos.Update()
	rs := e.comp.Render(e.target, e.layers[:e.count], textures{e}, render.Options{ShowBounds: e.showBnds})

	row := e.width * framebuf.BytesPerPixel
	for y := range e.height {
		src := e.target.Pix[y*e.target.Stride : y*e.target.Stride+row]
		copy(e.staging[y*e.stride:], src)
	}
	e.composed = true

	number := e.frame.Load() + 1
	if err := e.fb.Publish(e.staging, e.stride, e.width, e.height, number); err != nil {
		e.stats.SkippedPublishes++
		logx.L().Debug("daro: frame not published", "frame", number, "err", err)
	}
	e.stats.Layers = rs
	e.stats.RenderTime = e.opts.now().Sub(start)
	return nil
}

func (e *Engine) presentLocked() error {
	if err := e.checkLocked(); err != nil {
		return err
	}
	if e.out == nil || !e.composed {
		return nil
	}
	if err := e.out.Send(e.stagedFrameLocked()); err != nil {
		logx.L().Debug("daro: stream output", "err", err)
	}
	return nil
}

// stagedFrameLocked describes the staging buffer as the next frame. The
// compositor always writes RGBA whatever the device's surface format.
func (e *Engine) stagedFrameLocked() framebuf.Frame {
	return framebuf.Frame{
		Pix:    e.staging,
		Width:  e.width,
		Height: e.height,
		Stride: e.stride,
		Number: e.frame.Load() + 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}
}

func (e *Engine) endLocked() error {
	if err := e.checkLocked(); err != nil {
		return err
	}
	now := e.opts.now()
	elapsed := now.Sub(e.lastEnd)
	e.lastEnd = now
	e.stats.FrameTime = elapsed
	if elapsed > 0 {
		e.stats.FPS = float64(time.Second) / float64(elapsed)
	}
	// Missing the period by more than half counts every whole period
	// beyond the first as dropped.
	target := float64(time.Second) / e.fps
	if float64(elapsed) > target*1.5 {
		if n := int64(float64(elapsed)/target) - 1; n > 0 {
			e.stats.DroppedFrames += n
		}
	}
	e.composed = false
	e.frame.Add(1)
	return nil
}
