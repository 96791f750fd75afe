package daro

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/daro/cache"
	"github.com/gogpu/daro/device"
	"github.com/gogpu/daro/framebuf"
	"github.com/gogpu/daro/layer"
	"github.com/gogpu/daro/video"
	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, w, h int, opts ...Option) *Engine {
	t.Helper()
	e := New(opts...)
	require.NoError(t, e.Initialize(w, h, 50))
	t.Cleanup(e.Shutdown)
	return e
}

func solidRect(w, h float32, r, g, b float32) layer.Layer {
	return layer.Layer{
		Active: true, Type: layer.TypeRect,
		PosX: w / 2, PosY: h / 2, SizeX: w, SizeY: h,
		AnchorX: 0.5, AnchorY: 0.5,
		Opacity: 1, ColorR: r, ColorG: g, ColorB: b, ColorA: 1,
	}
}

func writePNG(t *testing.T, dir, name string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func pixelAt(f framebuf.Frame, x, y int) color.RGBA {
	o := y*f.Stride + x*framebuf.BytesPerPixel
	return color.RGBA{R: f.Pix[o], G: f.Pix[o+1], B: f.Pix[o+2], A: f.Pix[o+3]}
}

func lockedPixel(t *testing.T, e *Engine, x, y int) color.RGBA {
	t.Helper()
	f, err := e.LockFrameBuffer()
	require.NoError(t, err)
	defer e.UnlockFrameBuffer()
	return pixelAt(f, x, y)
}

func TestEndToEndText(t *testing.T) {
	e := newEngine(t, 1920, 1080)
	require.NoError(t, e.SetLayerCount(1))
	require.NoError(t, e.UpdateLayer(0, layer.Layer{
		ID: 1, Active: true, Type: layer.TypeText, Text: "HELLO",
		PosX: 960, PosY: 540, SizeX: 800, SizeY: 200,
		AnchorX: 0.5, AnchorY: 0.5,
		Opacity: 1, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
	}))

	require.NoError(t, e.BeginFrame())
	require.NoError(t, e.Composite())
	require.NoError(t, e.Present())
	require.NoError(t, e.EndFrame())
	assert.Equal(t, uint64(1), e.FrameNumber())

	f, err := e.LockFrameBuffer()
	require.NoError(t, err)
	defer e.UnlockFrameBuffer()

	assert.Equal(t, 1920, f.Width)
	assert.Equal(t, 1080, f.Height)
	assert.GreaterOrEqual(t, f.Stride, 1920*4)
	assert.Equal(t, uint64(1), f.Number)

	var lit int
	for y := 440; y < 640; y++ {
		for x := 560; x < 1360; x++ {
			if pixelAt(f, x, y) != (color.RGBA{}) {
				lit++
			}
		}
	}
	assert.Positive(t, lit, "text left the frame at the clear color")
	assert.Equal(t, color.RGBA{}, pixelAt(f, 10, 10))
}

func TestInitializeRejectsArguments(t *testing.T) {
	for _, tc := range []struct {
		w, h int
		fps  float64
	}{
		{0, 1080, 50}, {1920, -1, 50}, {1920, 1080, 0}, {1920, 1080, -25},
		{1920, 1080, math.NaN()}, {1920, 1080, math.Inf(1)},
	} {
		e := New()
		err := e.Initialize(tc.w, tc.h, tc.fps)
		assert.ErrorIs(t, err, ErrInvalidArgument, "%+v", tc)
		assert.Equal(t, CodeInvalidArgument, Code(err))
		assert.False(t, e.IsInitialized())
	}
}

func TestLayoutMismatchFailsInitialize(t *testing.T) {
	e := New(WithHostLayerSize(layer.Size - 8))
	err := e.Initialize(64, 36, 50)
	require.ErrorIs(t, err, ErrLayerLayout)
	assert.Equal(t, CodeLayerLayout, Code(err))
	assert.False(t, e.IsInitialized())
	assert.Nil(t, e.Device())
	assert.Nil(t, e.FrameBuffer())
	assert.Equal(t, err, e.LastError())
	assert.ErrorIs(t, e.Tick(), ErrNotInitialized)

	ok := New(WithHostLayerSize(e.LayerRecordSize()))
	require.NoError(t, ok.Initialize(64, 36, 50))
	ok.Shutdown()
}

func TestInitializeTwice(t *testing.T) {
	e := newEngine(t, 64, 36)
	err := e.Initialize(64, 36, 50)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, CodeAlreadyInit, Code(err))
	assert.True(t, e.IsInitialized())
}

func TestUnknownDevice(t *testing.T) {
	e := New(WithDevice("no-such-device"))
	err := e.Initialize(64, 36, 50)
	assert.ErrorIs(t, err, ErrCreateDevice)
	assert.ErrorIs(t, err, device.ErrNotRegistered)
	assert.Equal(t, CodeCreateDevice, Code(err))
	assert.False(t, e.IsInitialized())
}

func TestOversizedTargetFails(t *testing.T) {
	e := New()
	err := e.Initialize(device.MaxTargetSize+1, 16, 50)
	assert.ErrorIs(t, err, ErrCreateRenderTarget)
	assert.False(t, e.IsInitialized())
}

func TestCallsBeforeInitialize(t *testing.T) {
	e := New()
	assert.ErrorIs(t, e.SetLayerCount(1), ErrNotInitialized)
	assert.ErrorIs(t, e.UpdateLayer(0, layer.Layer{}), ErrNotInitialized)
	_, err := e.Layer(0)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, e.ClearLayers(), ErrNotInitialized)
	assert.ErrorIs(t, e.BeginFrame(), ErrNotInitialized)
	assert.ErrorIs(t, e.Composite(), ErrNotInitialized)
	assert.ErrorIs(t, e.Present(), ErrNotInitialized)
	assert.ErrorIs(t, e.EndFrame(), ErrNotInitialized)
	assert.ErrorIs(t, e.Tick(), ErrNotInitialized)
	_, err = e.LoadResource("x.png")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.LoadVideo("x.gif")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, e.PlayVideo(1), ErrNotInitialized)
	_, err = e.ConnectStream("cam")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = e.LockFrameBuffer()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, e.RecoverDevice(), ErrNotInitialized)
	_, err = e.EnableStreamOutput("out")
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.False(t, e.IsDeviceLost())
	e.UnloadResource(1)
	e.UnloadVideo(1)
	e.UnlockFrameBuffer()
	e.Shutdown()
	assert.Zero(t, e.FrameNumber())
}

func TestShutdownAndReinitialize(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(64, 36, 50))
	require.NoError(t, e.SetLayerCount(3))
	require.NoError(t, e.Tick())
	e.Shutdown()
	assert.False(t, e.IsInitialized())
	assert.ErrorIs(t, e.Tick(), ErrNotInitialized)
	e.Shutdown()

	require.NoError(t, e.Initialize(32, 32, 25))
	defer e.Shutdown()
	assert.Zero(t, e.LayerCount())
	assert.Zero(t, e.FrameNumber())
	w, h, fps := e.Size()
	assert.Equal(t, []any{32, 32, 25.0}, []any{w, h, fps})
}

func TestLayers(t *testing.T) {
	e := newEngine(t, 64, 36)

	require.NoError(t, e.SetLayerCount(100))
	assert.Equal(t, layer.MaxLayers, e.LayerCount())
	require.NoError(t, e.SetLayerCount(-3))
	assert.Zero(t, e.LayerCount())

	for _, i := range []int{-1, layer.MaxLayers} {
		assert.ErrorIs(t, e.UpdateLayer(i, layer.Layer{}), ErrInvalidArgument, "index %d", i)
		_, err := e.Layer(i)
		assert.ErrorIs(t, err, ErrInvalidArgument, "index %d", i)
	}
	assert.ErrorIs(t, e.UpdateLayer(0, layer.Layer{Type: 42}), ErrInvalidArgument)

	masks := []int32{1, 2}
	require.NoError(t, e.UpdateLayer(63, layer.Layer{ID: 9, Type: layer.TypeMask, Opacity: 3, Masks: masks}))
	masks[0] = 77
	got, err := e.Layer(63)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.Opacity)
	assert.Equal(t, []int32{1, 2}, got.Masks)
	got.Masks[1] = 88
	again, _ := e.Layer(63)
	assert.Equal(t, []int32{1, 2}, again.Masks)

	require.NoError(t, e.ClearLayers())
	cleared, _ := e.Layer(63)
	assert.Equal(t, layer.Layer{}, cleared)
}

func TestUpdateLayerRecord(t *testing.T) {
	e := newEngine(t, 64, 36)
	l := solidRect(64, 36, 0, 0, 1)
	l.ID = 4
	l.Text = "caption"
	rec, err := l.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, e.UpdateLayerRecord(2, rec))
	got, err := e.Layer(2)
	require.NoError(t, err)
	assert.Equal(t, int32(4), got.ID)
	assert.Equal(t, "caption", got.Text)

	assert.ErrorIs(t, e.UpdateLayerRecord(2, rec[:10]), ErrInvalidArgument)
}

func TestLayersBeyondCountAreNotDrawn(t *testing.T) {
	e := newEngine(t, 64, 36)
	require.NoError(t, e.UpdateLayer(0, solidRect(64, 36, 1, 0, 0)))
	require.NoError(t, e.Tick())
	assert.Equal(t, color.RGBA{}, lockedPixel(t, e, 32, 18))

	require.NoError(t, e.SetLayerCount(1))
	require.NoError(t, e.Tick())
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, lockedPixel(t, e, 32, 18))
}

func TestDeviceLossBlocksFramesUntilRecovery(t *testing.T) {
	e := newEngine(t, 64, 36)
	require.NoError(t, e.SetLayerCount(1))
	require.NoError(t, e.UpdateLayer(0, solidRect(64, 36, 0, 1, 0)))
	require.NoError(t, e.Tick())
	require.Equal(t, uint64(1), e.FrameNumber())

	sw, ok := e.Device().(*device.Software)
	require.True(t, ok)
	sw.Invalidate("driver reset")

	assert.True(t, e.IsDeviceLost())
	for _, call := range []func() error{e.BeginFrame, e.Composite, e.Present, e.EndFrame, e.Tick} {
		assert.ErrorIs(t, call(), ErrDeviceLost)
	}
	assert.Equal(t, uint64(1), e.FrameNumber())
	assert.Equal(t, uint64(1), e.FrameBuffer().Version())
	assert.Equal(t, CodeDeviceLost, Code(e.Tick()))

	require.NoError(t, e.RecoverDevice())
	assert.False(t, e.IsDeviceLost())
	assert.NotSame(t, sw, e.Device())
	require.NoError(t, e.Tick())
	assert.Equal(t, uint64(2), e.FrameNumber())
	assert.Equal(t, color.RGBA{G: 0xff, A: 0xff}, lockedPixel(t, e, 1, 1))

	// Healthy devices are left alone.
	dev := e.Device()
	require.NoError(t, e.RecoverDevice())
	assert.Same(t, dev, e.Device())
}

func TestFailedRecoveryStaysLost(t *testing.T) {
	var (
		mu    sync.Mutex
		opens int
	)
	name := fmt.Sprintf("flaky-%s", t.Name())
	device.Register(name, func() (device.Device, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		if opens > 1 {
			return nil, errors.New("adapter gone")
		}
		return device.NewSoftware(), nil
	})
	t.Cleanup(func() { device.Unregister(name) })

	e := newEngine(t, 64, 36, WithDevice(name))
	e.Device().(*device.Software).Invalidate("removed")

	err := e.RecoverDevice()
	assert.ErrorIs(t, err, ErrCreateDevice)
	assert.True(t, e.IsDeviceLost())
	assert.ErrorIs(t, e.Tick(), ErrDeviceLost)
}

// bgraDevice reports a BGRA surface like many window hosts do.
type bgraDevice struct{ *device.Software }

func (bgraDevice) Format() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

func TestStagedFrameIsRGBA(t *testing.T) {
	name := fmt.Sprintf("bgra-%s", t.Name())
	device.Register(name, func() (device.Device, error) {
		return bgraDevice{device.NewSoftware()}, nil
	})
	t.Cleanup(func() { device.Unregister(name) })

	e := newEngine(t, 32, 16, WithDevice(name))
	require.Equal(t, gputypes.TextureFormatBGRA8Unorm, e.Device().Format())
	require.NoError(t, e.Tick())

	e.mu.Lock()
	f := e.stagedFrameLocked()
	e.mu.Unlock()
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, f.Format)
	assert.Equal(t, uint64(2), f.Number)

	locked, err := e.LockFrameBuffer()
	require.NoError(t, err)
	assert.Equal(t, locked.Format, f.Format, "output and frame buffer agree")
	e.UnlockFrameBuffer()
}

func TestLoadResourceRefCounts(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "red.png", 8, 8, color.RGBA{R: 0xff, A: 0xff})
	e := newEngine(t, 64, 36)

	h1, err := e.LoadResource(path)
	require.NoError(t, err)
	h2, err := e.LoadResource(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 2, e.ResourceRefCount(path))

	e.UnloadResource(h1)
	assert.Equal(t, 1, e.ResourceRefCount(path))
	e.UnloadResource(h1)
	assert.Zero(t, e.ResourceRefCount(path))
	e.UnloadResource(h1)
	assert.Zero(t, e.ResourceRefCount(path))
	assert.Zero(t, e.Stats().Images.Entries)
}

func TestLoadResourceFailures(t *testing.T) {
	dir := t.TempDir()
	e := newEngine(t, 64, 36)

	_, err := e.LoadResource(dir + "/../secret.png")
	assert.Error(t, err)
	_, err = e.LoadResource(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o600))
	_, err = e.LoadResource(junk)
	assert.Error(t, err)
	assert.Zero(t, e.Stats().Images.Entries)
}

func TestImageLayer(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "blue.png", 4, 4, color.RGBA{B: 0xff, A: 0xff})
	e := newEngine(t, 64, 36)
	h, err := e.LoadResource(path)
	require.NoError(t, err)

	l := solidRect(64, 36, 0, 0, 0)
	l.Type = layer.TypeImage
	l.Source = layer.SourceImage
	l.TextureID = int32(h)
	require.NoError(t, e.SetLayerCount(1))
	require.NoError(t, e.UpdateLayer(0, l))
	require.NoError(t, e.Tick())
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, lockedPixel(t, e, 32, 18))

	e.UnloadResource(h)
	require.NoError(t, e.Tick())
	assert.Equal(t, color.RGBA{}, lockedPixel(t, e, 32, 18))
}

func TestConcurrentLoadsAndTicks(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 4)
	for i := range paths {
		paths[i] = writePNG(t, dir, fmt.Sprintf("p%d.png", i), 4, 4, color.RGBA{R: uint8(i * 60), A: 0xff})
	}
	e := newEngine(t, 64, 36, WithMaxResources(2))
	require.NoError(t, e.SetLayerCount(1))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h, err := e.LoadResource(paths[(g+i)%len(paths)])
				if assert.NoError(t, err) {
					l := solidRect(64, 36, 0, 0, 0)
					l.Type = layer.TypeImage
					l.TextureID = int32(h)
					e.UpdateLayer(0, l)
					e.UnloadResource(h)
				}
			}
		}(g)
	}
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Tick())
	}
	wg.Wait()
	st := e.Stats()
	assert.LessOrEqual(t, st.Images.Entries, 2)
	assert.Equal(t, uint64(50), st.Frames)
}

func writeGIF(t *testing.T, path string, frames int) {
	t.Helper()
	anim := &gif.GIF{}
	pal := color.Palette{color.RGBA{A: 0xff}, color.RGBA{R: 0xff, A: 0xff}}
	for i := 0; i < frames; i++ {
		img := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
		img.SetColorIndex(i%4, 0, 1)
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, 4)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.EncodeAll(f, anim))
	require.NoError(t, f.Close())
}

func TestVideoTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.gif")
	writeGIF(t, path, 3)
	e := newEngine(t, 64, 36)

	id, err := e.LoadVideo(path)
	require.NoError(t, err)
	total, err := e.VideoTotalFrames(id)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	st, err := e.VideoState(id)
	require.NoError(t, err)
	assert.Equal(t, video.StateLoaded, st)

	require.NoError(t, e.PlayVideo(id))
	st, _ = e.VideoState(id)
	assert.Equal(t, video.StatePlaying, st)
	require.NoError(t, e.PauseVideo(id))

	require.NoError(t, e.SeekVideo(id, 99))
	n, err := e.VideoFrame(id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, e.SeekVideoTime(id, 0.05))
	n, _ = e.VideoFrame(id)
	assert.Equal(t, 1, n)

	require.NoError(t, e.SetVideoLoop(id, false))
	require.NoError(t, e.SetVideoAlpha(id, true))
	require.NoError(t, e.StopVideo(id))
	n, _ = e.VideoFrame(id)
	assert.Zero(t, n)

	l := solidRect(64, 36, 0, 0, 0)
	l.Type = layer.TypeVideo
	l.TextureID = int32(id)
	require.NoError(t, e.SetLayerCount(1))
	require.NoError(t, e.UpdateLayer(0, l))
	require.NoError(t, e.Tick())
	assert.Equal(t, uint8(0xff), lockedPixel(t, e, 40, 18).A)

	e.UnloadVideo(id)
	_, err = e.VideoState(id)
	assert.ErrorIs(t, err, video.ErrNotFound)
	require.NoError(t, e.Tick())
	assert.Equal(t, color.RGBA{}, lockedPixel(t, e, 40, 18))
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFrameStats(t *testing.T) {
	clk := &stepClock{now: time.Unix(1000, 0)}
	e := newEngine(t, 64, 36, WithClock(clk.Now))

	clk.Advance(20 * time.Millisecond)
	require.NoError(t, e.Tick())
	st := e.Stats()
	assert.Equal(t, 20*time.Millisecond, st.FrameTime)
	assert.InDelta(t, 50, st.FPS, 0.001)
	assert.Zero(t, st.DroppedFrames)

	clk.Advance(25 * time.Millisecond)
	require.NoError(t, e.Tick())
	assert.Zero(t, e.Stats().DroppedFrames)

	clk.Advance(70 * time.Millisecond)
	require.NoError(t, e.Tick())
	st = e.Stats()
	assert.Equal(t, int64(2), st.DroppedFrames)
	assert.Equal(t, uint64(3), st.Frames)
	assert.Equal(t, uint64(3), st.Exchange.Published)
}

func TestBusyFrameBufferSkipsPublish(t *testing.T) {
	e := newEngine(t, 64, 36)
	e.FrameBuffer().SetPublishWait(time.Millisecond)

	require.NoError(t, e.Tick())
	f, err := e.LockFrameBuffer()
	require.NoError(t, err)
	require.NoError(t, e.Tick())
	assert.Equal(t, uint64(1), f.Number)
	e.UnlockFrameBuffer()

	st := e.Stats()
	assert.Equal(t, uint64(1), st.SkippedPublishes)
	assert.Equal(t, uint64(2), st.Frames)
	assert.Equal(t, uint64(1), e.FrameBuffer().Version())

	require.NoError(t, e.Tick())
	assert.Equal(t, uint64(3), e.FrameBuffer().Version())
}

func TestLockFrameBufferNeverTorn(t *testing.T) {
	e := newEngine(t, 64, 36)
	require.NoError(t, e.SetLayerCount(1))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c := float32(i % 2)
			e.UpdateLayer(0, solidRect(64, 36, c, 1-c, 0))
			e.Tick()
		}
	}()

	for i := 0; i < 500; i++ {
		f, err := e.LockFrameBuffer()
		require.NoError(t, err)
		first := pixelAt(f, 0, 0)
		last := pixelAt(f, 63, 35)
		e.UnlockFrameBuffer()
		require.Equal(t, first, last, "frame %d mixes two composites", f.Number)
	}
	close(stop)
	wg.Wait()
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeOK, Code(nil))
	assert.Equal(t, CodeUnknown, Code(errors.New("other")))
	assert.Equal(t, CodeCreateShaders, Code(fmt.Errorf("%w: %w", ErrCreateShaders, errors.New("x"))))
	assert.Equal(t, CodeSchedulerTimeout, Code(ErrSchedulerTimeout))
}

func TestShowBoundsDrawsOverlay(t *testing.T) {
	e := newEngine(t, 64, 36)
	l := solidRect(40, 20, 0, 0, 0)
	l.PosX, l.PosY = 32, 18
	l.Opacity = 0
	require.NoError(t, e.SetLayerCount(1))
	require.NoError(t, e.UpdateLayer(0, l))

	require.NoError(t, e.Tick())
	assert.Equal(t, color.RGBA{}, lockedPixel(t, e, 12, 18))

	e.SetShowBounds(true)
	require.NoError(t, e.Tick())
	assert.NotZero(t, lockedPixel(t, e, 12, 18).G)
}

func TestHandlesArePositive(t *testing.T) {
	dir := t.TempDir()
	e := newEngine(t, 16, 16)
	h, err := e.LoadResource(writePNG(t, dir, "a.png", 2, 2, color.RGBA{A: 0xff}))
	require.NoError(t, err)
	assert.Greater(t, h, cache.Invalid)
}
