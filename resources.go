package daro

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/daro/cache"
	"github.com/gogpu/daro/device"
	"github.com/gogpu/daro/internal/logx"
	"github.com/gogpu/daro/media"
	"github.com/gogpu/daro/stream"
	"github.com/gogpu/daro/video"
)

const streamKeyPrefix = "stream:"

// imageCache returns the image cache and load policy, or ErrNotInitialized.
func (e *Engine) imageCache() (*cache.Cache[*device.Texture], media.Policy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, media.Policy{}, ErrNotInitialized
	}
	return e.images, e.opts.policy, nil
}

// LoadResource loads the image at path as a texture and returns its
// handle. Loading a path that is already resident returns the same
// handle and takes another reference; balance every successful call with
// UnloadResource.
//
// The file is decoded without the engine lock held.
func (e *Engine) LoadResource(path string) (cache.Handle, error) {
	images, policy, err := e.imageCache()
	if err != nil {
		return cache.Invalid, err
	}
	abs, err := policy.CheckPath(path)
	if err != nil {
		return cache.Invalid, err
	}
	return images.Load(abs)
}

// loadImage is the image cache loader. Only the upload holds the engine
// lock.
func (e *Engine) loadImage(path string) (*device.Texture, error) {
	e.mu.Lock()
	policy := e.opts.policy
	e.mu.Unlock()

	img, err := policy.DecodeImage(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	tex, err := device.Upload(e.dev, img)
	if err != nil {
		return nil, err
	}
	logx.L().Debug("daro: texture loaded", "path", path, "size", tex.Bounds().Size())
	return tex, nil
}

// UnloadResource drops one reference to an image. Unknown handles and
// handles whose count is already zero are ignored.
func (e *Engine) UnloadResource(h cache.Handle) {
	if images, _, err := e.imageCache(); err == nil {
		images.Unload(h)
	}
}

// ResourceRefCount returns the reference count of the image at path, or
// zero when it is not resident.
func (e *Engine) ResourceRefCount(path string) int {
	images, policy, err := e.imageCache()
	if err != nil {
		return 0
	}
	abs, err := policy.CheckPath(path)
	if err != nil {
		return 0
	}
	return images.RefCount(abs)
}

// SetMaxResources changes the soft limit of the image and stream caches.
// Unreferenced entries beyond the new limit are released at once.
func (e *Engine) SetMaxResources(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max resources %d", ErrInvalidArgument, n)
	}
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	e.opts.maxResources = n
	images, streams := e.images, e.streams
	e.mu.Unlock()
	images.SetMax(n)
	streams.SetMax(n)
	return nil
}

// MaxResources returns the soft limit of the image and stream caches.
func (e *Engine) MaxResources() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.maxResources
}

// SetPolicy replaces the load policy for later image and video loads.
func (e *Engine) SetPolicy(p media.Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.policy = p
	if e.videos != nil {
		e.videos.SetPolicy(p)
	}
}

// streamSource is a connected input stream and the texture the
// compositor samples from. tex is refreshed at the start of each frame.
type streamSource struct {
	recv   *stream.Receiver
	tex    *image.RGBA
	number uint64
}

func (s *streamSource) refresh() {
	img, n, err := s.recv.Frame(s.tex)
	if err != nil {
		return
	}
	s.tex, s.number = img, n
}

func (e *Engine) dialStream(key string) (*streamSource, error) {
	name := strings.TrimPrefix(key, streamKeyPrefix)
	e.mu.Lock()
	dir, timeout := e.dir, e.opts.dialTimeout
	e.mu.Unlock()
	if dir == nil {
		return nil, ErrNotInitialized
	}
	url, err := dir.Lookup(name)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	recv, err := stream.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	logx.L().Info("daro: stream connected", "name", name, "url", url)
	return &streamSource{recv: recv}, nil
}

func releaseStream(key string, s *streamSource) {
	if err := s.recv.Close(); err != nil {
		logx.L().Debug("daro: stream close", "name", strings.TrimPrefix(key, streamKeyPrefix), "err", err)
	}
}

// ConnectStream connects to the named input stream and returns a handle
// usable as a layer's StreamID. Connecting a name twice shares the
// connection.
func (e *Engine) ConnectStream(name string) (cache.Handle, error) {
	if err := stream.ValidateName(name); err != nil {
		return cache.Invalid, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return cache.Invalid, ErrNotInitialized
	}
	streams := e.streams
	e.mu.Unlock()
	return streams.Load(streamKeyPrefix + name)
}

// DisconnectStream drops one reference to an input stream.
func (e *Engine) DisconnectStream(h cache.Handle) {
	e.mu.Lock()
	streams := e.streams
	e.mu.Unlock()
	if streams != nil {
		streams.Unload(h)
	}
}

// StreamNames lists the explicitly registered stream names.
func (e *Engine) StreamNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dir == nil {
		return nil
	}
	return e.dir.Names()
}

// EnableStreamOutput starts broadcasting presented frames under name and
// returns the sender so the host can serve it over HTTP. A previous
// output is closed.
func (e *Engine) EnableStreamOutput(name string) (*stream.Sender, error) {
	s, err := stream.NewSender(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if e.out != nil {
		e.out.Close()
	}
	e.out = s
	logx.L().Info("daro: stream output enabled", "name", name)
	return s, nil
}

// DisableStreamOutput stops the stream output.
func (e *Engine) DisableStreamOutput() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out != nil {
		e.out.Close()
		e.out = nil
	}
}

// StreamOutput returns the active output sender, or nil.
func (e *Engine) StreamOutput() *stream.Sender {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out
}

// textures resolves layer texture ids during Composite, which holds the
// engine lock.
type textures struct{ e *Engine }

func (t textures) Image(h int32) (*image.RGBA, bool) {
	tex, ok := t.e.images.Get(cache.Handle(h))
	if !ok || tex == nil {
		return nil, false
	}
	return tex.Image, true
}

func (t textures) Video(id int32) (*image.RGBA, bool) {
	return t.e.videos.Texture(video.ID(id))
}

func (t textures) Stream(h int32) (*image.RGBA, bool) {
	s, ok := t.e.streams.Get(cache.Handle(h))
	if !ok || s.tex == nil {
		return nil, false
	}
	return s.tex, true
}
