package daro

import (
	"time"

	"github.com/gogpu/daro/cache"
	"github.com/gogpu/daro/layer"
	"github.com/gogpu/daro/media"
	"github.com/gogpu/daro/render"
	"github.com/gogpu/daro/stream"
	"github.com/gogpu/daro/video"
	"golang.org/x/image/draw"
)

// Option configures an Engine at construction.
type Option func(*options)

type options struct {
	hostLayerSize int
	deviceName    string
	policy        media.Policy
	maxResources  int
	maxVideos     int
	directory     *stream.Directory
	fonts         *render.Fonts
	interp        draw.Interpolator
	dialTimeout   time.Duration
	now           func() time.Time
}

func defaultOptions() options {
	return options{
		hostLayerSize: layer.Size,
		policy:        media.DefaultPolicy(),
		maxResources:  cache.DefaultMax,
		maxVideos:     video.DefaultMaxVideos,
		dialTimeout:   5 * time.Second,
		now:           time.Now,
	}
}

// WithHostLayerSize declares the layer record size the host was built
// against. Initialize fails with ErrLayerLayout when it differs from
// layer.Size.
func WithHostLayerSize(n int) Option {
	return func(o *options) { o.hostLayerSize = n }
}

// WithDevice selects a registered device by name instead of the default
// priority order.
func WithDevice(name string) Option {
	return func(o *options) { o.deviceName = name }
}

// WithPolicy sets the load policy for images and videos.
func WithPolicy(p media.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithMaxResources sets the soft limit of the image and stream caches.
func WithMaxResources(n int) Option {
	return func(o *options) { o.maxResources = n }
}

// WithMaxVideos bounds the number of loaded clips.
func WithMaxVideos(n int) Option {
	return func(o *options) { o.maxVideos = n }
}

// WithDirectory sets the directory ConnectStream resolves names in.
func WithDirectory(d *stream.Directory) Option {
	return func(o *options) { o.directory = d }
}

// WithFonts sets the font resolver for text layers. The default uses the
// built-in Go fonts only.
func WithFonts(f *render.Fonts) Option {
	return func(o *options) { o.fonts = f }
}

// WithInterpolator selects how scaled and rotated textures are sampled.
// The default is bilinear; draw.NearestNeighbor keeps hard pixel edges.
func WithInterpolator(i draw.Interpolator) Option {
	return func(o *options) { o.interp = i }
}

// WithDialTimeout bounds how long ConnectStream waits for a connection.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithClock replaces time.Now for frame timing and video playback.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
