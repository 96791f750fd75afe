package daro

import (
	"time"

	"github.com/gogpu/daro/cache"
	"github.com/gogpu/daro/framebuf"
	"github.com/gogpu/daro/render"
)

// Stats is a snapshot of engine timing and resource counters.
type Stats struct {
	Frames        uint64
	FPS           float64       // from the last frame interval
	FrameTime     time.Duration // last EndFrame to EndFrame interval
	RenderTime    time.Duration // time spent in the last Composite
	DroppedFrames int64         // periods missed by slow frames

	// SkippedPublishes counts composites the frame buffer refused because
	// a consumer held it too long.
	SkippedPublishes uint64

	Layers    render.Stats
	Images    cache.Stats
	Streams   cache.Stats
	Videos    int
	Exchange  framebuf.Stats
	Scheduled bool
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.stats
	st.Frames = e.frame.Load()
	if !e.initialized {
		return st
	}
	st.Images = e.images.Stats()
	st.Streams = e.streams.Stats()
	st.Videos = e.videos.Len()
	st.Exchange = e.fb.Stats()
	st.Scheduled = e.sched != nil && e.sched.Running()
	return st
}
