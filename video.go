package daro

import (
	"github.com/gogpu/daro/video"
)

// LoadVideo opens the clip at path and returns its id. The clip starts
// in the Loaded state at frame 0 with looping on and alpha off.
//
// Opening and decoding the first frame happen without the engine lock.
func (e *Engine) LoadVideo(path string) (video.ID, error) {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return 0, ErrNotInitialized
	}
	videos := e.videos
	e.mu.Unlock()
	return videos.Load(path)
}

// withVideos runs fn with the engine lock held, so transport changes never
// interleave with a composite reading the same clip's texture.
func (e *Engine) withVideos(fn func(*video.Registry) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	return fn(e.videos)
}

// UnloadVideo releases a clip. Unknown ids are ignored.
func (e *Engine) UnloadVideo(id video.ID) {
	e.withVideos(func(r *video.Registry) error {
		r.Unload(id)
		return nil
	})
}

// PlayVideo starts or resumes a clip. A stopped clip restarts from frame 0.
func (e *Engine) PlayVideo(id video.ID) error {
	return e.withVideos(func(r *video.Registry) error { return r.Play(id) })
}

// PauseVideo holds a clip on its current frame.
func (e *Engine) PauseVideo(id video.ID) error {
	return e.withVideos(func(r *video.Registry) error { return r.Pause(id) })
}

// StopVideo stops a clip and rewinds it to frame 0.
func (e *Engine) StopVideo(id video.ID) error {
	return e.withVideos(func(r *video.Registry) error { return r.Stop(id) })
}

// SeekVideo moves a clip to frame, clamped to [0, total-1].
func (e *Engine) SeekVideo(id video.ID, frame int) error {
	return e.withVideos(func(r *video.Registry) error { return r.Seek(id, frame) })
}

// SeekVideoTime moves a clip to the frame shown at seconds.
func (e *Engine) SeekVideoTime(id video.ID, seconds float64) error {
	return e.withVideos(func(r *video.Registry) error { return r.SeekTime(id, seconds) })
}

// SetVideoLoop sets whether a clip restarts at its end.
func (e *Engine) SetVideoLoop(id video.ID, loop bool) error {
	return e.withVideos(func(r *video.Registry) error { return r.SetLoop(id, loop) })
}

// SetVideoAlpha sets whether a clip's alpha channel is honoured.
func (e *Engine) SetVideoAlpha(id video.ID, alpha bool) error {
	return e.withVideos(func(r *video.Registry) error { return r.SetAlpha(id, alpha) })
}

// VideoFrame returns the current frame index of a clip.
func (e *Engine) VideoFrame(id video.ID) (int, error) {
	var n int
	err := e.withVideos(func(r *video.Registry) (err error) {
		n, err = r.Frame(id)
		return err
	})
	return n, err
}

// VideoTotalFrames returns the frame count of a clip.
func (e *Engine) VideoTotalFrames(id video.ID) (int, error) {
	var n int
	err := e.withVideos(func(r *video.Registry) (err error) {
		n, err = r.TotalFrames(id)
		return err
	})
	return n, err
}

// VideoState returns the transport state of a clip.
func (e *Engine) VideoState(id video.ID) (video.State, error) {
	var s video.State
	err := e.withVideos(func(r *video.Registry) (err error) {
		s, err = r.State(id)
		return err
	})
	return s, err
}
