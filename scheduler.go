package daro

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/daro/internal/logx"
)

const (
	// DefaultSpinWindow is how long before a tick the scheduler stops
	// sleeping and yields in a loop instead.
	DefaultSpinWindow = 2 * time.Millisecond

	// DefaultStopTimeout bounds how long Stop waits for the loop.
	DefaultStopTimeout = 5 * time.Second

	// maxSleep keeps the loop responsive to Stop at low frame rates.
	maxSleep = 50 * time.Millisecond
)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSpinWindow sets the busy-wait window before each tick.
func WithSpinWindow(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.spin = d
		}
	}
}

// WithOnDeviceLost sets a callback run once when the loop stops because
// the device was lost. It runs on the loop goroutine after Done is
// closed.
func WithOnDeviceLost(fn func(error)) SchedulerOption {
	return func(s *Scheduler) { s.onLost = fn }
}

// WithOnFrame sets a callback run after every successful tick with the
// new frame number. It runs without the engine lock.
func WithOnFrame(fn func(uint64)) SchedulerOption {
	return func(s *Scheduler) { s.onFrame = fn }
}

// Scheduler drives an engine at its target frame rate on a dedicated,
// OS-thread-locked goroutine.
//
// Tick n is due at start + n*period. The loop sleeps until shortly before
// the deadline and yields until it passes, which keeps jitter well under
// the timer resolution of most systems. A loop that falls more than one
// period behind resynchronizes instead of bursting.
type Scheduler struct {
	e       *Engine
	spin    time.Duration
	onLost  func(error)
	onFrame func(uint64)

	mu      sync.Mutex // guards done and serializes Start
	done    chan struct{}
	running atomic.Bool
	stop    atomic.Bool
	ticks   atomic.Uint64
}

// NewScheduler returns a stopped scheduler for e.
func NewScheduler(e *Engine, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{e: e, spin: DefaultSpinWindow}
	for _, opt := range opts {
		opt(s)
	}
	closed := make(chan struct{})
	close(closed)
	s.done = closed
	return s
}

// Start launches the loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return nil
	}

	e := s.e
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	if e.sched != nil && e.sched != s && e.sched.Running() {
		e.mu.Unlock()
		return ErrSchedulerRunning
	}
	e.sched = s
	period := time.Duration(float64(time.Second) / e.fps)
	e.mu.Unlock()

	s.stop.Store(false)
	s.running.Store(true)
	s.done = make(chan struct{})
	go s.run(period, s.done)
	logx.L().Info("daro: scheduler started", "period", period)
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Done is closed when the loop exits, whether stopped or because the
// device was lost.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Ticks returns the number of completed ticks since creation.
func (s *Scheduler) Ticks() uint64 { return s.ticks.Load() }

// Stop asks the loop to exit and waits up to timeout for it. A
// non-positive timeout uses DefaultStopTimeout. On timeout the loop may
// still be inside a tick; the error is returned so the caller does not
// tear down what the loop might touch.
func (s *Scheduler) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	s.stop.Store(true)
	done := s.Done()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		logx.L().Warn("daro: scheduler did not stop", "timeout", timeout)
		return ErrSchedulerTimeout
	}
}

func (s *Scheduler) run(period time.Duration, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var lostErr error
	defer func() {
		s.running.Store(false)
		close(done)
		if lostErr != nil && s.onLost != nil {
			s.onLost(lostErr)
		}
	}()

	start := time.Now()
	var n int64
	for !s.stop.Load() {
		n++
		due := start.Add(time.Duration(n) * period)
		if !s.wait(due) {
			return
		}
		if behind := time.Since(due); behind > period {
			logx.L().Debug("daro: scheduler resync", "behind", behind)
			start, n = time.Now(), 0
		}

		frame, err := s.tick()
		switch {
		case errors.Is(err, ErrDeviceLost), errors.Is(err, ErrNotInitialized):
			logx.L().Warn("daro: scheduler stopping", "err", err)
			if errors.Is(err, ErrDeviceLost) {
				lostErr = err
			}
			return
		case err != nil:
			logx.L().Warn("daro: tick failed", "err", err)
		default:
			s.ticks.Add(1)
			if s.onFrame != nil {
				s.onFrame(frame)
			}
		}
	}
}

// wait blocks until due. It reports false if Stop was called meanwhile.
func (s *Scheduler) wait(due time.Time) bool {
	for {
		if s.stop.Load() {
			return false
		}
		d := time.Until(due)
		if d <= 0 {
			return true
		}
		if d > s.spin {
			time.Sleep(min(d-s.spin, maxSleep))
			continue
		}
		runtime.Gosched()
	}
}

// tick runs one frame cycle under the engine lock. Device loss is checked
// before anything is drawn.
func (s *Scheduler) tick() (uint64, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return 0, ErrNotInitialized
	}
	if e.deviceLostLocked() {
		return e.frame.Load(), ErrDeviceLost
	}
	err := e.tickLocked()
	return e.frame.Load(), err
}
