package daro

import (
	"testing"
	"time"

	"github.com/gogpu/daro/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAndStops(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(32, 18, 200))
	defer e.Shutdown()

	frames := make(chan uint64, 1024)
	s := NewScheduler(e, WithOnFrame(func(n uint64) {
		select {
		case frames <- n:
		default:
		}
	}))
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	require.NoError(t, s.Start(), "starting a running scheduler is a no-op")

	assert.Eventually(t, func() bool { return e.FrameNumber() >= 5 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Stop(time.Second))
	assert.False(t, s.Running())
	<-s.Done()

	n := e.FrameNumber()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, e.FrameNumber())
	assert.Equal(t, n, s.Ticks())
	assert.Equal(t, uint64(1), <-frames)

	// A stopped scheduler can be started again.
	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return e.FrameNumber() > n }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Stop(0))
}

func TestSchedulerStopsOnDeviceLoss(t *testing.T) {
	e := newEngine(t, 32, 18)
	require.NoError(t, e.Tick())

	lost := make(chan error, 1)
	s := NewScheduler(e, WithOnDeviceLost(func(err error) { lost <- err }))
	e.Device().(*device.Software).Invalidate("unplugged")
	require.NoError(t, s.Start())

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept running on a lost device")
	}
	assert.False(t, s.Running())
	assert.Equal(t, uint64(1), e.FrameNumber())
	assert.Zero(t, s.Ticks())

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, ErrDeviceLost)
	case <-time.After(time.Second):
		t.Fatal("device loss callback not run")
	}
	assert.NoError(t, s.Stop(time.Second))
}

func TestSchedulerLosesDeviceWhileRunning(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(32, 18, 200))
	defer e.Shutdown()

	s := NewScheduler(e)
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return e.FrameNumber() >= 2 }, 2*time.Second, time.Millisecond)

	e.Device().(*device.Software).Invalidate("reset")
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept running on a lost device")
	}
	n := e.FrameNumber()
	assert.True(t, e.IsDeviceLost())
	assert.ErrorIs(t, e.Tick(), ErrDeviceLost)
	assert.Equal(t, n, e.FrameNumber())

	require.NoError(t, e.RecoverDevice())
	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return e.FrameNumber() > n }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Stop(time.Second))
}

func TestSchedulerRequiresInitializedEngine(t *testing.T) {
	s := NewScheduler(New())
	assert.ErrorIs(t, s.Start(), ErrNotInitialized)
	assert.False(t, s.Running())
	assert.NoError(t, s.Stop(time.Millisecond), "stopping a scheduler that never ran")
}

func TestSecondSchedulerRejected(t *testing.T) {
	e := newEngine(t, 16, 16)
	a := NewScheduler(e)
	require.NoError(t, a.Start())
	defer a.Stop(time.Second)

	b := NewScheduler(e)
	err := b.Start()
	assert.ErrorIs(t, err, ErrSchedulerRunning)
	assert.Equal(t, CodeSchedulerRunning, Code(err))
	assert.False(t, b.Running())
}

func TestSchedulerStopTimeout(t *testing.T) {
	e := newEngine(t, 16, 16)
	entered := make(chan struct{})
	release := make(chan struct{})
	s := NewScheduler(e, WithOnFrame(func(n uint64) {
		if n == 1 {
			close(entered)
			<-release
		}
	}))
	require.NoError(t, s.Start())
	<-entered

	err := s.Stop(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrSchedulerTimeout)
	assert.True(t, s.Running())

	close(release)
	assert.NoError(t, s.Stop(time.Second))
	assert.False(t, s.Running())
}

func TestShutdownStopsScheduler(t *testing.T) {
	e := New()
	require.NoError(t, e.Initialize(16, 16, 100))
	s := NewScheduler(e)
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return e.FrameNumber() >= 1 }, 2*time.Second, time.Millisecond)

	e.Shutdown()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("shutdown left the scheduler running")
	}
	assert.False(t, e.IsInitialized())
}
