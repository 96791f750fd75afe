package daro

import (
	"image/color"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/daro/layer"
	"github.com/gogpu/daro/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamOutputFeedsAnotherEngine(t *testing.T) {
	program := newEngine(t, 32, 18)
	out, err := program.EnableStreamOutput("program")
	require.NoError(t, err)
	assert.Same(t, out, program.StreamOutput())
	srv := httptest.NewServer(out)
	t.Cleanup(srv.Close)

	require.NoError(t, program.SetLayerCount(1))
	require.NoError(t, program.UpdateLayer(0, solidRect(32, 18, 1, 0, 0)))

	dir := stream.NewDirectory("")
	require.NoError(t, dir.Register("program", "ws"+strings.TrimPrefix(srv.URL, "http")))
	monitor := newEngine(t, 32, 18, WithDirectory(dir))
	assert.Equal(t, []string{"program"}, monitor.StreamNames())

	h, err := monitor.ConnectStream("program")
	require.NoError(t, err)
	h2, err := monitor.ConnectStream("program")
	require.NoError(t, err)
	assert.Equal(t, h, h2)
	monitor.DisconnectStream(h2)

	l := solidRect(32, 18, 0, 0, 0)
	l.Source = layer.SourceStream
	l.StreamID = int32(h)
	require.NoError(t, monitor.SetLayerCount(1))
	require.NoError(t, monitor.UpdateLayer(0, l))

	red := color.RGBA{R: 0xff, A: 0xff}
	assert.Eventually(t, func() bool {
		if program.Tick() != nil || monitor.Tick() != nil {
			return false
		}
		f, err := monitor.LockFrameBuffer()
		if err != nil {
			return false
		}
		defer monitor.UnlockFrameBuffer()
		return pixelAt(f, 16, 9) == red
	}, 5*time.Second, 10*time.Millisecond)

	monitor.DisconnectStream(h)
	assert.Zero(t, monitor.Stats().Streams.Entries)

	program.DisableStreamOutput()
	assert.Nil(t, program.StreamOutput())
	require.NoError(t, program.Tick())
}

func TestConnectStreamRejects(t *testing.T) {
	e := newEngine(t, 16, 16, WithDirectory(stream.NewDirectory("")), WithDialTimeout(200*time.Millisecond))

	_, err := e.ConnectStream("bad/name")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.ConnectStream("nobody")
	assert.ErrorIs(t, err, stream.ErrUnknownStream)
	_, err = e.EnableStreamOutput("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
