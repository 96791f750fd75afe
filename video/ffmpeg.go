// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build ffmpeg

package video

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/cogentcore/reisen"
	"github.com/gogpu/daro/media"
	"golang.org/x/image/draw"
)

func init() {
	RegisterDecoder("ffmpeg", nil, OpenFFmpeg)
}

// FFmpegAvailable reports whether the FFmpeg decoder is compiled in.
func FFmpegAvailable() bool { return true }

type ffmpegDecoder struct {
	media  *reisen.Media
	stream *reisen.VideoStream
	info   Info
}

// OpenFFmpeg opens any container FFmpeg understands and decodes its first
// video stream. The stream size is checked before the decoder is opened.
func OpenFFmpeg(path string, policy media.Policy) (Decoder, error) {
	m, err := reisen.NewMedia(path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	streams := m.VideoStreams()
	if len(streams) == 0 {
		m.Close()
		return nil, errors.New("ffmpeg: no video stream")
	}
	vs := streams[0]
	if err := policy.CheckDimensions(vs.Width(), vs.Height()); err != nil {
		m.Close()
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if err := m.OpenDecode(); err != nil {
		m.Close()
		return nil, fmt.Errorf("ffmpeg: open decode: %w", err)
	}
	if err := vs.Open(); err != nil {
		m.CloseDecode()
		m.Close()
		return nil, fmt.Errorf("ffmpeg: open stream: %w", err)
	}

	rate := DefaultFrameRate
	if num, den := vs.FrameRate(); num > 0 && den > 0 {
		rate = float64(num) / float64(den)
	}
	total := 0
	if dur, err := vs.Duration(); err == nil && dur > 0 {
		total = int(dur.Seconds() * rate)
	}

	return &ffmpegDecoder{
		media:  m,
		stream: vs,
		info: Info{
			Width:       vs.Width(),
			Height:      vs.Height(),
			FrameRate:   rate,
			TotalFrames: total,
		},
	}, nil
}

func (d *ffmpegDecoder) Info() Info { return d.info }

func (d *ffmpegDecoder) Next(dst *image.RGBA) error {
	for {
		pkt, ok, err := d.media.ReadPacket()
		if err != nil {
			return fmt.Errorf("ffmpeg: read packet: %w", err)
		}
		if !ok {
			return io.EOF
		}
		if pkt.Type() != reisen.StreamVideo || pkt.StreamIndex() != d.stream.Index() {
			continue
		}
		fr, ok, err := d.stream.ReadVideoFrame()
		if err != nil {
			return fmt.Errorf("ffmpeg: decode: %w", err)
		}
		if !ok || fr == nil {
			continue
		}
		img := fr.Image()
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return nil
	}
}

func (d *ffmpegDecoder) Seek(frame int) error {
	t := time.Duration(float64(frame) / d.info.FrameRate * float64(time.Second))
	if err := d.stream.Rewind(t); err != nil {
		return fmt.Errorf("ffmpeg: seek: %w", err)
	}
	return nil
}

func (d *ffmpegDecoder) Close() error {
	err := d.stream.Close()
	if cerr := d.media.CloseDecode(); err == nil {
		err = cerr
	}
	d.media.Close()
	return err
}
