// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/daro/media"
)

// DefaultFrameRate is assumed when a clip does not report a rate.
const DefaultFrameRate = 25.0

// Info describes a decoded stream.
type Info struct {
	Width       int
	Height      int
	FrameRate   float64
	TotalFrames int  // 0 when unknown
	HasAlpha    bool // the source carries an alpha channel
}

// Decoder produces frames of one clip. A Decoder is used by a single
// player under that player's lock and need not be safe for concurrent use.
type Decoder interface {
	Info() Info

	// Next decodes the next frame into dst, which has the stream's
	// dimensions. It returns io.EOF after the last frame.
	Next(dst *image.RGBA) error

	// Seek positions the stream so the following Next yields frame.
	Seek(frame int) error

	Close() error
}

// DecoderFactory opens a decoder for the file at path. A factory checks
// the stream's frame size against policy before allocating any frame
// storage and fails with media.ErrDimensions when it is refused.
type DecoderFactory func(path string, policy media.Policy) (Decoder, error)

// ErrNoDecoder is returned when no registered decoder accepts a file.
var ErrNoDecoder = errors.New("video: no decoder for file")

type decoderEntry struct {
	exts []string // lower-case without dot; nil accepts anything
	open DecoderFactory
}

var (
	decoderMu sync.RWMutex
	decoders  = make(map[string]decoderEntry)
	// Wildcard decoders are tried in this order after extension matches.
	decoderPriority = []string{"ffmpeg", "gif"}
)

// RegisterDecoder registers a decoder for the given file extensions.
// A nil exts list makes the decoder a fallback for any file.
func RegisterDecoder(name string, exts []string, open DecoderFactory) {
	decoderMu.Lock()
	defer decoderMu.Unlock()
	norm := make([]string, 0, len(exts))
	for _, e := range exts {
		norm = append(norm, strings.ToLower(strings.TrimPrefix(e, ".")))
	}
	if exts == nil {
		norm = nil
	}
	decoders[name] = decoderEntry{exts: norm, open: open}
}

// UnregisterDecoder removes a decoder.
func UnregisterDecoder(name string) {
	decoderMu.Lock()
	defer decoderMu.Unlock()
	delete(decoders, name)
}

// Decoders returns the registered decoder names, sorted.
func Decoders() []string {
	decoderMu.RLock()
	defer decoderMu.RUnlock()
	names := make([]string, 0, len(decoders))
	for n := range decoders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// candidates orders decoders for ext: exact matches first, then
// wildcards by priority.
func candidates(ext string) []string {
	decoderMu.RLock()
	defer decoderMu.RUnlock()
	var exact, wild []string
	for name, d := range decoders {
		switch {
		case d.exts == nil:
			wild = append(wild, name)
		case slices.Contains(d.exts, ext):
			exact = append(exact, name)
		}
	}
	slices.Sort(exact)
	slices.SortFunc(wild, func(a, b string) int {
		return rank(a) - rank(b)
	})
	return append(exact, wild...)
}

func rank(name string) int {
	if i := slices.Index(decoderPriority, name); i >= 0 {
		return i
	}
	return len(decoderPriority)
}

// openDecoder opens path with the first decoder that accepts it. sniffed
// is the content-detected extension and takes precedence over the name.
// A size refused by policy ends the search.
func openDecoder(path, sniffed string, policy media.Policy) (Decoder, string, error) {
	ext := sniffed
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	var errs []error
	for _, name := range candidates(ext) {
		decoderMu.RLock()
		d, ok := decoders[name]
		decoderMu.RUnlock()
		if !ok {
			continue
		}
		dec, err := d.open(path, policy)
		if err == nil {
			return dec, name, nil
		}
		if errors.Is(err, media.ErrDimensions) {
			return nil, "", err
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	if len(errs) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrNoDecoder, filepath.Base(path))
	}
	return nil, "", errors.Join(append([]error{ErrNoDecoder}, errs...)...)
}
