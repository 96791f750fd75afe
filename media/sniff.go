// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package media

import (
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
)

// Kind is the broad category of a media file.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// sniffLen covers every signature filetype matches.
const sniffLen = 262

// SniffBytes classifies a file header. ext is the detected extension,
// empty when unknown.
func SniffBytes(head []byte) (kind Kind, ext string) {
	t, err := filetype.Match(head)
	if err != nil || t == filetype.Unknown {
		return KindUnknown, ""
	}
	switch {
	case filetype.IsImage(head):
		return KindImage, t.Extension
	case filetype.IsVideo(head):
		return KindVideo, t.Extension
	}
	return KindUnknown, t.Extension
}

// Sniff reads the header of path and classifies it.
func Sniff(path string) (Kind, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, "", fmt.Errorf("media: %w", err)
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return KindUnknown, "", fmt.Errorf("media: read %s: %w", path, err)
	}
	kind, ext := SniffBytes(head[:n])
	return kind, ext, nil
}
