// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package media

import (
	"bufio"
	"fmt"
	"image"
	"os"

	// Still image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage validates path against p and decodes the still image it
// names. Dimensions are checked from the header before the pixels are
// decoded.
func (p Policy) DecodeImage(path string) (image.Image, error) {
	abs, _, err := p.CheckFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("media: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	cfg, format, err := image.DecodeConfig(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownFormat, path, err)
	}
	if err := p.CheckDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("media: %s: %w", path, err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("media: %w", err)
	}
	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("media: decode %s %s: %w", format, path, err)
	}
	return img, nil
}
