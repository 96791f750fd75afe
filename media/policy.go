// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package media validates and decodes the files the engine loads.
//
// A [Policy] is supplied by the host and applied before any decoder sees
// a file: path traversal, file size and frame dimensions are checked and
// a violation fails the load closed.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for a zero Policy field.
const (
	DefaultMaxFileSize  int64 = 4 << 30
	DefaultMaxDimension       = 8192
)

var (
	ErrEmptyPath     = errors.New("media: empty path")
	ErrTraversal     = errors.New("media: path traversal rejected")
	ErrOutsideRoots  = errors.New("media: path outside allowed roots")
	ErrFileTooLarge  = errors.New("media: file too large")
	ErrDimensions    = errors.New("media: invalid dimensions")
	ErrNotRegular    = errors.New("media: not a regular file")
	ErrUnknownFormat = errors.New("media: unknown format")
)

// Policy bounds what may be loaded.
type Policy struct {
	// MaxFileSize is the largest accepted file in bytes.
	MaxFileSize int64 `toml:"max_file_size"`

	// MaxDimension bounds both width and height of images and video frames.
	MaxDimension int `toml:"max_dimension"`

	// Roots, when non-empty, lists directories every loaded file must be
	// inside.
	Roots []string `toml:"roots"`
}

// DefaultPolicy returns the policy used when the host supplies none.
func DefaultPolicy() Policy {
	return Policy{MaxFileSize: DefaultMaxFileSize, MaxDimension: DefaultMaxDimension}
}

func (p Policy) maxFileSize() int64 {
	if p.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return p.MaxFileSize
}

func (p Policy) maxDimension() int {
	if p.MaxDimension <= 0 {
		return DefaultMaxDimension
	}
	return p.MaxDimension
}

// CheckPath validates path and returns its cleaned absolute form.
// Any ".." in the raw path is rejected, even where cleaning would make
// it harmless.
func (p Policy) CheckPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: %q", ErrTraversal, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("media: resolve %q: %w", path, err)
	}
	if len(p.Roots) == 0 {
		return abs, nil
	}
	for _, root := range p.Roots {
		r, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(r, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrOutsideRoots, path)
}

// CheckFile validates path and the size of the file it names.
func (p Policy) CheckFile(path string) (string, os.FileInfo, error) {
	abs, err := p.CheckPath(path)
	if err != nil {
		return "", nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("media: %w", err)
	}
	if !st.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %q", ErrNotRegular, path)
	}
	if st.Size() > p.maxFileSize() {
		return "", nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, st.Size(), p.maxFileSize())
	}
	return abs, st, nil
}

// CheckDimensions rejects zero, negative and oversized frames.
func (p Policy) CheckDimensions(width, height int) error {
	limit := p.maxDimension()
	if width <= 0 || height <= 0 || width > limit || height > limit {
		return fmt.Errorf("%w: %dx%d, limit %d", ErrDimensions, width, height, limit)
	}
	return nil
}
