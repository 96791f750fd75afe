// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stream

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// MaxNameLen is the longest stream name in bytes.
const MaxNameLen = 255

var (
	// ErrInvalidName is returned for an empty, oversized or non-printable
	// stream name.
	ErrInvalidName = errors.New("stream: invalid stream name")

	// ErrUnknownStream is returned by Lookup when a name has no URL.
	ErrUnknownStream = errors.New("stream: unknown stream")
)

// ValidateName checks a stream name.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLen {
		return fmt.Errorf("%w: length %d", ErrInvalidName, len(name))
	}
	if strings.ContainsFunc(name, func(r rune) bool { return r == '/' || !unicode.IsPrint(r) }) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Directory maps stream names to WebSocket URLs. Names without an
// explicit entry resolve under the base URL, if one is set.
type Directory struct {
	mu   sync.RWMutex
	base string
	urls map[string]string
}

// NewDirectory returns a directory resolving unknown names under base,
// for example "ws://localhost:8090/streams/". An empty base disables
// the fallback.
func NewDirectory(base string) *Directory {
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Directory{base: base, urls: make(map[string]string)}
}

// Register binds name to rawURL, replacing any earlier binding.
func (d *Directory) Register(name, rawURL string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("stream: %s: %w", name, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("stream: %s: scheme %q is not ws or wss", name, u.Scheme)
	}
	d.mu.Lock()
	d.urls[name] = u.String()
	d.mu.Unlock()
	return nil
}

// Unregister removes name. It reports whether the name was bound.
func (d *Directory) Unregister(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.urls[name]
	delete(d.urls, name)
	return ok
}

// Lookup returns the URL for name.
func (d *Directory) Lookup(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.urls[name]; ok {
		return u, nil
	}
	if d.base == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownStream, name)
	}
	return d.base + url.PathEscape(name), nil
}

// Names returns the explicitly registered names, sorted.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.urls))
	for n := range d.urls {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
