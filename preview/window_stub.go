// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !preview

package preview

import "context"

// Run returns ErrUnavailable; rebuild with -tags preview for a window.
func Run(context.Context, Source, Options) error { return ErrUnavailable }
