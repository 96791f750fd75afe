// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !ffmpeg

package video

// FFmpegAvailable reports whether the FFmpeg decoder is compiled in.
// Build with -tags ffmpeg to enable it.
func FFmpegAvailable() bool { return false }
