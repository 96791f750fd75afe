// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package video plays video clips as layer textures.
//
// Each loaded clip is a [Player]: a small state machine (Loaded, Playing,
// Paused, Stopped) wrapped around a [Decoder]. A player has its own lock;
// frame advance, transport calls and unload all take it, so an unload
// never races a decode step on the same clip. The [Registry] maps ids to
// players under a separate lock that is never held while a player works.
//
// Decoders are registered by name. A pure Go GIF decoder is always
// available; building with -tags ffmpeg adds an FFmpeg-backed decoder
// for everything else.
package video
