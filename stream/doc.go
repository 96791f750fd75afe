// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stream moves frames between processes over WebSocket.
//
// A [Sender] broadcasts composited output to any number of viewers; a
// [Receiver] pulls a remote stream so it can be used as a layer texture.
// Each message carries one frame in a small fixed header followed by
// packed RGBA rows.
package stream
