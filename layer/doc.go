// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package layer defines the layer record shared between the engine and
// its host.
//
// A layer is a fixed-size value: bounded text, font name and path fields,
// and a bounded list of mask targets. The binary form (see [Size],
// [Layer.MarshalBinary]) is a packed little-endian record whose size is
// checked once when the engine initializes. UTF-16 is used for text and
// font names, raw bytes for the texture path.
//
// Records arriving from outside are never trusted: [Layer.Validate]
// rejects unknown types and [Layer.Sanitize] clamps everything else.
package layer
