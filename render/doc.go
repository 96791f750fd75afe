// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render composites a layer stack into an RGBA frame.
//
// Shapes are scan converted with golang.org/x/image/vector, textures are
// resampled through the layer transform with golang.org/x/image/draw and
// text is drawn with OpenType faces resolved by [Fonts]. Mask layers
// restrict the layers they list to the inside or outside of their own
// rectangle.
package render
