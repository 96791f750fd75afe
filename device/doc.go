// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device provides the rendering contexts the engine composites
// through, and the registry that selects one.
//
// Two devices ship with the package: [Software], a CPU device that can be
// invalidated on demand, and [Host], which adapts a GPU device owned by a
// host application through gpucontext. Loss is reported by [Device.Err];
// the engine polls it at the start of every frame.
//
// Additional devices register themselves by name:
//
//	device.Register("capture", func() (device.Device, error) { ... })
//	d, err := device.Open("capture")
package device
