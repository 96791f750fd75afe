// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

//go:embed shaders/composite.wgsl
var compositeWGSL string

// CompositeShaderSource returns the WGSL source of the layer shader.
func CompositeShaderSource() string { return compositeWGSL }

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrBadShader is returned when a shader module is not valid SPIR-V.
var ErrBadShader = errors.New("device: not a SPIR-V module")

var (
	compileOnce sync.Once
	compiled    []uint32
	compileErr  error
)

// CompileCompositeShader compiles the layer shader to SPIR-V words.
// The result is computed once per process.
func CompileCompositeShader() ([]uint32, error) {
	compileOnce.Do(func() {
		compiled, compileErr = CompileWGSL(compositeWGSL)
	})
	return compiled, compileErr
}

// CompileWGSL compiles WGSL source to little-endian SPIR-V words.
func CompileWGSL(src string) ([]uint32, error) {
	b, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("device: compile shader: %w", err)
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("device: compile shader: %d bytes is not whole words", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return words, nil
}

// checkSPIRV validates the five-word module header.
func checkSPIRV(words []uint32) error {
	if len(words) < 5 || words[0] != spirvMagic {
		return ErrBadShader
	}
	return nil
}

// LoadCompositeShader compiles the layer shader and hands it to d when d
// executes shaders itself.
func LoadCompositeShader(d Device) error {
	spirv, err := CompileCompositeShader()
	if err != nil {
		return err
	}
	if sl, ok := d.(ShaderLoader); ok {
		if err := sl.LoadShader(spirv); err != nil {
			return fmt.Errorf("device: load shader on %s: %w", d.Name(), err)
		}
	}
	return nil
}
