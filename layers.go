package daro

import (
	"fmt"

	"github.com/gogpu/daro/layer"
)

// SetLayerCount sets how many layers are drawn, clamped to [0, 64].
// Layers past the count keep their contents.
func (e *Engine) SetLayerCount(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.count = min(max(n, 0), layer.MaxLayers)
	return nil
}

// LayerCount returns the number of drawn layers.
func (e *Engine) LayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

func checkIndex(i int) error {
	if i < 0 || i >= layer.MaxLayers {
		return fmt.Errorf("%w: layer index %d", ErrInvalidArgument, i)
	}
	return nil
}

// UpdateLayer stores a copy of l at index i after clamping its fields.
// Any slot in [0, 64) may be written; only the first LayerCount are
// drawn.
func (e *Engine) UpdateLayer(i int, l layer.Layer) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if err := l.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	l.Sanitize()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.layers[i] = l
	return nil
}

// UpdateLayerRecord decodes a binary layer record and stores it at i.
func (e *Engine) UpdateLayerRecord(i int, rec []byte) error {
	var l layer.Layer
	if err := l.UnmarshalBinary(rec); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return e.UpdateLayer(i, l)
}

// Layer returns a copy of the layer at index i.
func (e *Engine) Layer(i int) (layer.Layer, error) {
	if err := checkIndex(i); err != nil {
		return layer.Layer{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return layer.Layer{}, ErrNotInitialized
	}
	l := e.layers[i]
	if l.Masks != nil {
		l.Masks = append([]int32(nil), l.Masks...)
	}
	return l, nil
}

// ClearLayers resets every slot and the layer count.
func (e *Engine) ClearLayers() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.layers = [layer.MaxLayers]layer.Layer{}
	e.count = 0
	return nil
}
