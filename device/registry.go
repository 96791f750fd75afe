package device

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/daro/internal/logx"
)

// Factory opens a device.
type Factory func() (Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Devices tried by OpenDefault, first success wins. Names not in the
	// list are tried afterwards in sorted order.
	priority = []string{"host", NameSoftware}
)

func init() {
	Register(NameSoftware, func() (Device, error) { return NewSoftware(), nil })
}

// Register registers a factory under name, replacing any previous one.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes name from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name, f := range factories {
		if f != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether name has a usable factory.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return factories[name] != nil
}

// Open opens the device registered as name.
func Open(name string) (Device, error) {
	registryMu.RLock()
	f := factories[name]
	registryMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	d, err := f()
	if err != nil {
		return nil, fmt.Errorf("device: open %q: %w", name, err)
	}
	if d == nil {
		return nil, fmt.Errorf("device: open %q: factory returned nil", name)
	}
	return d, nil
}

// OpenDefault opens the first device that succeeds, by priority.
func OpenDefault() (Device, error) {
	names := Available()
	order := make([]string, 0, len(names))
	for _, p := range priority {
		if slices.Contains(names, p) {
			order = append(order, p)
		}
	}
	for _, n := range names {
		if !slices.Contains(order, n) {
			order = append(order, n)
		}
	}

	var errs []error
	for _, name := range order {
		d, err := Open(name)
		if err == nil {
			return d, nil
		}
		logx.L().Warn("device: open failed, trying next", "device", name, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrNotAvailable}, errs...)...)
}
