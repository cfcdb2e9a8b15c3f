// Package chart renders synthesized series through pluggable backends. A
// backend is mounted into a Handle that owns its own lifecycle: feed it data
// with Update, refit it with Resize, produce output with Render, and release
// it with Dispose. Handles are safe for concurrent use.
package chart

import (
	"fmt"
	"sort"
	"sync"

	"github.com/syntick/syntick/pkg/models"
)

var (
	// ErrDisposed is returned by every operation on a disposed handle.
	ErrDisposed = fmt.Errorf("chart handle disposed")

	// ErrUnknownBackend is returned by Mount for an unregistered backend name.
	ErrUnknownBackend = fmt.Errorf("unknown chart backend")
)

// SeriesData is everything a backend needs to draw one ticker. EMA slices
// align index-for-index with Candles; nil entries mark the warm-up gap.
type SeriesData struct {
	Ticker  string
	Name    string
	Candles []models.Candle
	EMA9    []*float64
	EMA20   []*float64
}

// Options fixes a handle's output geometry.
type Options struct {
	Width  int
	Height int
}

// Default output geometry, applied by Mount when an option is unset.
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

// Handle is a mounted chart instance.
type Handle interface {
	// Update replaces the series the handle draws.
	Update(data SeriesData) error

	// Resize changes the output geometry; the next Render refits to it.
	Resize(width, height int) error

	// Render produces the chart body and its content type.
	Render() ([]byte, string, error)

	// Dispose releases the handle. Disposing twice is safe; any other use
	// after disposal returns ErrDisposed.
	Dispose() error
}

// Factory builds a backend's handle.
type Factory func(opts Options) Handle

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under a name. Later registrations
// replace earlier ones.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Mount builds a handle for the named backend, filling unset options with
// defaults.
func Mount(backend string, opts Options) (Handle, error) {
	registryMu.RLock()
	factory, ok := registry[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return factory(opts), nil
}

// Backends lists the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
