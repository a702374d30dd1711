package processors

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Identifiers of the built-in stages.
const (
	Colorspace   = "colorspace"
	Autocrop     = "autocrop"
	ScaleAndCrop = "scale_and_crop"
	Filters      = "filters"
)

// DefaultIDs is the stage order used when a field does not configure its own.
var DefaultIDs = []string{Colorspace, Autocrop, ScaleAndCrop, Filters}

const chainCacheSize = 64

// Registry maps stage identifiers to stage functions. Identifiers are looked
// up when a chain is resolved, so the active stage set can be changed through
// configuration without touching callers.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Func
	chains *lru.Cache[string, Chain]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	// lru.New only errors on a non-positive size.
	chains, _ := lru.New[string, Chain](chainCacheSize)
	return &Registry{
		stages: make(map[string]Func),
		chains: chains,
	}
}

// NewDefaultRegistry returns a registry with the built-in stages registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(Colorspace, ColorspaceStage)
	r.MustRegister(Autocrop, AutocropStage)
	r.MustRegister(ScaleAndCrop, ScaleAndCropStage)
	r.MustRegister(Filters, FiltersStage)
	return r
}

// Default is the process-wide registry.
var Default = NewDefaultRegistry()

// Register installs fn under id. Registering an id twice is an error.
func (r *Registry) Register(id string, fn Func) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("register processor: empty identifier")
	}
	if fn == nil {
		return fmt.Errorf("register processor %q: nil function", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.stages[id]; dup {
		return fmt.Errorf("register processor %q: already registered", id)
	}
	r.stages[id] = fn
	r.chains.Purge()
	return nil
}

// MustRegister is like Register but panics on error. Meant for startup code.
func (r *Registry) MustRegister(id string, fn Func) {
	if err := r.Register(id, fn); err != nil {
		panic(err)
	}
}

// Names returns the registered identifiers in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stages))
	for id := range r.stages {
		names = append(names, id)
	}
	return names
}

// Resolve turns ids into a chain, in order. Any unknown identifier fails the
// whole resolution; partial chains are never returned. Resolved chains are
// cached and shared, which is safe because stages are stateless.
func (r *Registry) Resolve(ids []string) (Chain, error) {
	if len(ids) == 0 {
		ids = DefaultIDs
	}
	key := strings.Join(ids, "\x00")

	r.mu.RLock()
	defer r.mu.RUnlock()

	if chain, ok := r.chains.Get(key); ok {
		return chain, nil
	}

	chain := make(Chain, 0, len(ids))
	for _, id := range ids {
		fn, ok := r.stages[strings.TrimSpace(id)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		chain = append(chain, Stage{ID: id, Fn: fn})
	}
	r.chains.Add(key, chain)
	return chain, nil
}
