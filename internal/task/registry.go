package task

import (
	"errors"
	"fmt"
	"sync"
)

// Factory contributes descriptors to a Registry. It runs once, when the registry is
// materialized.
type Factory func() ([]Descriptor, error)

// Registry is an append-only list of factories, frozen by the first Materialize.
type Registry struct {
	mu        sync.Mutex
	factories []Factory
	frozen    bool
	result    []Descriptor
	err       error
}

func NewRegistry() *Registry { return &Registry{} }

// Add appends a factory. It fails with ErrRegistryFrozen after Materialize.
func (r *Registry) Add(f Factory) error {
	if f == nil {
		return errors.New("nil factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	r.factories = append(r.factories, f)
	return nil
}

// Register validates d and adds it.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d = d.WithDefaults()
	return r.Add(func() ([]Descriptor, error) { return []Descriptor{d}, nil })
}

// RegisterInstance builds inst's method table now and adds one descriptor per method.
func (r *Registry) RegisterInstance(inst Instance) error {
	ds, err := Expand(inst)
	if err != nil {
		return err
	}
	var errs []error
	for i := range ds {
		if err := ds[i].Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		ds[i] = ds[i].WithDefaults()
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return r.Add(func() ([]Descriptor, error) { return ds, nil })
}

// Len returns the number of factories added so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.factories)
}

// Materialize runs every factory in insertion order and freezes the registry.
// Later calls return the same result.
func (r *Registry) Materialize() ([]Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return append([]Descriptor(nil), r.result...), r.err
	}
	r.frozen = true

	var errs []error
	for i, f := range r.factories {
		ds, err := f()
		if err != nil {
			errs = append(errs, fmt.Errorf("factory #%d: %w", i, err))
			continue
		}
		for _, d := range ds {
			r.result = append(r.result, d.WithDefaults())
		}
	}
	r.factories = nil
	r.err = errors.Join(errs...)
	return append([]Descriptor(nil), r.result...), r.err
}

// Default collects descriptors registered from package init functions.
var Default = NewRegistry()

// Register adds d to Default.
func Register(d Descriptor) error { return Default.Register(d) }

// RegisterFactory adds f to Default.
func RegisterFactory(f Factory) error { return Default.Add(f) }

// RegisterInstance adds inst's methods to Default.
func RegisterInstance(inst Instance) error { return Default.RegisterInstance(inst) }

// MustRegister is Register for init functions; it panics on error.
func MustRegister(d Descriptor) {
	if err := Register(d); err != nil {
		panic(fmt.Sprintf("task: register %q: %v", d.Name, err))
	}
}
