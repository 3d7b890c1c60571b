package scheduler

import (
	"context"
	"errors"
	"fmt"

	"tickwork/internal/config"
	"tickwork/internal/task"
)

// Builder collects descriptors and configuration. Registration errors are kept and
// returned together by Build, so callers can chain calls.
type Builder struct {
	opts       []Option
	store      config.Lookup
	reg        *task.Registry
	useDefault bool
	errs       []error
}

// NewBuilder returns a builder that also picks up task.Default at Build.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{opts: opts, reg: task.NewRegistry(), useDefault: true}
}

// WithConfig sets the store placeholders resolve against. Without it every ${key}
// is missing and every ${key:default} uses its default.
func (b *Builder) WithConfig(store config.Lookup) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithoutDefaultRegistry ignores descriptors registered in task.Default.
func (b *Builder) WithoutDefaultRegistry() *Builder {
	b.useDefault = false
	return b
}

func (b *Builder) Register(d task.Descriptor) *Builder {
	if err := checkDescriptor(d); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if err := b.reg.Register(d); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

func (b *Builder) RegisterFunc(name string, meta task.Metadata, fn func(ctx context.Context) error) *Builder {
	return b.Register(task.Descriptor{Name: name, Metadata: meta, Work: task.Func(fn)})
}

// RegisterRunnable schedules r. The name defaults to r's type name.
func (b *Builder) RegisterRunnable(name string, meta task.Metadata, r task.Runnable) *Builder {
	if r == nil {
		b.errs = append(b.errs, &task.FieldError{Task: name, Field: "work", Err: task.ErrNoWork})
		return b
	}
	if name == "" {
		name = task.TypeName(r)
	}
	return b.Register(task.Descriptor{Name: name, Metadata: meta, Work: task.RunnableWork{R: r}})
}

// RegisterInstance schedules every method in inst's method table as "Type::method".
func (b *Builder) RegisterInstance(inst task.Instance) *Builder {
	ds, err := task.Expand(inst)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	var errs []error
	for _, d := range ds {
		if err := checkDescriptor(d); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		b.errs = append(b.errs, errs...)
		return b
	}
	if err := b.reg.RegisterInstance(inst); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Build freezes the registry and returns a scheduler in the Built state.
func (b *Builder) Build() (*Scheduler, error) {
	errs := append([]error(nil), b.errs...)

	var descs []task.Descriptor
	if b.useDefault {
		ds, err := task.Default.Materialize()
		if err != nil {
			errs = append(errs, fmt.Errorf("default registry: %w", err))
		}
		for _, d := range ds {
			if err := checkDescriptor(d); err != nil {
				errs = append(errs, err)
				continue
			}
			descs = append(descs, d)
		}
	}
	own, err := b.reg.Materialize()
	if err != nil {
		errs = append(errs, err)
	}
	descs = append(descs, own...)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	o := defaultOptions()
	for _, opt := range b.opts {
		opt(&o)
	}
	return &Scheduler{opts: o, store: b.store, descs: descs}, nil
}

// checkDescriptor is task validation plus cron syntax when expression and zone are literals.
func checkDescriptor(d task.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d = d.WithDefaults()
	if d.Schedule.Kind != task.KindCron {
		return nil
	}
	if config.IsPlaceholder(d.Schedule.Value) || config.IsPlaceholder(d.Schedule.Zone) {
		return nil
	}
	if _, err := ParseCron(d.Schedule.Value, d.Schedule.Zone); err != nil {
		return &task.FieldError{Task: d.Name, Field: "schedule", Err: err}
	}
	return nil
}
