package task

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Instance is a stateful value exposing several independently scheduled methods.
//
// The table is built once at registration; every entry closes over the same instance,
// so state is shared across methods and across overlapping runs of one method.
type Instance interface {
	ScheduledMethods() []Method
}

// Method is one row of an instance's method table.
type Method struct {
	Name string
	Meta Metadata
	Call func(ctx context.Context) error
}

// Bind builds a method table row calling fn on inst.
//
//	func (h *Housekeeping) ScheduledMethods() []task.Method {
//		return []task.Method{
//			task.Bind(h, "cleanup", meta, (*Housekeeping).Cleanup),
//		}
//	}
func Bind[T any](inst *T, name string, meta Metadata, fn func(*T, context.Context) error) Method {
	return Method{
		Name: name,
		Meta: meta,
		Call: func(ctx context.Context) error { return fn(inst, ctx) },
	}
}

// TypeName returns the bare type name of v ("Housekeeping" for *jobs.Housekeeping).
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	if n := t.Name(); n != "" {
		return n
	}
	return strings.TrimPrefix(t.String(), "*")
}

// Expand turns an instance into one descriptor per method, named "Type::method".
// Entries with a nil Call or an empty name are rejected.
func Expand(inst Instance) ([]Descriptor, error) {
	if inst == nil {
		return nil, ErrNoWork
	}
	typeName := TypeName(inst)
	methods := inst.ScheduledMethods()
	out := make([]Descriptor, 0, len(methods))
	for i, m := range methods {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: method #%d has no name", typeName, i)
		}
		if m.Call == nil {
			return nil, &FieldError{Task: typeName + "::" + name, Field: "work", Err: ErrNoWork}
		}
		out = append(out, Descriptor{
			Name:     typeName + "::" + name,
			Metadata: m.Meta,
			Work:     MethodWork{Type: typeName, Method: name, call: m.Call},
			Instance: typeName,
		})
	}
	return out, nil
}
