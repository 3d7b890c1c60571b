package task

import "context"

// Work is the unit of work a descriptor schedules. The set of implementations is closed:
// Func, RunnableWork and MethodWork.
//
// The context is cancelled when the scheduler shuts down. A returned error is logged
// and published, never retried.
type Work interface {
	Run(ctx context.Context) error
	Origin() Origin
	sealed()
}

// Origin tells which registration path produced a Work.
type Origin int

const (
	OriginFunc Origin = iota + 1
	OriginRunnable
	OriginMethod
)

func (o Origin) String() string {
	switch o {
	case OriginFunc:
		return "function"
	case OriginRunnable:
		return "runnable"
	case OriginMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Func is a plain function scheduled directly.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error { return f(ctx) }
func (Func) Origin() Origin                  { return OriginFunc }
func (Func) sealed()                         {}

// Runnable is implemented by stateful task objects.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableWork schedules a Runnable. The same value is used for every run.
type RunnableWork struct {
	R Runnable
}

func (w RunnableWork) Run(ctx context.Context) error { return w.R.Run(ctx) }
func (RunnableWork) Origin() Origin                  { return OriginRunnable }
func (RunnableWork) sealed()                         {}

// MethodWork is one entry of an instance's method table.
type MethodWork struct {
	Type   string
	Method string
	call   func(ctx context.Context) error
}

func (w MethodWork) Run(ctx context.Context) error { return w.call(ctx) }
func (MethodWork) Origin() Origin                  { return OriginMethod }
func (MethodWork) sealed()                         {}

func workMissing(w Work) bool {
	switch x := w.(type) {
	case nil:
		return true
	case Func:
		return x == nil
	case RunnableWork:
		return x.R == nil
	case MethodWork:
		return x.call == nil
	default:
		return false
	}
}
