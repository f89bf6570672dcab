package timetrc

import "context"

type tracerContextKey struct{}

var tracerContextVal tracerContextKey

// Put the given tracer into the context, and return a new context containing
// that tracer. If the context already contained a tracer, it becomes
// "shadowed" by the new one.
func Put(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, tracerContextVal, t)
}

// Get the tracer from the context, if it exists. If not, the default tracer
// is returned.
func Get(ctx context.Context) *Tracer {
	if t, ok := MaybeGet(ctx); ok {
		return t
	}
	return defaultTracer
}

// MaybeGet returns the tracer in the context, if it exists, with true as the
// second return value. If not, nil is returned, with false as the second
// return value.
func MaybeGet(ctx context.Context) (*Tracer, bool) {
	t, ok := ctx.Value(tracerContextVal).(*Tracer)
	return t, ok && t != nil
}
