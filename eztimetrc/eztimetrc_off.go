//go:build notimetrc

package eztimetrc

// Compiled reports whether tracing is compiled into the program.
const Compiled = false

// Enable does nothing.
func Enable(path string) {}

// EnableDefault does nothing.
func EnableDefault() {}

// Disable does nothing.
func Disable() {}

// Trace returns a func which does nothing.
func Trace() func() { return nop }

// TraceTag returns a func which does nothing.
func TraceTag(tag string) func() { return nop }

// Value does nothing.
func Value[T ~int | ~int32 | ~int64 | ~uint | ~uint32](name string, value T) {}

func nop() {}
