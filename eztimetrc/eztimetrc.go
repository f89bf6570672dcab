//go:build !notimetrc

package eztimetrc

import "github.com/peterbourgon/timetrc"

// Compiled reports whether tracing is compiled into the program.
const Compiled = true

// Enable starts tracing to the file at path.
func Enable(path string) {
	_ = timetrc.Enable(path)
}

// EnableDefault starts tracing to timetrc.DefaultPath.
func EnableDefault() {
	_ = timetrc.EnableDefault()
}

// Disable finishes the trace file.
func Disable() {
	_ = timetrc.Disable()
}

// Trace begins a scope timer named after the calling function, and returns
// the func which ends it.
func Trace() func() {
	return timetrc.Default().ScopeCaller(1, "").End
}

// TraceTag begins a scope timer named tag, and returns the func which ends it.
func TraceTag(tag string) func() {
	return timetrc.Default().ScopeCaller(1, tag).End
}

// Value records a counter sample.
func Value[T ~int | ~int32 | ~int64 | ~uint | ~uint32](name string, value T) {
	timetrc.RecordCounter(name, int64(value))
}
