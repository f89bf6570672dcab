// Package timetrc provides opt-in scope timing, written as a trace file in
// the Chrome trace event format. The files can be loaded into chrome://tracing,
// Perfetto, Speedscope, and similar viewers.
//
// The basic idea is to bracket regions of code with a [ScopeTimer], which
// emits a begin event when it's created and a matching end event when it's
// ended. Each event records a timestamp relative to the moment tracing was
// enabled, the goroutine that produced it, and the file, line, and function of
// the call site. Named numeric samples can be recorded on the same timeline
// with [Tracer.RecordCounter].
//
// Typical usage is as follows.
//
//	func main() {
//	    timetrc.Enable("trace.json")
//	    defer timetrc.Disable()
//	    ...
//	}
//
//	func foo() {
//	    defer timetrc.Scope().End()
//	    ...
//	    timetrc.RecordCounter("queue depth", int64(len(queue)))
//	}
//
// Tracing is off until it's enabled, and while it's off every instrumentation
// call is a cheap no-op. Errors writing the trace file are never surfaced to
// instrumented code: losing trace data is always preferred over affecting the
// program being traced.
//
// The package-level functions operate on a process-wide default [Tracer].
// Programs and tests that want isolation can create their own with
// [NewTracer], and pass them around explicitly or via [Put] and [Get].
//
// Most call sites should use [github.com/peterbourgon/timetrc/eztimetrc],
// which can be compiled out entirely with the notimetrc build tag.
package timetrc
