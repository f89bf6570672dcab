// Package eztimetrc is the call-site API of package timetrc, operating on the
// process-wide default tracer.
//
//	func main() {
//	    eztimetrc.Enable("trace.json")
//	    defer eztimetrc.Disable()
//	    ...
//	}
//
//	func work(items []item) {
//	    defer eztimetrc.Trace()()
//	    for i := range items {
//	        eztimetrc.Value("remaining", len(items)-i)
//	        ...
//	    }
//	}
//
// Building with the notimetrc tag replaces every function in this package
// with an empty one, so instrumented code carries no tracing overhead at all.
// Errors are never returned: a trace file that can't be written just means
// tracing stays off.
package eztimetrc
