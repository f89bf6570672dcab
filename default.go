package timetrc

// defaultTracer is the process-wide tracer used by the package-level helpers.
var defaultTracer = NewTracer(TracerConfig{})

// Default returns the process-wide tracer.
func Default() *Tracer {
	return defaultTracer
}

// Enable calls Enable on the default tracer.
func Enable(path string) error { return defaultTracer.Enable(path) }

// EnableDefault calls EnableDefault on the default tracer.
func EnableDefault() error { return defaultTracer.EnableDefault() }

// Disable calls Disable on the default tracer.
func Disable() error { return defaultTracer.Disable() }

// Enabled calls Enabled on the default tracer.
func Enabled() bool { return defaultTracer.Enabled() }

// RecordCounter calls RecordCounter on the default tracer.
func RecordCounter(name string, value int64) { defaultTracer.RecordCounter(name, value) }

// Scope begins a scope timer for the calling function on the default tracer.
func Scope() *ScopeTimer { return defaultTracer.ScopeCaller(1, "") }

// ScopeTag begins a scope timer named tag on the default tracer.
func ScopeTag(tag string) *ScopeTimer { return defaultTracer.ScopeCaller(1, tag) }

// Do calls Do on the default tracer.
func Do(name string, fn func() error) error {
	tm := defaultTracer.ScopeCaller(1, name)
	defer tm.End()

	return fn()
}
