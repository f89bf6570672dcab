package timetrc

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/peterbourgon/timetrc/internal/timetrcdebug"
)

// ScopeTimer brackets a region of code with a begin and an end event. It's
// created by Begin, or one of the Scope helpers, and must be ended exactly
// once, typically via defer.
//
//	func foo() {
//	    defer tracer.Scope().End()
//	    ...
//	}
//
// A scope timer created while the tracer is disabled is inert: it's nil, and
// End does nothing, even if the tracer is enabled in the meantime. All methods
// accept a nil receiver. Likewise, a timer begun in one session writes its end
// event only to that session.
//
// A ScopeTimer is owned by the goroutine that created it, and isn't safe for
// concurrent use.
type ScopeTimer struct {
	tracer  *Tracer
	session *session

	file     string
	function string
	line     int
	tid      uint64
	begin    int64
	end      int64

	initialized    bool
	ended          bool
	printOnDestroy bool
}

// Begin creates a scope timer for the given call site and emits its begin
// event. If the tracer is disabled, it returns an inert nil timer.
func (t *Tracer) Begin(file, function string, line int) *ScopeTimer {
	s := t.current.Load()
	if s == nil {
		return nil
	}

	tm := &ScopeTimer{
		tracer:      t,
		session:     s,
		begin:       t.clock.Now().Sub(s.epoch),
		tid:         goroutineID(),
		file:        file,
		function:    normalizeFunction(function),
		line:        line,
		initialized: true,
	}

	timetrcdebug.Scopes.Active.Add(1)
	t.emit(s, tm.event(PhaseBegin, tm.begin))

	return tm
}

// Scope is Begin for the calling function: the timer is named after it, and
// records its file and line.
func (t *Tracer) Scope() *ScopeTimer {
	return t.ScopeCaller(1, "")
}

// ScopeTag is like Scope, but the timer is named tag.
func (t *Tracer) ScopeTag(tag string) *ScopeTimer {
	return t.ScopeCaller(1, tag)
}

// ScopeCaller is the general form of Scope. The call site is taken from the
// stack frame skip levels above the caller of ScopeCaller, so 0 identifies the
// caller itself. If tag is empty, the timer is named after the function of
// that frame.
//
// The stack isn't inspected when the tracer is disabled.
func (t *Tracer) ScopeCaller(skip int, tag string) *ScopeTimer {
	if !t.Enabled() {
		return nil
	}

	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		file, line = "(unknown)", 0
	}

	function := tag
	if function == "" {
		function = "(unknown)"
		if fn := runtime.FuncForPC(pc); ok && fn != nil {
			function = shortFunctionName(fn.Name())
		}
	}

	return t.Begin(file, function, line)
}

// Do runs fn inside a scope timer named name. The timer is ended when fn
// returns or panics.
func (t *Tracer) Do(name string, fn func() error) error {
	tm := t.ScopeCaller(1, name)
	defer tm.End()

	return fn()
}

// End emits the end event of the timer, and, if print-on-destroy is set,
// reports the duration to the tracer's console. Calls after the first, and
// calls on inert timers, do nothing.
func (tm *ScopeTimer) End() {
	if tm == nil || !tm.initialized || tm.ended {
		return
	}
	tm.ended = true

	tm.end = tm.tracer.clock.Now().Sub(tm.session.epoch)
	if tm.tracer.current.Load() != tm.session {
		timetrcdebug.Scopes.Orphan.Add(1)
	}
	tm.tracer.emit(tm.session, tm.event(PhaseEnd, tm.end))

	if tm.printOnDestroy {
		fmt.Fprintf(tm.tracer.console, "%s - %s DurationMs: %sms.\n", tm.file, tm.function, formatMillis(tm.end-tm.begin))
	}
}

// SetPrintOnDestroy controls whether End reports the duration of the timer to
// the console.
func (tm *ScopeTimer) SetPrintOnDestroy(enable bool) {
	if tm == nil {
		return
	}
	tm.printOnDestroy = enable
}

// PrintOnDestroy returns true if End will report the duration of the timer.
func (tm *ScopeTimer) PrintOnDestroy() bool {
	return tm != nil && tm.printOnDestroy
}

// Initialized returns true if the timer was created while the tracer was
// enabled, and will therefore produce events.
func (tm *ScopeTimer) Initialized() bool {
	return tm != nil && tm.initialized
}

// Name returns the normalized name of the timer, or the empty string for an
// inert timer.
func (tm *ScopeTimer) Name() string {
	if tm == nil {
		return ""
	}
	return tm.function
}

func (tm *ScopeTimer) event(ph Phase, ts int64) Event {
	return Event{
		Phase:     ph,
		Name:      tm.function,
		Category:  tm.tracer.category,
		Timestamp: ts,
		ThreadID:  tm.tid,
		File:      tm.file,
		Line:      tm.line,
	}
}

//
//
//

var callingConventions = []string{
	" __cdecl",
	" __stdcall",
	" __fastcall",
	" __thiscall",
	" __vectorcall",
}

// normalizeFunction strips calling-convention decorations from name.
func normalizeFunction(name string) string {
	for _, cc := range callingConventions {
		name = strings.Replace(name, cc, "", 1)
	}
	return name
}

// shortFunctionName reduces a fully-qualified Go function name, as reported
// by the runtime, to its last path element, e.g. "pkg.(*T).Method".
func shortFunctionName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// formatMillis renders a duration in microseconds as fractional milliseconds,
// with at most 6 significant digits.
func formatMillis(us int64) string {
	return strconv.FormatFloat(float64(us)*0.001, 'g', 6, 64)
}
