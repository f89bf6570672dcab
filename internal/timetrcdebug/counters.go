package timetrcdebug

import "sync/atomic"

// SessionCounters track the lifecycle of tracing sessions.
type SessionCounters struct {
	Enable     atomic.Uint64
	EnableFail atomic.Uint64
	Disable    atomic.Uint64
	Replace    atomic.Uint64
}

// Values returns the current values of the counters.
func (sc *SessionCounters) Values() (enable, enableFail, disable, replace uint64) {
	return sc.Enable.Load(), sc.EnableFail.Load(), sc.Disable.Load(), sc.Replace.Load()
}

// RecordCounters track records handed to sinks.
type RecordCounters struct {
	Written atomic.Uint64
	Bytes   atomic.Uint64
	Errors  atomic.Uint64
	Dropped atomic.Uint64
}

// ErrorPercent returns the percent (0..100) of records which failed to write.
func (rc *RecordCounters) ErrorPercent() float64 {
	var (
		written = rc.Written.Load()
		errors  = rc.Errors.Load()
		total   = written + errors
	)
	if total <= 0 {
		return 0.0
	}
	return 100 * float64(errors) / float64(total)
}

// Values returns the current values of the counters.
func (rc *RecordCounters) Values() (written, bytes, errors, dropped uint64) {
	return rc.Written.Load(), rc.Bytes.Load(), rc.Errors.Load(), rc.Dropped.Load()
}

// ScopeCounters track scope timers.
type ScopeCounters struct {
	Active atomic.Uint64
	Orphan atomic.Uint64
}

// Values returns the current values of the counters.
func (sc *ScopeCounters) Values() (active, orphan uint64) {
	return sc.Active.Load(), sc.Orphan.Load()
}

var (
	// Sessions tracks enable and disable calls across all tracers.
	Sessions SessionCounters

	// Records tracks encoded records across all tracers.
	Records RecordCounters

	// Scopes tracks scope timers across all tracers.
	Scopes ScopeCounters
)
