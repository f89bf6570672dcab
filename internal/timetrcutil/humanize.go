package timetrcutil

import (
	"fmt"
	"time"
)

// TruncateDuration truncates d to a precision appropriate for its magnitude,
// e.g. a duration over 1s is truncated at 10ms, and a duration over 1ms is
// truncated at 10µs. Scope timers have microsecond resolution, so nothing
// finer than 1µs is ever kept.
func TruncateDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Minute:
		return d.Truncate(time.Second)
	case d >= time.Second:
		return d.Truncate(10 * time.Millisecond)
	case d >= 10*time.Millisecond:
		return d.Truncate(100 * time.Microsecond)
	case d >= time.Millisecond:
		return d.Truncate(10 * time.Microsecond)
	default:
		return d.Truncate(time.Microsecond)
	}
}

// HumanizeDuration truncates the duration and returns a human-friendly string
// representation.
func HumanizeDuration(d time.Duration) string {
	return TruncateDuration(d).String()
}

// HumanizeBytes returns a human-friendly string representation of n, which is
// assumed to be bytes. KB is used to represent 1024 bytes, and MB is used to
// represent 1048576 bytes. Larger units like GB are not used.
func HumanizeBytes[T ~int | ~uint | ~int64 | ~uint64](n T) string {
	var (
		kib = float64(1024)
		mib = float64(1024 * kib)
		fn  = float64(n)
	)
	switch {
	case fn < 1*kib:
		return fmt.Sprintf("%.0fB", fn)
	case fn < 100*kib:
		return fmt.Sprintf("%.1fKB", fn/kib)
	case fn < 1*mib:
		return fmt.Sprintf("%.0fKB", fn/kib)
	case fn < 100*mib:
		return fmt.Sprintf("%.1fMB", fn/mib)
	default:
		return fmt.Sprintf("%.0fMB", fn/mib)
	}
}
