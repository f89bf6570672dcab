package timetrc

import "time"

// Timestamp is a point on a monotonic timeline, in microseconds from an
// arbitrary but fixed origin. Only differences between timestamps taken from
// the same clock are meaningful.
type Timestamp int64

// Sub returns t-u in microseconds.
func (t Timestamp) Sub(u Timestamp) int64 {
	return int64(t - u)
}

// Clock produces monotonic timestamps.
//
// Implementations must be safe for concurrent use.
type Clock interface {
	Now() Timestamp
}

// ClockFunc adapts a function to a Clock.
type ClockFunc func() Timestamp

// Now implements Clock.
func (f ClockFunc) Now() Timestamp { return f() }

// SystemClock reads the monotonic component of the process clock.
var SystemClock Clock = systemClock{}

var clockOrigin = time.Now()

type systemClock struct{}

func (systemClock) Now() Timestamp {
	return Timestamp(time.Since(clockOrigin).Microseconds()) // monotonic
}
