// Package timetrcring provides a fixed-size buffer of recent values.
package timetrcring

import "sync"

// Ring is a fixed-size collection of recent values. When full, each Add
// overwrites the oldest value.
type Ring[T any] struct {
	mtx sync.Mutex
	buf []T // fully allocated at construction
	cur int // index for next write, walk backwards to read
	len int // count of actual values
}

// New returns an empty ring, pre-allocated with the given capacity. A ring
// with a capacity of zero or less discards every value.
func New[T any](cap int) *Ring[T] {
	if cap < 0 {
		cap = 0
	}
	return &Ring[T]{
		buf: make([]T, cap),
	}
}

// Cap returns the capacity of the ring.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Len returns the number of values currently held by the ring.
func (r *Ring[T]) Len() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.len
}

// Add the value to the ring. If the ring was full, the overwritten value is
// returned along with true.
func (r *Ring[T]) Add(val T) (dropped T, ok bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if len(r.buf) <= 0 {
		return val, true
	}

	if r.len >= len(r.buf) {
		dropped, ok = r.buf[r.cur], true
	}

	r.buf[r.cur] = val

	if r.len < len(r.buf) {
		r.len++
	}

	r.cur++
	if r.cur >= len(r.buf) {
		r.cur -= len(r.buf)
	}

	return dropped, ok
}

// Recent returns up to n of the most recent values that satisfy allow, in the
// order they were added, i.e. oldest first. A nil allow func accepts every
// value.
func (r *Ring[T]) Recent(n int, allow func(T) bool) []T {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if n > r.len {
		n = r.len
	}
	if n <= 0 {
		return nil
	}

	// Walk backwards from the value just before the write cursor, then
	// reverse, so the result is oldest first.
	vals := make([]T, 0, n)
	for i := 0; i < r.len && len(vals) < n; i++ {
		idx := r.cur - 1 - i
		if idx < 0 {
			idx += len(r.buf)
		}
		if allow != nil && !allow(r.buf[idx]) {
			continue
		}
		vals = append(vals, r.buf[idx])
	}

	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}

	return vals
}
