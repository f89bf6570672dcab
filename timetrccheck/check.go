package timetrccheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/peterbourgon/timetrc/internal/timetrcutil"
)

// Report is the result of checking a trace file.
type Report struct {
	Events   int
	Begins   int
	Ends     int
	Counters int
	Pairs    int
	Problems []error
}

// OK returns true if no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) <= 0
}

// Err returns all problems joined into a single error, or nil.
func (r *Report) Err() error {
	return errors.Join(r.Problems...)
}

// String implements fmt.Stringer.
func (r *Report) String() string {
	return fmt.Sprintf("events=%d begins=%d ends=%d counters=%d pairs=%d problems=%d", r.Events, r.Begins, r.Ends, r.Counters, r.Pairs, len(r.Problems))
}

// MarshalJSON implements json.Marshaler.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Events   int      `json:"events"`
		Begins   int      `json:"begins"`
		Ends     int      `json:"ends"`
		Counters int      `json:"counters"`
		Pairs    int      `json:"pairs"`
		Problems []string `json:"problems,omitempty"`
	}{
		Events:   r.Events,
		Begins:   r.Begins,
		Ends:     r.Ends,
		Counters: r.Counters,
		Pairs:    r.Pairs,
		Problems: timetrcutil.FlattenErrors(r.Problems...),
	})
}

// Check validates a decoded trace file. It verifies the shape of every event,
// and that begin and end events pair up per thread, in LIFO order, with
// matching name, file, and line, and with the end no earlier than the begin.
func Check(f *File) *Report {
	r := &Report{Events: len(f.TraceEvents)}

	if f.DisplayTimeUnit != "ms" {
		r.Problems = append(r.Problems, fmt.Errorf("displayTimeUnit: want %q, have %q", "ms", f.DisplayTimeUnit))
	}

	if f.TraceEvents == nil {
		r.Problems = append(r.Problems, fmt.Errorf("traceEvents: missing"))
		return r
	}

	for i, ev := range f.TraceEvents {
		switch ev.Phase {
		case "B":
			r.Begins++
		case "E":
			r.Ends++
		case "C":
			r.Counters++
		}
		if err := checkEvent(ev); err != nil {
			r.Problems = append(r.Problems, fmt.Errorf("event %d: %w", i, err))
		}
	}

	pairs, problems := match(f.TraceEvents)
	r.Pairs = len(pairs)
	r.Problems = append(r.Problems, problems...)

	return r
}

func checkEvent(ev Event) error {
	if ev.Name == "" {
		return fmt.Errorf("missing name")
	}
	if ev.PID != 1 {
		return fmt.Errorf("%s: pid: want 1, have %d", ev.Name, ev.PID)
	}
	if ev.Timestamp < 0 {
		return fmt.Errorf("%s: negative timestamp %d", ev.Name, ev.Timestamp)
	}

	switch ev.Phase {
	case "B", "E":
		if ev.Category == "" {
			return fmt.Errorf("%s: missing category", ev.Name)
		}
		if _, ok := ev.FilePath(); !ok {
			return fmt.Errorf("%s: missing or invalid file path arg", ev.Name)
		}
		if _, ok := ev.LineNumber(); !ok {
			return fmt.Errorf("%s: missing or invalid line number arg", ev.Name)
		}
		return nil

	case "C":
		if ev.TID != 1 {
			return fmt.Errorf("%s: counter tid: want 1, have %d", ev.Name, ev.TID)
		}
		if len(ev.Args) != 1 {
			return fmt.Errorf("%s: counter args: want 1, have %d", ev.Name, len(ev.Args))
		}
		if _, ok := ev.CounterValue(); !ok {
			return fmt.Errorf("%s: missing or invalid counter value", ev.Name)
		}
		return nil

	default:
		return fmt.Errorf("%s: unknown phase %q", ev.Name, ev.Phase)
	}
}

// Pair is a matched begin and end event.
type Pair struct {
	Begin Event
	End   Event
}

// DurationMicros returns the difference between the end and begin timestamps.
func (p Pair) DurationMicros() int64 {
	return p.End.Timestamp - p.Begin.Timestamp
}

// Match pairs up begin and end events, and returns the pairs in order of
// their end events, as well as any problems encountered.
func Match(evs []Event) ([]Pair, []error) {
	return match(evs)
}

func match(evs []Event) ([]Pair, []error) {
	var (
		open     = map[uint64][]int{} // tid: stack of begin indexes
		pairs    []Pair
		problems []error
	)

	for i, ev := range evs {
		switch ev.Phase {
		case "B":
			open[ev.TID] = append(open[ev.TID], i)

		case "E":
			stack := open[ev.TID]
			if len(stack) <= 0 {
				problems = append(problems, fmt.Errorf("event %d: %s: end without begin on tid %d", i, ev.Name, ev.TID))
				continue
			}

			bi := stack[len(stack)-1]
			open[ev.TID] = stack[:len(stack)-1]

			begin := evs[bi]
			if !sameSite(begin, ev) {
				problems = append(problems, fmt.Errorf("event %d: %s: end doesn't match begin %d (%s) on tid %d", i, ev.Name, bi, begin.Name, ev.TID))
				continue
			}
			if ev.Timestamp < begin.Timestamp {
				problems = append(problems, fmt.Errorf("event %d: %s: end ts %d before begin ts %d", i, ev.Name, ev.Timestamp, begin.Timestamp))
			}

			pairs = append(pairs, Pair{Begin: begin, End: ev})
		}
	}

	var unterminated []int
	for _, stack := range open {
		unterminated = append(unterminated, stack...)
	}
	sort.Ints(unterminated)
	for _, bi := range unterminated {
		problems = append(problems, fmt.Errorf("event %d: %s: begin without end on tid %d", bi, evs[bi].Name, evs[bi].TID))
	}

	return pairs, problems
}

func sameSite(a, b Event) bool {
	if a.Name != b.Name {
		return false
	}
	af, _ := a.FilePath()
	bf, _ := b.FilePath()
	al, _ := a.LineNumber()
	bl, _ := b.LineNumber()
	return af == bf && al == bl
}
