package timetrccheck

import (
	"sort"
	"time"
)

// ScopeSummary aggregates the matched begin/end pairs with the same name.
type ScopeSummary struct {
	Name  string
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Mean returns the average duration of the scope.
func (s ScopeSummary) Mean() time.Duration {
	if s.Count <= 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// CounterSummary aggregates the samples of a single counter.
type CounterSummary struct {
	Name    string
	Samples int
	Min     int64
	Max     int64
	Last    int64
}

// Summary of a trace file.
type Summary struct {
	Threads  int
	Span     time.Duration
	Scopes   []ScopeSummary
	Counters []CounterSummary
}

// Summarize aggregates the events in f. Scopes are ordered by total duration,
// longest first; counters are ordered by name. Unmatched begin and end events
// are ignored.
func Summarize(f *File) *Summary {
	var (
		threads  = map[uint64]bool{}
		scopes   = map[string]*ScopeSummary{}
		counters = map[string]*CounterSummary{}
		first    = int64(-1)
		last     = int64(-1)
	)

	for _, ev := range f.TraceEvents {
		if first < 0 || ev.Timestamp < first {
			first = ev.Timestamp
		}
		if ev.Timestamp > last {
			last = ev.Timestamp
		}

		switch ev.Phase {
		case "B", "E":
			threads[ev.TID] = true

		case "C":
			val, ok := ev.CounterValue()
			if !ok {
				continue
			}
			cs, ok := counters[ev.Name]
			if !ok {
				cs = &CounterSummary{Name: ev.Name, Min: val, Max: val}
				counters[ev.Name] = cs
			}
			cs.Samples++
			cs.Min = min(cs.Min, val)
			cs.Max = max(cs.Max, val)
			cs.Last = val
		}
	}

	pairs, _ := match(f.TraceEvents)
	for _, p := range pairs {
		d := time.Duration(p.DurationMicros()) * time.Microsecond
		ss, ok := scopes[p.Begin.Name]
		if !ok {
			ss = &ScopeSummary{Name: p.Begin.Name, Min: d, Max: d}
			scopes[p.Begin.Name] = ss
		}
		ss.Count++
		ss.Total += d
		ss.Min = min(ss.Min, d)
		ss.Max = max(ss.Max, d)
	}

	s := &Summary{Threads: len(threads)}
	if first >= 0 {
		s.Span = time.Duration(last-first) * time.Microsecond
	}
	for _, ss := range scopes {
		s.Scopes = append(s.Scopes, *ss)
	}
	for _, cs := range counters {
		s.Counters = append(s.Counters, *cs)
	}
	sort.Slice(s.Scopes, func(i, j int) bool {
		if s.Scopes[i].Total == s.Scopes[j].Total {
			return s.Scopes[i].Name < s.Scopes[j].Name
		}
		return s.Scopes[i].Total > s.Scopes[j].Total
	})
	sort.Slice(s.Counters, func(i, j int) bool {
		return s.Counters[i].Name < s.Counters[j].Name
	})

	return s
}
