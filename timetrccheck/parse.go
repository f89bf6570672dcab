// Package timetrccheck parses trace files written by package timetrc, and
// validates them against the guarantees that package makes.
package timetrccheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// File is a decoded trace file.
type File struct {
	DisplayTimeUnit string  `json:"displayTimeUnit"`
	TraceEvents     []Event `json:"traceEvents"`
}

// Event is a decoded trace event. Numeric args are decoded as json.Number, so
// counter values survive without loss of precision.
type Event struct {
	Name      string         `json:"name"`
	Category  string         `json:"cat,omitempty"`
	Phase     string         `json:"ph"`
	Timestamp int64          `json:"ts"`
	PID       int            `json:"pid"`
	TID       uint64         `json:"tid"`
	Args      map[string]any `json:"args"`
}

// FilePath returns the "file path" arg of a begin or end event.
func (ev Event) FilePath() (string, bool) {
	s, ok := ev.Args["file path"].(string)
	return s, ok
}

// LineNumber returns the "line number" arg of a begin or end event.
func (ev Event) LineNumber() (int64, bool) {
	return numberArg(ev.Args, "line number")
}

// CounterValue returns the value of a counter event, which is stored in the
// arg with the same name as the event.
func (ev Event) CounterValue() (int64, bool) {
	return numberArg(ev.Args, ev.Name)
}

func numberArg(args map[string]any, key string) (int64, bool) {
	n, ok := args[key].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// Parse decodes a complete trace file from r. The input must contain exactly
// one JSON object, optionally surrounded by whitespace.
func Parse(r io.Reader) (*File, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode trace file: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after trace file")
	}

	return &f, nil
}

// ParseFile is Parse for the file at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer fh.Close()

	return Parse(fh)
}
