package timetrc

import (
	"strconv"
	"unicode/utf8"
)

// Phase is the event type tag in the trace event format.
type Phase byte

const (
	// PhaseBegin opens a duration on a thread.
	PhaseBegin Phase = 'B'

	// PhaseEnd closes the most recent open duration on a thread.
	PhaseEnd Phase = 'E'

	// PhaseCounter is a standalone sample of a named quantity.
	PhaseCounter Phase = 'C'
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}

const (
	// DefaultCategory is the category of begin and end events, unless the
	// tracer is configured otherwise.
	DefaultCategory = "bst"

	processID       = 1
	counterThreadID = 1

	fileHeader = "{\"displayTimeUnit\": \"ms\",\"traceEvents\":[\n"
	fileFooter = "]}"
)

// Event is a single record in a trace file. Events are transient: they're
// encoded as soon as they're produced, and never retained by the tracer.
type Event struct {
	Phase     Phase
	Name      string
	Category  string
	Timestamp int64 // microseconds since the session epoch
	ThreadID  uint64

	// File and Line are set for begin and end events.
	File string
	Line int

	// Value is set for counter events.
	Value int64
}

// AppendEvent appends the wire form of ev to dst, terminated by a newline,
// and returns the extended buffer. It never writes the separator between
// records; that's the responsibility of the sink.
func AppendEvent(dst []byte, ev Event) []byte {
	switch ev.Phase {
	case PhaseCounter:
		return appendCounterRecord(dst, ev)
	default:
		return appendScopeRecord(dst, ev)
	}
}

func appendScopeRecord(dst []byte, ev Event) []byte {
	dst = append(dst, `{"name":`...)
	dst = appendString(dst, ev.Name)
	dst = append(dst, `,"cat":`...)
	dst = appendString(dst, ev.Category)
	dst = append(dst, `,"ph":"`...)
	dst = append(dst, byte(ev.Phase))
	dst = append(dst, `","ts":`...)
	dst = strconv.AppendInt(dst, ev.Timestamp, 10)
	dst = append(dst, `,"pid":`...)
	dst = strconv.AppendInt(dst, processID, 10)
	dst = append(dst, `,"tid":`...)
	dst = strconv.AppendUint(dst, ev.ThreadID, 10)
	dst = append(dst, `,"args":{"file path":`...)
	dst = appendString(dst, ev.File)
	dst = append(dst, `,"line number":`...)
	dst = strconv.AppendInt(dst, int64(ev.Line), 10)
	dst = append(dst, "}}\n"...)
	return dst
}

func appendCounterRecord(dst []byte, ev Event) []byte {
	dst = append(dst, `{"name":`...)
	dst = appendString(dst, ev.Name)
	dst = append(dst, `,"ph":"C","ts":`...)
	dst = strconv.AppendInt(dst, ev.Timestamp, 10)
	dst = append(dst, `,"pid":`...)
	dst = strconv.AppendInt(dst, processID, 10)
	dst = append(dst, `,"tid":`...)
	dst = strconv.AppendInt(dst, counterThreadID, 10)
	dst = append(dst, `,"args":{`...)
	dst = appendString(dst, ev.Name)
	dst = append(dst, ':')
	dst = strconv.AppendInt(dst, ev.Value, 10)
	dst = append(dst, "}}\n"...)
	return dst
}

const hexDigits = "0123456789abcdef"

// appendString appends s as a quoted JSON string. Invalid UTF-8 is replaced
// with U+FFFD, so the output always parses.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			if b >= 0x20 && b != '"' && b != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch b {
			case '"', '\\':
				dst = append(dst, '\\', b)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	dst = append(dst, '"')
	return dst
}
