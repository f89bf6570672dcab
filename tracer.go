package timetrc

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/peterbourgon/timetrc/internal/timetrcdebug"
)

// DefaultPath is the trace file written by EnableDefault.
const DefaultPath = "default_TimeTracer_file.json"

// TracerConfig collects the optional parameters of a tracer. The zero value
// is valid.
type TracerConfig struct {
	// Clock produces event timestamps. Default SystemClock.
	Clock Clock

	// Category of begin and end events. Default DefaultCategory.
	Category string

	// Console receives the duration reports of scope timers that have
	// print-on-destroy set. Default os.Stdout.
	Console io.Writer

	// Logger receives session lifecycle messages and write errors. Default
	// discards everything.
	Logger *log.Logger

	// Observer, if set, is called with every record successfully handed to
	// the sink. It's called synchronously by the emitting goroutine, and must
	// not block.
	Observer func(Record)
}

// Record is an encoded event as it was written to a trace file.
type Record struct {
	SessionID string
	Event     Event
	Data      []byte // without the leading separator
}

// Tracer writes scope and counter events to a trace file. Tracing is off
// until Enable is called; while off, every instrumentation call is a cheap
// no-op.
//
// Enable and Disable are meant to be called at quiescent points, e.g. program
// start and exit. All other methods are safe for concurrent use.
type Tracer struct {
	clock    Clock
	category string
	console  io.Writer
	logger   *log.Logger
	observer func(Record)

	lifecycle sync.Mutex
	current   atomic.Pointer[session]
}

// session is a single enable-to-disable period of a tracer.
type session struct {
	id    ulid.ULID
	epoch Timestamp
	sink  *sink
	dest  string
}

var sessionIDEntropy = ulid.DefaultEntropy()

// NewTracer returns a new, disabled tracer.
func NewTracer(cfg TracerConfig) *Tracer {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Category == "" {
		cfg.Category = DefaultCategory
	}
	if cfg.Console == nil {
		cfg.Console = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Tracer{
		clock:    cfg.Clock,
		category: cfg.Category,
		console:  cfg.Console,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
}

// Enable starts a new session writing to the file at path, which is created
// or truncated. If the tracer was already enabled, the previous session is
// finished first, as if by Disable.
//
// If the file can't be opened, the tracer remains disabled and an error is
// returned. Callers which treat tracing as optional may ignore it.
func (t *Tracer) Enable(path string) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.replaceLocked()

	s, err := openFileSink(path)
	if err != nil {
		timetrcdebug.Sessions.EnableFail.Add(1)
		t.logger.Printf("tracing disabled: %v", err)
		return err
	}

	t.startLocked(s, path)
	return nil
}

// EnableDefault is Enable with DefaultPath.
func (t *Tracer) EnableDefault() error {
	return t.Enable(DefaultPath)
}

// EnableWriter is like Enable, but writes the trace to w. The caller keeps
// ownership of w: when the session ends, buffered data is flushed to w, but w
// is never closed.
func (t *Tracer) EnableWriter(w io.Writer) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.replaceLocked()

	if w == nil {
		timetrcdebug.Sessions.EnableFail.Add(1)
		return fmt.Errorf("nil writer")
	}

	t.startLocked(newSink(w), fmt.Sprintf("%T", w))
	return nil
}

// Start is an alias for Enable.
func (t *Tracer) Start(path string) error { return t.Enable(path) }

// Stop is an alias for Disable.
func (t *Tracer) Stop() error { return t.Disable() }

func (t *Tracer) startLocked(sk *sink, dest string) {
	sk.writeHeader()

	s := &session{
		id:    ulid.MustNew(ulid.Timestamp(time.Now()), sessionIDEntropy),
		epoch: t.clock.Now(),
		sink:  sk,
		dest:  dest,
	}
	t.current.Store(s)

	timetrcdebug.Sessions.Enable.Add(1)
	t.logger.Printf("session %s: tracing to %s", s.id, dest)
}

func (t *Tracer) replaceLocked() {
	if t.current.Load() == nil {
		return
	}

	timetrcdebug.Sessions.Replace.Add(1)
	t.logger.Printf("enable while enabled, finishing previous session")

	if err := t.disableLocked(); err != nil {
		t.logger.Printf("finish previous session: %v", err)
	}
}

// Disable finishes the current session: it writes the trace file footer,
// flushes and closes the file. It's a no-op if the tracer isn't enabled.
//
// Scope timers begun in the finished session may still be ended, but their
// end events are dropped.
func (t *Tracer) Disable() error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	return t.disableLocked()
}

func (t *Tracer) disableLocked() error {
	s := t.current.Swap(nil)
	if s == nil {
		return nil
	}

	s.sink.writeFooter()
	if err := s.sink.writeErr(); err != nil {
		t.logger.Printf("session %s: write error: %v", s.id, err)
	}

	timetrcdebug.Sessions.Disable.Add(1)

	if err := s.sink.close(); err != nil {
		t.logger.Printf("session %s: %v", s.id, err)
		return fmt.Errorf("finish trace: %w", err)
	}

	t.logger.Printf("session %s: finished %s", s.id, s.dest)
	return nil
}

// Enabled returns true if the tracer has an active session.
func (t *Tracer) Enabled() bool {
	return t.current.Load() != nil
}

// SessionID returns the unique ID of the active session, or the empty string
// if the tracer is disabled.
func (t *Tracer) SessionID() string {
	s := t.current.Load()
	if s == nil {
		return ""
	}
	return s.id.String()
}

// RecordCounter emits a sample of the named quantity at the current time. It's
// a no-op if the tracer is disabled.
func (t *Tracer) RecordCounter(name string, value int64) {
	s := t.current.Load()
	if s == nil {
		return
	}

	t.emit(s, Event{
		Phase:     PhaseCounter,
		Name:      name,
		Timestamp: t.clock.Now().Sub(s.epoch),
		ThreadID:  counterThreadID,
		Value:     value,
	})
}

//
//
//

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

// emit encodes ev and writes it to the sink of session s. This is the single
// path by which records reach a trace file.
func (t *Tracer) emit(s *session, ev Event) {
	buf := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(buf)

	*buf = AppendEvent((*buf)[:0], ev)
	if !s.sink.writeEvent(*buf) {
		return
	}

	if t.observer != nil {
		t.observer(Record{
			SessionID: s.id.String(),
			Event:     ev,
			Data:      bytes.Clone(*buf),
		})
	}
}
