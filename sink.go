package timetrc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/peterbourgon/timetrc/internal/timetrcdebug"
)

// sink is the append-only destination of a single session. Every write is
// serialized by the sink mutex, and each record is written as one contiguous
// byte slice, so records from concurrent goroutines never interleave.
type sink struct {
	mtx    sync.Mutex
	w      *bufio.Writer
	c      io.Closer // set only for files the sink opened
	first  bool
	sealed bool // footer written, no more records
	closed bool
	err    error // first write error, if any
}

// openFileSink creates or truncates the file at path.
func openFileSink(path string) (*sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	sk := newSink(f)
	sk.c = f
	return sk, nil
}

// newSink wraps w, which is owned by the caller: closing the sink flushes w,
// but never closes it.
func newSink(w io.Writer) *sink {
	return &sink{
		w:     bufio.NewWriter(w),
		first: true,
	}
}

func (s *sink) writeHeader() { s.write([]byte(fileHeader)) }

// writeFooter terminates the record array. Records which arrive after the
// footer are dropped, so the file stays well-formed.
func (s *sink) writeFooter() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.sealed {
		return
	}
	s.writeLocked([]byte(fileFooter))
	s.sealed = true
}

// write appends p verbatim.
func (s *sink) write(p []byte) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.writeLocked(p)
}

// writeEvent appends a single encoded record, preceded by a separator unless
// it's the first record since the sink was opened. It returns false if the
// record was dropped because the sink was already sealed or closed.
func (s *sink) writeEvent(p []byte) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.sealed || s.closed {
		timetrcdebug.Records.Dropped.Add(1)
		return false
	}

	if !s.first {
		s.writeLocked([]byte{','})
	}
	s.first = false
	if s.writeLocked(p) {
		timetrcdebug.Records.Written.Add(1)
	}

	return true
}

func (s *sink) writeLocked(p []byte) bool {
	if s.closed {
		return false
	}

	n, err := s.w.Write(p)
	timetrcdebug.Records.Bytes.Add(uint64(n))
	if err != nil {
		timetrcdebug.Records.Errors.Add(1)
		if s.err == nil {
			s.err = err
		}
		return false
	}
	return true
}

// writeErr returns the first write error observed by the sink, if any.
func (s *sink) writeErr() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.err
}

// close flushes buffered data and closes the underlying writer, if it's
// closable. Subsequent writes are dropped.
func (s *sink) close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	ferr := s.w.Flush()
	if s.c == nil {
		return ferr
	}

	cerr := s.c.Close()
	switch {
	case ferr != nil:
		return fmt.Errorf("flush: %w", ferr)
	case cerr != nil:
		return fmt.Errorf("close: %w", cerr)
	default:
		return nil
	}
}
