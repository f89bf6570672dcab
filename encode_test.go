package timetrc

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendEvent(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "begin",
			ev:   Event{Phase: PhaseBegin, Name: "foo", Category: "bst", Timestamp: 12, ThreadID: 34, File: "a.go", Line: 56},
			want: `{"name":"foo","cat":"bst","ph":"B","ts":12,"pid":1,"tid":34,"args":{"file path":"a.go","line number":56}}` + "\n",
		},
		{
			name: "end",
			ev:   Event{Phase: PhaseEnd, Name: "foo", Category: "bst", Timestamp: 78, ThreadID: 34, File: "a.go", Line: 56},
			want: `{"name":"foo","cat":"bst","ph":"E","ts":78,"pid":1,"tid":34,"args":{"file path":"a.go","line number":56}}` + "\n",
		},
		{
			name: "counter",
			ev:   Event{Phase: PhaseCounter, Name: "depth", Timestamp: 9, ThreadID: 99, Value: 4},
			want: `{"name":"depth","ph":"C","ts":9,"pid":1,"tid":1,"args":{"depth":4}}` + "\n",
		},
		{
			name: "negative counter",
			ev:   Event{Phase: PhaseCounter, Name: "delta", Value: -17},
			want: `{"name":"delta","ph":"C","ts":0,"pid":1,"tid":1,"args":{"delta":-17}}` + "\n",
		},
		{
			name: "escaped",
			ev:   Event{Phase: PhaseBegin, Name: "say \"hi\"", Category: "c", File: `C:\x\y.cpp`, Line: 1},
			want: `{"name":"say \"hi\"","cat":"c","ph":"B","ts":0,"pid":1,"tid":0,"args":{"file path":"C:\\x\\y.cpp","line number":1}}` + "\n",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if want, have := tc.want, string(AppendEvent(nil, tc.ev)); want != have {
				t.Errorf("\nwant %s\nhave %s", want, have)
			}
		})
	}
}

func TestAppendString(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want string
	}{
		{``, `""`},
		{`plain`, `"plain"`},
		{`a"b`, `"a\"b"`},
		{`a\b`, `"a\\b"`},
		{"a\nb\rc\td", `"a\nb\rc\td"`},
		{"\x00\x1f", `"\u0000\u001f"`},
		{"héllo 世界", `"héllo 世界"`},
		{"bad \xff byte", "\"bad \ufffd byte\""},
	} {
		have := string(appendString(nil, tc.in))
		if tc.want != have {
			t.Errorf("%q: want %s, have %s", tc.in, tc.want, have)
		}
		if !json.Valid([]byte(have)) {
			t.Errorf("%q: invalid JSON %s", tc.in, have)
		}
	}
}

func TestNormalizeFunction(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in, want string
	}{
		{"main", "main"},
		{"void __cdecl foo(int)", "void foo(int)"},
		{"int __stdcall bar(void)", "int bar(void)"},
		{"void __fastcall a::b()", "void a::b()"},
		{"void __thiscall C::m()", "void C::m()"},
		{"__m128 __vectorcall v(__m128)", "__m128 v(__m128)"},
		{"pkg.(*T).Method", "pkg.(*T).Method"},
	} {
		if want, have := tc.want, normalizeFunction(tc.in); want != have {
			t.Errorf("%q: want %q, have %q", tc.in, want, have)
		}
	}
}

func TestShortFunctionName(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in, want string
	}{
		{"main.main", "main.main"},
		{"github.com/a/b.(*T).M", "b.(*T).M"},
		{"github.com/a/b.F.func1", "b.F.func1"},
	} {
		if want, have := tc.want, shortFunctionName(tc.in); want != have {
			t.Errorf("%q: want %q, have %q", tc.in, want, have)
		}
	}
}

func TestFormatMillis(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		us   int64
		want string
	}{
		{0, "0"},
		{1, "0.001"},
		{1500, "1.5"},
		{123456, "123.456"},
		{1234567, "1234.57"},
	} {
		if want, have := tc.want, formatMillis(tc.us); want != have {
			t.Errorf("%d: want %q, have %q", tc.us, want, have)
		}
	}
}

func TestGoroutineID(t *testing.T) {
	t.Parallel()

	id := goroutineID()
	if id == 0 {
		t.Fatalf("goroutine ID: want nonzero, have 0")
	}
	if again := goroutineID(); id != again {
		t.Errorf("goroutine ID: unstable, %d then %d", id, again)
	}

	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	if otherID := <-other; otherID == id || otherID == 0 {
		t.Errorf("goroutine ID: other goroutine has %d, this one %d", otherID, id)
	}
}

func TestExactOutput(t *testing.T) {
	t.Parallel()

	var now atomic.Int64
	clock := ClockFunc(func() Timestamp { return Timestamp(now.Add(10)) })

	var buf bytes.Buffer
	tracer := NewTracer(TracerConfig{Clock: clock})
	tracer.EnableWriter(&buf) // epoch 10

	tid := goroutineID()
	tm := tracer.Begin("f.go", "f", 3) // 10
	tracer.RecordCounter("n", 1)       // 20
	tm.End()                           // 30
	tracer.Disable()

	want := strings.Join([]string{
		`{"displayTimeUnit": "ms","traceEvents":[`,
		`{"name":"f","cat":"bst","ph":"B","ts":10,"pid":1,"tid":` + itoa(tid) + `,"args":{"file path":"f.go","line number":3}}`,
		`,{"name":"n","ph":"C","ts":20,"pid":1,"tid":1,"args":{"n":1}}`,
		`,{"name":"f","cat":"bst","ph":"E","ts":30,"pid":1,"tid":` + itoa(tid) + `,"args":{"file path":"f.go","line number":3}}`,
		`]}`,
	}, "\n")

	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Error(diff)
	}
}

func TestEmptyOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tracer := NewTracer(TracerConfig{})
	tracer.EnableWriter(&buf)
	tracer.Disable()

	want := "{\"displayTimeUnit\": \"ms\",\"traceEvents\":[\n]}"
	if have := buf.String(); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("invalid JSON")
	}
}

type failingWriter struct{ closed bool }

func (w *failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }
func (w *failingWriter) Close() error                { w.closed = true; return nil }

func TestSinkWriteError(t *testing.T) {
	t.Parallel()

	w := &failingWriter{}
	tracer := NewTracer(TracerConfig{})
	if err := tracer.EnableWriter(w); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10000; i++ {
		tracer.RecordCounter("n", int64(i)) // overflows the buffer
	}

	err := tracer.Disable()
	if err == nil {
		t.Fatalf("want error, have none")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("want disk full, have %v", err)
	}
	if w.closed {
		t.Errorf("caller-owned writer was closed")
	}
	if tracer.Enabled() {
		t.Errorf("tracer still enabled")
	}
}

func TestSinkSealed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := newSink(&buf)
	s.writeHeader()
	if !s.writeEvent([]byte("{}\n")) {
		t.Fatalf("first record dropped")
	}
	s.writeFooter()
	if s.writeEvent([]byte("{}\n")) {
		t.Fatalf("record after footer was accepted")
	}
	s.writeFooter()
	if err := s.close(); err != nil {
		t.Fatal(err)
	}
	if err := s.close(); err != nil {
		t.Fatal(err)
	}

	if want, have := fileHeader+"{}\n"+fileFooter, buf.String(); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestFileSinkClosesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.json")
	s, err := openFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := s.c.(*os.File)
	if !ok {
		t.Fatalf("file sink closer: want *os.File, have %T", s.c)
	}
	s.writeHeader()
	s.writeFooter()
	if err := s.close(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("write after close: want %v, have %v", os.ErrClosed, err)
	}
}

func itoa(u uint64) string {
	return strconv.FormatUint(u, 10)
}
