package timetrchttp_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bernerdschaefer/eventsource"
	"github.com/peterbourgon/timetrc"
	"github.com/peterbourgon/timetrc/timetrchttp"
)

func TestStreamServer(t *testing.T) {
	t.Parallel()

	streamServer := timetrchttp.NewStreamServer()
	httpServer := httptest.NewServer(streamServer)
	defer httpServer.Close()

	tracer := timetrc.NewTracer(timetrc.TracerConfig{
		Observer: streamServer.Observe,
	})

	req, err := http.NewRequest("GET", httpServer.URL+"?phase=C", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	es := eventsource.New(req, time.Second)
	defer es.Close()

	initEvent, err := es.Read()
	if err != nil {
		t.Fatalf("read init: %v", err)
	}
	if want, have := "init", initEvent.Type; want != have {
		t.Fatalf("first event type: want %q, have %q", want, have)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !streamServer.Active() {
		if time.Now().After(deadline) {
			t.Fatal("stream never became active")
		}
		time.Sleep(time.Millisecond)
	}

	if err := tracer.EnableWriter(io.Discard); err != nil {
		t.Fatal(err)
	}
	tracer.Begin("main.go", "skipped", 1).End() // filtered by phase
	tracer.RecordCounter("depth", 4)
	if err := tracer.Disable(); err != nil {
		t.Fatal(err)
	}

	ev, err := es.Read()
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if want, have := "record", ev.Type; want != have {
		t.Fatalf("event type: want %q, have %q", want, have)
	}

	var rec struct {
		Session string `json:"session"`
		Record  struct {
			Name  string           `json:"name"`
			Phase string           `json:"ph"`
			Args  map[string]int64 `json:"args"`
		} `json:"record"`
	}
	if err := json.Unmarshal(ev.Data, &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}

	if rec.Session == "" {
		t.Errorf("record has no session ID")
	}
	if want, have := "C", rec.Record.Phase; want != have {
		t.Errorf("phase: want %q, have %q", want, have)
	}
	if want, have := int64(4), rec.Record.Args["depth"]; want != have {
		t.Errorf("depth: want %d, have %d", want, have)
	}
}

func TestStreamServerReplay(t *testing.T) {
	t.Parallel()

	streamServer := timetrchttp.NewStreamServer()
	httpServer := httptest.NewServer(streamServer)
	defer httpServer.Close()

	tracer := timetrc.NewTracer(timetrc.TracerConfig{
		Observer: streamServer.Observe,
	})
	if err := tracer.EnableWriter(io.Discard); err != nil {
		t.Fatal(err)
	}
	tracer.Begin("main.go", "first", 1).End()
	tracer.RecordCounter("depth", 1)
	tracer.Begin("main.go", "second", 2).End()
	tracer.Begin("main.go", "third", 3).End()
	if err := tracer.Disable(); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest("GET", httpServer.URL+"?phase=E&replay=2", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	es := eventsource.New(req, time.Second)
	defer es.Close()

	if initEvent, err := es.Read(); err != nil || initEvent.Type != "init" {
		t.Fatalf("read init: %v (%q)", err, initEvent.Type)
	}

	var names []string
	for len(names) < 2 {
		ev, err := es.Read()
		if err != nil {
			t.Fatalf("read record: %v", err)
		}
		if ev.Type != "record" {
			continue
		}
		var rec struct {
			Record struct {
				Name  string `json:"name"`
				Phase string `json:"ph"`
			} `json:"record"`
		}
		if err := json.Unmarshal(ev.Data, &rec); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		if want, have := "E", rec.Record.Phase; want != have {
			t.Fatalf("phase: want %q, have %q", want, have)
		}
		names = append(names, rec.Record.Name)
	}

	if want, have := "second third", strings.Join(names, " "); want != have {
		t.Errorf("replayed: want %q, have %q", want, have)
	}
}

func TestStreamServerReplayContinuity(t *testing.T) {
	t.Parallel()

	streamServer := timetrchttp.NewStreamServer()
	httpServer := httptest.NewServer(streamServer)
	defer httpServer.Close()

	tracer := timetrc.NewTracer(timetrc.TracerConfig{
		Observer: streamServer.Observe,
	})
	if err := tracer.EnableWriter(io.Discard); err != nil {
		t.Fatal(err)
	}
	defer tracer.Disable()

	// Record continuously while the client connects, so records are observed
	// concurrently with the subscription.
	go func() {
		var n int64
		for !streamServer.Active() {
			n++
			tracer.RecordCounter("n", n)
		}
		for i := 0; i < 100; i++ {
			n++
			tracer.RecordCounter("n", n)
		}
		tracer.RecordCounter("done", n)
	}()

	req, err := http.NewRequest("GET", httpServer.URL+"?replay=1000&sendbuf=100000", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept", "text/event-stream")

	es := eventsource.New(req, time.Second)
	defer es.Close()

	var values []int64
	for {
		ev, err := es.Read()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Type != "record" {
			continue
		}
		var rec struct {
			Record struct {
				Name string           `json:"name"`
				Args map[string]int64 `json:"args"`
			} `json:"record"`
		}
		if err := json.Unmarshal(ev.Data, &rec); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		if rec.Record.Name == "done" {
			if want, have := rec.Record.Args["done"], values[len(values)-1]; want != have {
				t.Errorf("last value: want %d, have %d", want, have)
			}
			break
		}
		values = append(values, rec.Record.Args["n"])
	}

	for i := 1; i < len(values); i++ {
		if want, have := values[i-1]+1, values[i]; want != have {
			t.Fatalf("value %d: want %d, have %d (gap or duplicate)", i, want, have)
		}
	}
}
