// Package timetrchttp serves trace records over HTTP as they're written.
package timetrchttp

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bernerdschaefer/eventsource"
	"github.com/peterbourgon/timetrc"
	"github.com/peterbourgon/timetrc/internal/timetrcpubsub"
	"github.com/peterbourgon/timetrc/internal/timetrcring"
)

const (
	sendBufferMin     = 1
	sendBufferDefault = 1000
	sendBufferMax     = 100000

	recentCapacity = 1000

	eventTypeInit   = "init"
	eventTypeRecord = "record"
	eventTypeStats  = "stats"
)

// StreamServer streams trace records to HTTP clients as server-sent events.
// It receives records via Observe, which should be installed as the Observer
// of one or more tracers.
//
// Clients may pass a `phase` query parameter, e.g. `?phase=C` or
// `?phase=B&phase=E`, to receive only records of those phases, and a
// `sendbuf` query parameter to size the per-client buffer. Records are
// dropped, rather than delaying the tracer, when a client falls behind.
//
// The server also remembers the most recent records it has observed. Clients
// may pass a `replay` query parameter to receive up to that many of them,
// subject to the phase filter, before the live stream begins. The replayed
// and live records join without gaps or duplicates.
type StreamServer struct {
	// StatsInterval is how often each client is sent its delivery stats.
	// Default 10s.
	StatsInterval time.Duration

	// Logger receives connection lifecycle messages. Default discards.
	Logger *log.Logger

	mtx    sync.Mutex // serializes Observe with subscribe
	broker *timetrcpubsub.Broker[timetrc.Record]
	recent *timetrcring.Ring[timetrc.Record]
}

// NewStreamServer returns a stream server with no clients.
func NewStreamServer() *StreamServer {
	return &StreamServer{
		StatsInterval: 10 * time.Second,
		Logger:        log.New(io.Discard, "", 0),
		broker:        timetrcpubsub.NewBroker[timetrc.Record](),
		recent:        timetrcring.New[timetrc.Record](recentCapacity),
	}
}

// Observe publishes the record to every connected client. It never waits for
// slow clients.
func (s *StreamServer) Observe(rec timetrc.Record) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.recent.Add(rec)
	s.broker.Publish(rec)
}

// subscribe registers ch with the broker and returns up to replay recent
// records that satisfy allow. Every observed record is either in the returned
// backlog or delivered to ch, never both.
func (s *StreamServer) subscribe(allow func(timetrc.Record) bool, ch chan<- timetrc.Record, replay int) ([]timetrc.Record, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.broker.Register(allow, ch); err != nil {
		return nil, err
	}

	return s.recent.Recent(replay, allow), nil
}

// Active returns true if at least one client is connected.
func (s *StreamServer) Active() bool {
	return s.broker.Active()
}

// ServeHTTP implements http.Handler.
func (s *StreamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		phases  = parsePhases(r.URL.Query()["phase"])
		sendbuf = parseSendBuffer(r.URL.Query().Get("sendbuf"))
		replay  = parseReplay(r.URL.Query().Get("replay"), s.recent.Cap())
		in      = make(chan timetrc.Record, sendbuf)
		ctx     = r.Context()
	)

	backlog, err := s.subscribe(phases.allow, in, replay)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		stats, err := s.broker.Unregister(in)
		s.Logger.Printf("%s: stream done, %s, err=%v", r.RemoteAddr, stats, err)
	}()

	interval := s.StatsInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	eventsource.Handler(func(lastID string, enc *eventsource.Encoder, stop <-chan bool) {
		s.Logger.Printf("%s: stream started, phases=%s sendbuf=%d replay=%d", r.RemoteAddr, phases, sendbuf, replay)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if err := encodeJSON(enc, eventTypeInit, map[string]any{
			"phases":  phases.String(),
			"sendbuf": sendbuf,
			"replay":  replay,
		}); err != nil {
			s.Logger.Printf("%s: encode init: %v", r.RemoteAddr, err)
			return
		}

		for _, rec := range backlog {
			if err := encodeRecord(enc, rec); err != nil {
				s.Logger.Printf("%s: encode replay record: %v", r.RemoteAddr, err)
				return
			}
		}

		for {
			select {
			case rec := <-in:
				if err := encodeRecord(enc, rec); err != nil {
					s.Logger.Printf("%s: encode record: %v", r.RemoteAddr, err)
					return
				}

			case <-ticker.C:
				stats, err := s.broker.Stats(in)
				if err != nil {
					s.Logger.Printf("%s: get stats: %v", r.RemoteAddr, err)
					continue
				}
				if err := encodeJSON(enc, eventTypeStats, stats); err != nil {
					s.Logger.Printf("%s: encode stats: %v", r.RemoteAddr, err)
					return
				}

			case <-stop:
				return

			case <-ctx.Done():
				return
			}
		}
	}).ServeHTTP(w, r)
}

type recordEvent struct {
	SessionID string          `json:"session"`
	Record    json.RawMessage `json:"record"`
}

func encodeRecord(enc *eventsource.Encoder, rec timetrc.Record) error {
	return encodeJSON(enc, eventTypeRecord, recordEvent{
		SessionID: rec.SessionID,
		Record:    json.RawMessage(bytes.TrimSpace(rec.Data)),
	})
}

func encodeJSON(enc *eventsource.Encoder, typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return enc.Encode(eventsource.Event{
		Type: typ,
		Data: data,
	})
}

//
//
//

type phaseSet []timetrc.Phase

func parsePhases(vals []string) phaseSet {
	var set phaseSet
	for _, val := range vals {
		for _, s := range strings.Split(val, ",") {
			switch s = strings.ToUpper(strings.TrimSpace(s)); s {
			case "B", "E", "C":
				set = append(set, timetrc.Phase(s[0]))
			}
		}
	}
	return set
}

func (ps phaseSet) allow(rec timetrc.Record) bool {
	if len(ps) <= 0 {
		return true
	}
	for _, p := range ps {
		if rec.Event.Phase == p {
			return true
		}
	}
	return false
}

func (ps phaseSet) String() string {
	if len(ps) <= 0 {
		return "all"
	}
	var sb strings.Builder
	for i, p := range ps {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

func parseSendBuffer(s string) int {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil:
		return sendBufferDefault
	case n < sendBufferMin:
		return sendBufferMin
	case n > sendBufferMax:
		return sendBufferMax
	default:
		return n
	}
}

func parseReplay(s string, max int) int {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil, n < 0:
		return 0
	case n > max:
		return max
	default:
		return n
	}
}
