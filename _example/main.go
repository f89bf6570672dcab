package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/peterbourgon/timetrc/eztimetrc"
)

func main() {
	var (
		output   = flag.String("output", "example.json", "trace file")
		clients  = flag.Int("clients", 3, "concurrent API clients")
		duration = flag.Duration("duration", 2*time.Second, "how long to run")
	)
	flag.Parse()

	eztimetrc.Enable(*output)
	defer eztimetrc.Disable()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	api := NewAPI(NewStore())

	// Spawn goroutines that produce API requests.
	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				f := rand.Float64()
				switch {
				case f < 0.6:
					req, _ := http.NewRequest("GET", "http://irrelevant/"+getWord(), nil)
					api.ServeHTTP(httptest.NewRecorder(), req)

				case f < 0.9:
					req, _ := http.NewRequest("PUT", "http://irrelevant/"+getWord(), strings.NewReader(getWord()))
					api.ServeHTTP(httptest.NewRecorder(), req)

				default:
					req, _ := http.NewRequest("DELETE", "http://irrelevant/"+getWord(), nil)
					api.ServeHTTP(httptest.NewRecorder(), req)
				}
			}
		}()
	}

	log.Printf("running for %s, tracing to %s", *duration, *output)
	wg.Wait()
	log.Printf("done")
}

//
//
//

type API struct {
	s *Store
}

func NewAPI(s *Store) *API {
	return &API{s: s}
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer eztimetrc.TraceTag("API " + r.Method)()

	switch {
	case r.Method == "GET":
		a.handleGet(w, r)
	case r.Method == "PUT":
		a.handleSet(w, r)
	case r.Method == "DELETE":
		a.handleDel(w, r)
	default:
		http.Error(w, "method must be GET, PUT, or DELETE", http.StatusMethodNotAllowed)
	}
}

func (a *API) handleSet(w http.ResponseWriter, r *http.Request) {
	defer eztimetrc.Trace()()

	key := getKey(r.URL.Path)
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}

	valbuf, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "couldn't read body", http.StatusBadRequest)
		return
	}

	val := strings.TrimSpace(string(valbuf))
	if val == "" {
		http.Error(w, "val required", http.StatusBadRequest)
		return
	}

	a.s.Set(key, val)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	defer eztimetrc.Trace()()

	key := getKey(r.URL.Path)
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}

	val, ok := a.s.Get(key)
	if !ok {
		http.Error(w, "not found", http.StatusNoContent)
		return
	}

	fmt.Fprintln(w, val)
}

func (a *API) handleDel(w http.ResponseWriter, r *http.Request) {
	defer eztimetrc.Trace()()

	key := getKey(r.URL.Path)
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}

	if !a.s.Del(key) {
		http.Error(w, "not found", http.StatusNoContent)
		return
	}
}

//
//
//

type Store struct {
	mtx sync.Mutex
	set map[string]string
}

func NewStore() *Store {
	return &Store{
		set: map[string]string{},
	}
}

func (s *Store) Set(key, val string) {
	defer eztimetrc.TraceTag("Set " + key)()
	s.mtx.Lock()
	defer s.mtx.Unlock()
	time.Sleep(getDelay(key, 250*time.Microsecond))
	s.set[key] = val
	eztimetrc.Value("store size", len(s.set))
}

func (s *Store) Get(key string) (string, bool) {
	defer eztimetrc.TraceTag("Get " + key)()
	s.mtx.Lock()
	defer s.mtx.Unlock()
	val, ok := s.set[key]
	time.Sleep(getDelay(key, 100*time.Microsecond))
	return val, ok
}

func (s *Store) Del(key string) bool {
	defer eztimetrc.TraceTag("Del " + key)()
	s.mtx.Lock()
	defer s.mtx.Unlock()
	_, ok := s.set[key]
	delete(s.set, key)
	time.Sleep(getDelay(key, 10*time.Microsecond))
	eztimetrc.Value("store size", len(s.set))
	return ok
}

//
//
//

func getKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

var words = []string{
	"air", "area", "art", "back", "body",
	"book", "business", "car", "case", "change",
	"child", "city", "community", "company", "country",
	"day", "door", "education", "end", "eye",
	"face", "fact", "family", "father", "force",
	"friend", "game", "girl", "government", "group",
	"guy", "hand", "head", "health", "history",
	"home", "hour", "house", "idea", "information",
	"issue", "job", "kid", "kind", "law",
	"level", "life", "line", "lot", "man",
}

func getWord() string {
	return words[rand.Intn(len(words))]
}

func getDelay(word string, base time.Duration) time.Duration {
	return time.Duration(len(word)) * base
}
