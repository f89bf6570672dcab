package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/timetrc"
	"github.com/peterbourgon/timetrc/internal/timetrcdebug"
	"github.com/peterbourgon/timetrc/internal/timetrcutil"
	"github.com/peterbourgon/timetrc/timetrchttp"
	"golang.org/x/sync/errgroup"
)

type demoConfig struct {
	*rootConfig

	output     string
	workers    int
	iterations int
	depth      int
	fanout     int
	work       time.Duration
	listenAddr string
	linger     time.Duration
	print      bool
}

func (cfg *demoConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{
		ShortName:   'o',
		LongName:    "output",
		Value:       ffval.NewValueDefault(&cfg.output, timetrc.DefaultPath),
		Usage:       "trace file to write",
		Placeholder: "FILE",
	})
	fs.AddFlag(ff.FlagConfig{
		ShortName: 'w',
		LongName:  "workers",
		Value:     ffval.NewValueDefault(&cfg.workers, 4),
		Usage:     "concurrent worker goroutines",
	})
	fs.AddFlag(ff.FlagConfig{
		ShortName: 'n',
		LongName:  "iterations",
		Value:     ffval.NewValueDefault(&cfg.iterations, 10),
		Usage:     "top-level scopes per worker",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName: "depth",
		Value:    ffval.NewValueDefault(&cfg.depth, 3),
		Usage:    "nesting depth of scopes",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName: "fanout",
		Value:    ffval.NewValueDefault(&cfg.fanout, 2),
		Usage:    "child scopes per scope",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName: "work",
		Value:    ffval.NewValueDefault(&cfg.work, time.Millisecond),
		Usage:    "maximum simulated work in each innermost scope",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName:    "listen",
		Value:       ffval.NewValue(&cfg.listenAddr),
		Usage:       "if set, stream records as server-sent events on this address",
		Placeholder: "ADDR",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName: "linger",
		Value:    ffval.NewValue(&cfg.linger),
		Usage:    "keep serving for this long after the workload finishes",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName: "print",
		Value:    ffval.NewValue(&cfg.print),
		Usage:    "print the duration of each top-level scope",
	})
}

func (cfg *demoConfig) Exec(ctx context.Context, args []string) error {
	switch {
	case cfg.workers <= 0:
		return fmt.Errorf("workers must be positive")
	case cfg.depth <= 0:
		return fmt.Errorf("depth must be positive")
	case cfg.fanout <= 0:
		return fmt.Errorf("fanout must be positive")
	}

	var stream *timetrchttp.StreamServer
	if cfg.listenAddr != "" {
		stream = timetrchttp.NewStreamServer()
		stream.Logger = cfg.debug
	}

	tcfg := timetrc.TracerConfig{
		Console: cfg.stdout,
		Logger:  cfg.debug,
	}
	if stream != nil {
		tcfg.Observer = stream.Observe
	}
	tracer := timetrc.NewTracer(tcfg)

	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			if err := cfg.runWorkload(ctx, tracer); err != nil {
				return err
			}
			if stream != nil && cfg.linger > 0 {
				cfg.info.Printf("lingering for %s", cfg.linger)
				contextSleep(ctx, cfg.linger)
			}
			return nil
		}, func(error) {
			cancel()
		})
	}

	if stream != nil {
		ln, err := net.Listen("tcp", cfg.listenAddr)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		cfg.info.Printf("streaming records on http://%s", ln.Addr())

		server := &http.Server{Handler: stream}
		g.Add(func() error {
			if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			server.Close()
		})
	}

	{
		g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	}

	return g.Run()
}

func (cfg *demoConfig) runWorkload(ctx context.Context, tracer *timetrc.Tracer) error {
	if err := tracer.Enable(cfg.output); err != nil {
		return err
	}

	cfg.info.Printf("tracing session %s to %s", tracer.SessionID(), cfg.output)

	begin := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.workers; i++ {
		worker := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(worker)))
			for n := 0; n < cfg.iterations; n++ {
				tm := tracer.ScopeTag(fmt.Sprintf("worker %d iteration %d", worker, n))
				tm.SetPrintOnDestroy(cfg.print)
				err := cfg.descend(ctx, tracer, rng, 1)
				tm.End()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	werr := g.Wait()

	if err := tracer.Disable(); err != nil {
		return err
	}

	took := time.Since(begin)
	written, bytes, _, dropped := timetrcdebug.Records.Values()
	cfg.info.Printf("wrote %d records (%s) in %s, dropped %d", written, timetrcutil.HumanizeBytes(bytes), timetrcutil.HumanizeDuration(took), dropped)
	cfg.debug.Printf("record error rate %.2f%%", timetrcdebug.Records.ErrorPercent())

	active, orphan := timetrcdebug.Scopes.Values()
	cfg.debug.Printf("scopes: active %d, orphan %d", active, orphan)

	enable, enableFail, disable, replace := timetrcdebug.Sessions.Values()
	cfg.debug.Printf("sessions: enable %d, enable failures %d, disable %d, replace %d", enable, enableFail, disable, replace)

	return werr
}

func (cfg *demoConfig) descend(ctx context.Context, tracer *timetrc.Tracer, rng *rand.Rand, depth int) error {
	defer tracer.ScopeTag(fmt.Sprintf("depth %d", depth)).End()

	tracer.RecordCounter("depth", int64(depth))

	if depth >= cfg.depth {
		if cfg.work > 0 {
			contextSleep(ctx, time.Duration(rng.Int63n(int64(cfg.work))))
		}
		return ctx.Err()
	}

	for i := 0; i < cfg.fanout; i++ {
		if err := cfg.descend(ctx, tracer, rng, depth+1); err != nil {
			return err
		}
	}

	return nil
}
