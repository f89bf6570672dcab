package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/timetrc/internal/timetrcutil"
	"github.com/peterbourgon/timetrc/timetrccheck"
)

type statsConfig struct {
	*rootConfig

	top int
}

func (cfg *statsConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{
		LongName: "top",
		Value:    ffval.NewValueDefault(&cfg.top, 20),
		Usage:    "scopes to print, ordered by total duration, 0 for all",
	})
}

func (cfg *statsConfig) Exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one trace file is required")
	}
	path := args[0]

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	f, err := timetrccheck.ParseFile(path)
	if err != nil {
		return err
	}

	s := timetrccheck.Summarize(f)

	fmt.Fprintf(cfg.stdout, "%s: %s, %d event(s), %d thread(s), span %s\n", path, timetrcutil.HumanizeBytes(fi.Size()), len(f.TraceEvents), s.Threads, timetrcutil.HumanizeDuration(s.Span))
	fmt.Fprintln(cfg.stdout)

	tw := tabwriter.NewWriter(cfg.stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "SCOPE\tCOUNT\tTOTAL\tMEAN\tMIN\tMAX\n")
	for i, ss := range s.Scopes {
		if cfg.top > 0 && i >= cfg.top {
			fmt.Fprintf(tw, "(%d more)\t\t\t\t\t\n", len(s.Scopes)-i)
			break
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			ss.Name,
			ss.Count,
			timetrcutil.HumanizeDuration(ss.Total),
			timetrcutil.HumanizeDuration(ss.Mean()),
			timetrcutil.HumanizeDuration(ss.Min),
			timetrcutil.HumanizeDuration(ss.Max),
		)
	}
	tw.Flush()

	if len(s.Counters) <= 0 {
		return nil
	}

	fmt.Fprintln(cfg.stdout)
	tw = tabwriter.NewWriter(cfg.stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "COUNTER\tSAMPLES\tMIN\tMAX\tLAST\n")
	for _, cs := range s.Counters {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", cs.Name, cs.Samples, cs.Min, cs.Max, cs.Last)
	}
	return tw.Flush()
}
