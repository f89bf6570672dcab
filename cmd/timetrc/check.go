package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/timetrc/timetrccheck"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

type checkConfig struct {
	*rootConfig

	maxProblems int
	jsonOutput  bool
}

func (cfg *checkConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{
		LongName: "max-problems",
		Value:    ffval.NewValueDefault(&cfg.maxProblems, 10),
		Usage:    "problems to print per file, 0 for all",
	})
	fs.AddFlag(ff.FlagConfig{
		LongName: "json",
		Value:    ffval.NewValue(&cfg.jsonOutput),
		Usage:    "print reports as newline-delimited JSON",
	})
}

func (cfg *checkConfig) Exec(ctx context.Context, args []string) error {
	if len(args) <= 0 {
		return fmt.Errorf("at least one trace file is required")
	}

	var failed int
	for _, path := range args {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := checkFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(cfg.stdout, "%s %s: %v\n", failColor.Sprint("FAIL"), path, err)
			continue
		}

		if !report.OK() {
			failed++
		}

		if cfg.jsonOutput {
			if err := cfg.printJSON(path, report); err != nil {
				return err
			}
			continue
		}

		cfg.printText(path, report)
	}

	cfg.debug.Printf("checked %d, failed %d", len(args), failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d trace file(s) failed", failed, len(args))
	}
	return nil
}

func checkFile(path string) (*timetrccheck.Report, error) {
	f, err := timetrccheck.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return timetrccheck.Check(f), nil
}

func (cfg *checkConfig) printText(path string, report *timetrccheck.Report) {
	if report.OK() {
		fmt.Fprintf(cfg.stdout, "%s %s: %s\n", okColor.Sprint("OK"), path, report)
		return
	}

	fmt.Fprintf(cfg.stdout, "%s %s: %s\n", failColor.Sprint("FAIL"), path, report)
	for i, problem := range report.Problems {
		if cfg.maxProblems > 0 && i >= cfg.maxProblems {
			fmt.Fprintf(cfg.stdout, "    ... %d more\n", len(report.Problems)-i)
			break
		}
		fmt.Fprintf(cfg.stdout, "    %v\n", problem)
	}
}

func (cfg *checkConfig) printJSON(path string, report *timetrccheck.Report) error {
	return json.NewEncoder(cfg.stdout).Encode(struct {
		Path   string               `json:"path"`
		OK     bool                 `json:"ok"`
		Report *timetrccheck.Report `json:"report"`
	}{
		Path:   path,
		OK:     report.OK(),
		Report: report,
	})
}
