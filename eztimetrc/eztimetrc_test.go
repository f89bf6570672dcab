//go:build !notimetrc

package eztimetrc_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterbourgon/timetrc"
	"github.com/peterbourgon/timetrc/eztimetrc"
	"github.com/peterbourgon/timetrc/timetrccheck"
)

func TestDefaultTracer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")

	eztimetrc.Enable(path)
	func() {
		defer eztimetrc.Trace()()
		defer eztimetrc.TraceTag("inner")()
		eztimetrc.Value("items", 3)
	}()
	eztimetrc.Disable()

	f, err := timetrccheck.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}

	report := timetrccheck.Check(f)
	if !report.OK() {
		t.Fatal(report.Err())
	}
	if want, have := 2, report.Pairs; want != have {
		t.Fatalf("pairs: want %d, have %d", want, have)
	}

	var (
		outer = f.TraceEvents[0]
		inner = f.TraceEvents[1]
	)
	if !strings.HasPrefix(outer.Name, "eztimetrc_test.TestDefaultTracer") {
		t.Errorf("outer name: want eztimetrc_test.TestDefaultTracer..., have %q", outer.Name)
	}
	if file, _ := outer.FilePath(); filepath.Base(file) != "eztimetrc_test.go" {
		t.Errorf("outer file: want eztimetrc_test.go, have %q", file)
	}
	if want, have := "inner", inner.Name; want != have {
		t.Errorf("inner name: want %q, have %q", want, have)
	}
}

func TestDisabledIsNoop(t *testing.T) {
	func() {
		defer eztimetrc.Trace()()
		eztimetrc.Value("items", 3)
	}()

	if timetrc.Enabled() {
		t.Errorf("default tracer enabled without Enable")
	}
	if _, err := os.Stat(timetrc.DefaultPath); !os.IsNotExist(err) {
		t.Errorf("default trace file exists (err=%v)", err)
	}
}
