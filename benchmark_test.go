package timetrc_test

import (
	"io"
	"testing"

	"github.com/peterbourgon/timetrc"
)

func BenchmarkScope(b *testing.B) {
	b.Run("disabled Begin End", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			tracer.Begin("file.go", "function", i).End()
		}
	})

	b.Run("disabled Scope", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			tracer.Scope().End()
		}
	})

	b.Run("enabled Begin End", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		tracer.EnableWriter(io.Discard)
		defer tracer.Disable()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			tracer.Begin("file.go", "function", i).End()
		}
	})

	b.Run("enabled Scope", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		tracer.EnableWriter(io.Discard)
		defer tracer.Disable()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			tracer.Scope().End()
		}
	})

	b.Run("enabled Begin End parallel", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		tracer.EnableWriter(io.Discard)
		defer tracer.Disable()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				tracer.Begin("file.go", "function", 1).End()
			}
		})
	})
}

func BenchmarkRecordCounter(b *testing.B) {
	b.Run("disabled", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			tracer.RecordCounter("counter", int64(i))
		}
	})

	b.Run("enabled", func(b *testing.B) {
		tracer := timetrc.NewTracer(timetrc.TracerConfig{})
		tracer.EnableWriter(io.Discard)
		defer tracer.Disable()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			tracer.RecordCounter("counter", int64(i))
		}
	})
}
