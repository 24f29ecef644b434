// Package stats wraps github.com/rcrowley/go-metrics behind a small
// StatsReceiver facade: a scoped Counter/Gauge/Latency interface that the
// event server and job actor take as a constructor argument instead of
// reaching for the global go-metrics registry directly.
package stats

import (
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

// Counter is a monotonically increasing event count.
type Counter interface {
	Inc(delta int64)
	Count() int64
}

// Gauge holds an arbitrarily-settable int64 value.
type Gauge interface {
	Update(value int64)
	Value() int64
}

// Latency records a distribution of durations, e.g. scheduler round-trip
// time or job-actor dispatch latency.
type Latency interface {
	Update(d time.Duration)
}

// StatsReceiver is the scoped facade passed down the call tree. Scope
// prefixes every subsequently created instrument's name, so
// foo.Scope("bar").Counter("baz") names the same instrument as
// foo.Counter("bar/baz").
type StatsReceiver interface {
	Scope(scope ...string) StatsReceiver
	Counter(name string) Counter
	Gauge(name string) Gauge
	Latency(name string) Latency
	Render() map[string]int64
}

// defaultStatsReceiver backs StatsReceiver with a go-metrics registry.
type defaultStatsReceiver struct {
	registry metrics.Registry
	scope    []string
}

// New builds a StatsReceiver backed by a fresh go-metrics registry.
func New() StatsReceiver {
	return &defaultStatsReceiver{registry: metrics.NewRegistry()}
}

// Nil returns a StatsReceiver whose instruments discard every update, for
// callers (such as tests) that want the interface without the
// bookkeeping cost.
func Nil() StatsReceiver { return nilReceiver{} }

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{registry: s.registry, scope: append(append([]string{}, s.scope...), scope...)}
}

func (s *defaultStatsReceiver) scopedName(name string) string {
	if len(s.scope) == 0 {
		return name
	}
	return strings.Join(append(append([]string{}, s.scope...), name), "/")
}

func (s *defaultStatsReceiver) Counter(name string) Counter {
	c := s.registry.GetOrRegister(s.scopedName(name), metrics.NewCounter).(metrics.Counter)
	return counterAdapter{c}
}

func (s *defaultStatsReceiver) Gauge(name string) Gauge {
	g := s.registry.GetOrRegister(s.scopedName(name), metrics.NewGauge).(metrics.Gauge)
	return gaugeAdapter{g}
}

func (s *defaultStatsReceiver) Latency(name string) Latency {
	h := s.registry.GetOrRegister(s.scopedName(name), metrics.NewTimer).(metrics.Timer)
	return latencyAdapter{h}
}

func (s *defaultStatsReceiver) Render() map[string]int64 {
	out := map[string]int64{}
	s.registry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			out[name] = m.Count()
		case metrics.Gauge:
			out[name] = m.Value()
		case metrics.Timer:
			out[name] = m.Count()
		}
	})
	return out
}

type counterAdapter struct{ c metrics.Counter }

func (c counterAdapter) Inc(delta int64) { c.c.Inc(delta) }
func (c counterAdapter) Count() int64    { return c.c.Count() }

type gaugeAdapter struct{ g metrics.Gauge }

func (g gaugeAdapter) Update(value int64) { g.g.Update(value) }
func (g gaugeAdapter) Value() int64       { return g.g.Value() }

type latencyAdapter struct{ t metrics.Timer }

func (l latencyAdapter) Update(d time.Duration) { l.t.Update(d) }

type nilReceiver struct{}

func (nilReceiver) Scope(scope ...string) StatsReceiver { return nilReceiver{} }
func (nilReceiver) Counter(name string) Counter         { return nilCounter{} }
func (nilReceiver) Gauge(name string) Gauge             { return nilGauge{} }
func (nilReceiver) Latency(name string) Latency         { return nilLatency{} }
func (nilReceiver) Render() map[string]int64            { return map[string]int64{} }

type nilCounter struct{}

func (nilCounter) Inc(delta int64) {}
func (nilCounter) Count() int64    { return 0 }

type nilGauge struct{}

func (nilGauge) Update(value int64) {}
func (nilGauge) Value() int64       { return 0 }

type nilLatency struct{}

func (nilLatency) Update(d time.Duration) {}
