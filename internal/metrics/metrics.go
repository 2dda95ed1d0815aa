// Package metrics summarises how a solve converged from its trace.
package metrics

import "github.com/san-kum/newtonsolve/internal/newton"

// Metric observes trace records one at a time.
type Metric interface {
	Name() string
	Observe(r newton.Record)
	Value() float64
	Reset()
}

// Summary is the value of each metric, in the order they were given.
type Summary []Value

type Value struct {
	Name  string
	Value float64
}

// Evaluate resets the metrics, feeds them every record of trace and
// collects their values.
func Evaluate(trace *newton.Trace, ms ...Metric) Summary {
	out := make(Summary, 0, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, r := range trace.Records() {
			m.Observe(r)
		}
		out = append(out, Value{Name: m.Name(), Value: m.Value()})
	}
	return out
}

// Default returns the metrics shown for a stored run.
func Default() []Metric {
	return []Metric{NewOrder(), NewReduction(), NewDamping(), NewMaxStep()}
}

func accepted(r newton.Record) bool { return r.EpsAfter < r.EpsBefore }
