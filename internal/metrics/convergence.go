package metrics

import (
	"math"

	"github.com/san-kum/newtonsolve/internal/newton"
)

// Order estimates the convergence order q from the last three residual
// norms: q = ln(e[n]/e[n-1]) / ln(e[n-1]/e[n-2]). Newton near a simple
// root gives about 2. It is NaN until three positive norms are seen.
type Order struct {
	last [3]float64
	seen int
}

func NewOrder() *Order { return &Order{} }

func (o *Order) Name() string { return "convergence order" }

func (o *Order) Observe(r newton.Record) {
	if o.seen == 0 {
		o.push(r.EpsBefore)
	}
	if accepted(r) {
		o.push(r.EpsAfter)
	}
}

func (o *Order) push(eps float64) {
	if !(eps > 0) || math.IsInf(eps, 0) {
		return
	}
	o.last[0], o.last[1], o.last[2] = o.last[1], o.last[2], eps
	o.seen++
}

func (o *Order) Value() float64 {
	if o.seen < 3 {
		return math.NaN()
	}
	den := math.Log(o.last[1] / o.last[0])
	if den == 0 {
		return math.NaN()
	}
	return math.Log(o.last[2]/o.last[1]) / den
}

func (o *Order) Reset() { *o = Order{} }

// Reduction is the number of decades the residual norm dropped over the
// solve, log10(first/last).
type Reduction struct {
	first, last float64
	seen        bool
}

func NewReduction() *Reduction { return &Reduction{} }

func (d *Reduction) Name() string { return "decades reduced" }

func (d *Reduction) Observe(r newton.Record) {
	if !d.seen {
		d.first, d.seen = r.EpsBefore, true
	}
	d.last = math.Min(r.EpsBefore, r.EpsAfter)
}

func (d *Reduction) Value() float64 {
	if !d.seen {
		return 0
	}
	return math.Log10(d.first) - math.Log10(math.Max(d.last, 1e-300))
}

func (d *Reduction) Reset() { *d = Reduction{} }
