package metrics

import (
	"math"

	"github.com/san-kum/newtonsolve/internal/newton"
)

// Damping is the fraction of accepted iterations whose coefficient was
// below one.
type Damping struct {
	damped, total int
}

func NewDamping() *Damping { return &Damping{} }

func (d *Damping) Name() string { return "damped fraction" }

func (d *Damping) Observe(r newton.Record) {
	if !accepted(r) {
		return
	}
	d.total++
	if r.Coef < 1 {
		d.damped++
	}
}

func (d *Damping) Value() float64 {
	if d.total == 0 {
		return 0
	}
	return float64(d.damped) / float64(d.total)
}

func (d *Damping) Reset() { d.damped, d.total = 0, 0 }

// MaxStep is the largest applied move ‖coef·step‖₂ among accepted
// iterations.
type MaxStep struct {
	max float64
}

func NewMaxStep() *MaxStep { return &MaxStep{} }

func (m *MaxStep) Name() string { return "max step" }

func (m *MaxStep) Observe(r newton.Record) {
	if !accepted(r) {
		return
	}
	sum := 0.0
	for _, v := range r.Step {
		sum += v * v
	}
	m.max = math.Max(m.max, r.Coef*math.Sqrt(sum))
}

func (m *MaxStep) Value() float64 { return m.max }
func (m *MaxStep) Reset()         { m.max = 0 }
