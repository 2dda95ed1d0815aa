package newton

import (
	"fmt"
	"math"
)

// System evaluates residuals and their partial derivatives. Implementations
// must be pure and re-entrant: the solver calls them many times per
// iteration at different points.
type System interface {
	Evaluate(fn int, x []float64) float64
	Partial(fn, v int, x []float64) float64
}

// Funcs adapts a pair of plain functions with analytic derivatives to a
// System.
type Funcs struct {
	F  func(fn int, x []float64) float64
	DF func(fn, v int, x []float64) float64
}

func (f Funcs) Evaluate(fn int, x []float64) float64   { return f.F(fn, x) }
func (f Funcs) Partial(fn, v int, x []float64) float64 { return f.DF(fn, v, x) }

// DefaultDifferenceStep is the relative step used by CentralDifference when
// Step is zero.
const DefaultDifferenceStep = 1e-6

// CentralDifference approximates partial derivatives of F with central
// differences, (F(x+h·e_v) - F(x-h·e_v)) / 2h with h scaled by |x_v|.
type CentralDifference struct {
	F    func(fn int, x []float64) float64
	Step float64
}

func (c CentralDifference) Evaluate(fn int, x []float64) float64 { return c.F(fn, x) }

func (c CentralDifference) Partial(fn, v int, x []float64) float64 {
	step := c.Step
	if step <= 0 {
		step = DefaultDifferenceStep
	}
	h := step * math.Max(1, math.Abs(x[v]))

	xs := make([]float64, len(x))
	copy(xs, x)
	xs[v] = x[v] + h
	fp := c.F(fn, xs)
	xs[v] = x[v] - h
	fm := c.F(fn, xs)
	return (fp - fm) / (2 * h)
}

// Config bounds the iteration.
type Config struct {
	// MinEps is the residual norm at or below which the solve converges.
	MinEps float64 `yaml:"min_eps" json:"min_eps"`
	// MaxIter is the maximum number of Newton iterations.
	MaxIter int `yaml:"max_iter" json:"max_iter"`
	// CriticalCoef is the damping coefficient at which the line search
	// gives up.
	CriticalCoef float64 `yaml:"critical_coef" json:"critical_coef"`
}

const (
	DefaultMinEps       = 1e-5
	DefaultMaxIter      = 100
	DefaultCriticalCoef = 1.0 / (1 << 6)
)

func DefaultConfig() Config {
	return Config{
		MinEps:       DefaultMinEps,
		MaxIter:      DefaultMaxIter,
		CriticalCoef: DefaultCriticalCoef,
	}
}

func (c Config) Validate() error {
	if c.MinEps <= 0 {
		return fmt.Errorf("%w: min eps must be positive, got %g", ErrInvalidConfig, c.MinEps)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("%w: max iter must be positive, got %d", ErrInvalidConfig, c.MaxIter)
	}
	if c.CriticalCoef <= 0 || c.CriticalCoef >= 1 {
		return fmt.Errorf("%w: critical coef must be in (0, 1), got %g", ErrInvalidConfig, c.CriticalCoef)
	}
	return nil
}

// Status is the terminal state of a solve.
type Status int

const (
	StatusConverged Status = iota
	StatusMaxIterExceeded
	StatusStuckNoDirection
	StatusStuckAtLocalOptimum
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusMaxIterExceeded:
		return "max_iter_exceeded"
	case StatusStuckNoDirection:
		return "stuck_no_direction"
	case StatusStuckAtLocalOptimum:
		return "stuck_at_local_optimum"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for st := StatusConverged; st <= StatusStuckAtLocalOptimum; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("newton: unknown status %q", s)
}

// Result reports how a solve ended. Err is nil on convergence and holds the
// soft cause otherwise, wrapped in an *IterationError.
type Result struct {
	Status     Status
	Iterations int
	Eps        float64
	Err        error
}

// Converged reports whether the target residual was reached.
func (r Result) Converged() bool { return r.Status == StatusConverged }
