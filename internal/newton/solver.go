package newton

import (
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/san-kum/newtonsolve/internal/profile"
)

// Solver runs the damped Newton iteration for one system shape. All
// buffers are allocated once in NewSolver and reused by every Solve.
type Solver struct {
	sys       System
	cfg       Config
	log       logr.Logger
	varCount  int
	funcCount int
	minSize   int
	kind      maskKind

	x     []float64
	trial []float64
	dx    []float64
	// dxTrim holds the reduced step when variables are masked out
	dxTrim []float64
	fx     []float64
	rhs    []float64

	scores []float64
	rank   []ranked
	mask   []bool

	// full is the unmasked funcCount×varCount Jacobian, only filled when
	// variables are ranked
	full *profile.Dense
	jac  *profile.Dense
	prof profile.Matrix
}

// NewSolver prepares a solver for varCount unknowns and funcCount
// equations.
func NewSolver(varCount, funcCount int, sys System, cfg Config) (*Solver, error) {
	if varCount <= 0 || funcCount <= 0 {
		return nil, fmt.Errorf("%w: need at least one variable and one function, got %d and %d", ErrInvalidConfig, varCount, funcCount)
	}
	if sys == nil {
		return nil, fmt.Errorf("%w: nil system", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	minSize := min(varCount, funcCount)
	s := &Solver{
		sys:       sys,
		cfg:       cfg,
		log:       logr.Discard(),
		varCount:  varCount,
		funcCount: funcCount,
		minSize:   minSize,
		x:         make([]float64, varCount),
		trial:     make([]float64, varCount),
		dx:        make([]float64, varCount),
		fx:        make([]float64, funcCount),
		rhs:       make([]float64, minSize),
		jac:       profile.NewDense(minSize, minSize),
	}

	switch {
	case varCount > funcCount:
		s.kind = maskMoreVars
		s.dxTrim = make([]float64, minSize)
		s.full = profile.NewDense(funcCount, varCount)
	case funcCount > varCount:
		s.kind = maskMoreFuncs
	}
	if s.kind != maskNone {
		n := max(varCount, funcCount)
		s.scores = make([]float64, n)
		s.rank = make([]ranked, n)
		s.mask = make([]bool, n)
	}
	return s, nil
}

// SetLogger routes iteration progress (V(1)) and outcomes to l.
func (s *Solver) SetLogger(l logr.Logger) { s.log = l }

func (s *Solver) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func (s *Solver) Config() Config { return s.cfg }
func (s *Solver) VarCount() int  { return s.varCount }
func (s *Solver) FuncCount() int { return s.funcCount }

// Mask returns a copy of the selection used by the last iteration, or nil
// for square systems. Indices refer to functions when there are more
// functions than variables and to variables otherwise.
func (s *Solver) Mask() []bool {
	if s.mask == nil {
		return nil
	}
	out := make([]bool, len(s.mask))
	copy(out, s.mask)
	return out
}

// Solve iterates from x and overwrites it with the best point reached. A
// non-nil trace is reset and receives one record per iteration. The error
// is non-nil only for malformed input; every other outcome is in Result.
func (s *Solver) Solve(x []float64, trace *Trace) (Result, error) {
	if len(x) != s.varCount {
		return Result{}, fmt.Errorf("%w: point has %d components, want %d", ErrDimensionMismatch, len(x), s.varCount)
	}
	if trace != nil {
		trace.Reset()
	}

	copy(s.x, x)
	defer copy(x, s.x)

	eps := s.residualNorm(s.x)
	s.log.V(1).Info("starting solve", "vars", s.varCount, "funcs", s.funcCount, "eps", eps)

	// a NaN residual never counts as converged
	it := 1
	for ; it <= s.cfg.MaxIter && !(eps <= s.cfg.MinEps); it++ {
		s.evaluate()
		s.computeMask()
		s.assemble()

		if err := s.direction(); err != nil {
			clear(s.dx)
			s.record(trace, it, s.x, s.x, eps, eps, eps, 0)
			return s.finish(StatusStuckNoDirection, it, it-1, eps, err), nil
		}
		if !finite(s.dx) {
			s.record(trace, it, s.x, s.x, eps, eps, eps, 0)
			return s.finish(StatusStuckNoDirection, it, it-1, eps, ErrNumericDivergence), nil
		}

		// reaching the critical coefficient ends the solve even when the
		// trial there improves
		coef, newEps := s.damp(eps)
		if coef <= s.cfg.CriticalCoef {
			s.record(trace, it, s.x, s.x, eps, eps, newEps, coef)
			return s.finish(StatusStuckAtLocalOptimum, it, it-1, eps, ErrNoImprovingStep), nil
		}

		s.record(trace, it, s.x, s.trial, eps, newEps, newEps, coef)
		copy(s.x, s.trial)
		eps = newEps

		s.log.V(1).Info("iteration", "iteration", it, "eps", eps, "coef", coef, "point", s.x)
	}

	if !(eps <= s.cfg.MinEps) {
		return s.finish(StatusMaxIterExceeded, it-1, it-1, eps, ErrMaxIterExceeded), nil
	}
	return s.finish(StatusConverged, it-1, it-1, eps, nil), nil
}

func (s *Solver) finish(status Status, at, iterations int, eps float64, cause error) Result {
	res := Result{Status: status, Iterations: iterations, Eps: eps}
	if cause != nil {
		res.Err = &IterationError{Iteration: at, Point: clonePoint(s.x), Err: cause}
	}
	s.log.Info("solve finished", "status", status.String(), "iterations", iterations, "eps", eps)
	return res
}

// evaluate computes every residual at s.x, and the full Jacobian when
// variables are about to be ranked.
func (s *Solver) evaluate() {
	for fn := range s.fx {
		s.fx[fn] = s.sys.Evaluate(fn, s.x)
	}
	if s.kind == maskMoreVars {
		for fn := 0; fn < s.funcCount; fn++ {
			for v := 0; v < s.varCount; v++ {
				s.full.Set(fn, v, s.sys.Partial(fn, v, s.x))
			}
		}
	}
}

// assemble fills the reduced Jacobian and the right-hand side -F over the
// selected rows and columns.
func (s *Solver) assemble() {
	switch s.kind {
	case maskNone:
		for fn := 0; fn < s.funcCount; fn++ {
			for v := 0; v < s.varCount; v++ {
				s.jac.Set(fn, v, s.sys.Partial(fn, v, s.x))
			}
			s.rhs[fn] = -s.fx[fn]
		}

	case maskMoreVars:
		for fn := 0; fn < s.funcCount; fn++ {
			col := 0
			for v := 0; v < s.varCount; v++ {
				if s.mask[v] {
					s.jac.Set(fn, col, s.full.At(fn, v))
					col++
				}
			}
			s.rhs[fn] = -s.fx[fn]
		}

	case maskMoreFuncs:
		row := 0
		for fn := 0; fn < s.funcCount; fn++ {
			if !s.mask[fn] {
				continue
			}
			for v := 0; v < s.varCount; v++ {
				s.jac.Set(row, v, s.sys.Partial(fn, v, s.x))
			}
			s.rhs[row] = -s.fx[fn]
			row++
		}
	}
}

// direction factors the reduced Jacobian and writes the full-length Newton
// step into s.dx.
func (s *Solver) direction() error {
	if err := s.prof.Build(s.jac); err != nil {
		return err
	}
	if err := s.prof.Factor(); err != nil {
		return err
	}

	if s.kind != maskMoreVars {
		return profile.Solve(&s.prof, s.rhs, s.dx)
	}

	if err := profile.Solve(&s.prof, s.rhs, s.dxTrim); err != nil {
		return err
	}
	k := 0
	for v := range s.dx {
		if s.mask[v] {
			s.dx[v] = s.dxTrim[k]
			k++
		} else {
			s.dx[v] = 0
		}
	}
	return nil
}

// damp halves the step coefficient until the residual norm drops below
// eps or the coefficient reaches the critical bound. The last trial point
// is left in s.trial. A returned coef above the bound implies newEps < eps.
func (s *Solver) damp(eps float64) (coef, newEps float64) {
	coef, newEps = 2, eps
	for !(newEps < eps) && coef > s.cfg.CriticalCoef {
		coef /= 2
		for i := range s.trial {
			s.trial[i] = s.x[i] + coef*s.dx[i]
		}
		newEps = s.residualNorm(s.trial)
	}
	return coef, newEps
}

// residualNorm is ‖F(x)‖₂ over all functions, masked or not.
func (s *Solver) residualNorm(x []float64) float64 {
	sum := 0.0
	for fn := 0; fn < s.funcCount; fn++ {
		v := s.sys.Evaluate(fn, x)
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s *Solver) record(trace *Trace, it int, before, after []float64, epsBefore, epsAfter, trialEps, coef float64) {
	if trace == nil {
		return
	}
	trace.Append(Record{
		Iteration: it,
		Before:    before,
		After:     after,
		Step:      s.dx,
		EpsBefore: epsBefore,
		EpsAfter:  epsAfter,
		TrialEps:  trialEps,
		Coef:      coef,
	})
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return false
		}
	}
	return true
}
