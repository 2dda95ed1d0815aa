package newton

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/newtonsolve/internal/logging"
	"github.com/san-kum/newtonsolve/internal/profile"
)

// twoCircles intersects (x-2)²+y²=4 and (x+2)²+y²=4, tangent at the origin.
var twoCircles = Funcs{
	F: func(fn int, x []float64) float64 {
		if fn == 0 {
			return (x[0]-2)*(x[0]-2) + x[1]*x[1] - 4
		}
		return (x[0]+2)*(x[0]+2) + x[1]*x[1] - 4
	},
	DF: func(fn, v int, x []float64) float64 {
		if v == 1 {
			return 2 * x[1]
		}
		if fn == 0 {
			return 2 * (x[0] - 2)
		}
		return 2 * (x[0] + 2)
	},
}

// threeCircles is over-determined: all three circles pass through (1, 2).
var threeCircles = func() Funcs {
	centers := [][3]float64{{0, 0, 5}, {3, 0, 8}, {0, 4, 5}}
	return Funcs{
		F: func(fn int, x []float64) float64 {
			c := centers[fn]
			return (x[0]-c[0])*(x[0]-c[0]) + (x[1]-c[1])*(x[1]-c[1]) - c[2]
		},
		DF: func(fn, v int, x []float64) float64 {
			return 2 * (x[v] - centers[fn][v])
		},
	}
}()

// spherePlane is under-determined: x²+y²+z²=9 and x+y+z=3.
var spherePlane = Funcs{
	F: func(fn int, x []float64) float64 {
		if fn == 0 {
			return x[0]*x[0] + x[1]*x[1] + x[2]*x[2] - 9
		}
		return x[0] + x[1] + x[2] - 3
	},
	DF: func(fn, v int, x []float64) float64 {
		if fn == 0 {
			return 2 * x[v]
		}
		return 1
	},
}

var arctan = Funcs{
	F:  func(_ int, x []float64) float64 { return math.Atan(x[0]) },
	DF: func(_, _ int, x []float64) float64 { return 1 / (1 + x[0]*x[0]) },
}

// parabola x²+1 has no root and a minimum of 1 at the origin.
var parabola = Funcs{
	F:  func(_ int, x []float64) float64 { return x[0]*x[0] + 1 },
	DF: func(_, _ int, x []float64) float64 { return 2 * x[0] },
}

// terrace is a staircase with a far too shallow slope estimate. From -64
// the full step lands on 0; from 0 the step is 48 and only the 1/64 damped
// trial lands on the lower stair.
var terrace = Funcs{
	F: func(_ int, x []float64) float64 {
		switch {
		case x[0] <= -63:
			return 1
		case x[0] <= 0:
			return 0.75
		case x[0] <= 1:
			return 0.5
		default:
			return 2
		}
	},
	DF: func(int, int, []float64) float64 { return -1.0 / 64 },
}

var constant = Funcs{
	F:  func(int, []float64) float64 { return 1 },
	DF: func(int, int, []float64) float64 { return 0 },
}

func newSolver(vars, funcs int, sys System, cfg Config) *Solver {
	s, err := NewSolver(vars, funcs, sys, cfg)
	Expect(err).NotTo(HaveOccurred())
	s.SetLogger(logging.NewForWriter(GinkgoWriter, 1))
	return s
}

func norm(sys System, funcs int, x []float64) float64 {
	sum := 0.0
	for fn := 0; fn < funcs; fn++ {
		v := sys.Evaluate(fn, x)
		sum += v * v
	}
	return math.Sqrt(sum)
}

// plainNewton is an unmasked damped Newton iteration on gonum's dense
// solver, used as a step-by-step reference for square systems.
func plainNewton(sys System, n int, x0 []float64, cfg Config) [][]float64 {
	x := append([]float64(nil), x0...)
	eps := norm(sys, n, x)
	var path [][]float64
	for it := 1; it <= cfg.MaxIter && eps > cfg.MinEps; it++ {
		j := mat.NewDense(n, n, nil)
		f := mat.NewVecDense(n, nil)
		for fn := 0; fn < n; fn++ {
			f.SetVec(fn, -sys.Evaluate(fn, x))
			for v := 0; v < n; v++ {
				j.Set(fn, v, sys.Partial(fn, v, x))
			}
		}
		var dx mat.VecDense
		if err := dx.SolveVec(j, f); err != nil {
			return path
		}
		coef, newEps := 2.0, eps
		cand := make([]float64, n)
		for !(newEps < eps) && coef > cfg.CriticalCoef {
			coef /= 2
			for i := range cand {
				cand[i] = x[i] + coef*dx.AtVec(i)
			}
			newEps = norm(sys, n, cand)
		}
		if coef <= cfg.CriticalCoef {
			return path
		}
		x, eps = cand, newEps
		path = append(path, append([]float64(nil), x...))
	}
	return path
}

var _ = Describe("Solver", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = DefaultConfig()
	})

	Describe("NewSolver", func() {
		It("rejects empty systems", func() {
			_, err := NewSolver(0, 2, twoCircles, cfg)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("rejects a nil system", func() {
			_, err := NewSolver(2, 2, nil, cfg)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("rejects invalid bounds", func() {
			cfg.CriticalCoef = 0
			_, err := NewSolver(2, 2, twoCircles, cfg)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})
	})

	Describe("Solve input", func() {
		It("fails hard on a point of the wrong length", func() {
			s := newSolver(2, 2, twoCircles, cfg)
			_, err := s.Solve([]float64{1}, nil)
			Expect(err).To(MatchError(ErrDimensionMismatch))
		})

		It("returns immediately when already converged", func() {
			s := newSolver(2, 2, twoCircles, cfg)
			x := []float64{0, 0}
			var trace Trace
			res, err := s.Solve(x, &trace)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusConverged))
			Expect(res.Iterations).To(BeZero())
			Expect(res.Err).To(BeNil())
			Expect(trace.Len()).To(BeZero())
		})
	})

	Context("with two circles from (4, 1)", func() {
		var (
			s     *Solver
			x     []float64
			trace Trace
			res   Result
		)

		BeforeEach(func() {
			s = newSolver(2, 2, twoCircles, cfg)
			x = []float64{4, 1}
			var err error
			res, err = s.Solve(x, &trace)
			Expect(err).NotTo(HaveOccurred())
		})

		It("converges below MinEps in fewer than 100 iterations", func() {
			Expect(res.Status).To(Equal(StatusConverged))
			Expect(res.Converged()).To(BeTrue())
			Expect(res.Eps).To(BeNumerically("<=", cfg.MinEps))
			Expect(res.Iterations).To(BeNumerically("<", 100))
			Expect(res.Err).To(BeNil())
		})

		It("writes a point satisfying both circles back to the caller", func() {
			Expect(math.Abs(twoCircles.Evaluate(0, x))).To(BeNumerically("<", 1e-5))
			Expect(math.Abs(twoCircles.Evaluate(1, x))).To(BeNumerically("<", 1e-5))
			Expect(norm(twoCircles, 2, x)).To(BeNumerically("~", res.Eps, 1e-15))
		})

		It("records one trace entry per iteration with decreasing eps", func() {
			Expect(trace.Len()).To(Equal(res.Iterations))
			prev := math.Inf(1)
			for i, r := range trace.Records() {
				Expect(r.Iteration).To(Equal(i + 1))
				Expect(r.EpsAfter).To(BeNumerically("<", r.EpsBefore))
				Expect(r.EpsBefore).To(BeNumerically("<", prev))
				prev = r.EpsBefore
			}
			last, ok := trace.Last()
			Expect(ok).To(BeTrue())
			Expect(last.After).To(Equal(x))
		})

		It("damps the overshooting first step", func() {
			first := trace.Records()[0]
			Expect(first.Coef).To(BeNumerically("<", 1))
			Expect(first.EpsAfter).To(BeNumerically("<", first.EpsBefore))
			for i := range first.After {
				Expect(first.After[i]).To(BeNumerically("~", first.Before[i]+first.Coef*first.Step[i], 1e-12))
			}
		})

		It("matches an unmasked Newton reference step for step", func() {
			Expect(s.Mask()).To(BeNil())
			path := plainNewton(twoCircles, 2, []float64{4, 1}, cfg)
			Expect(path).To(HaveLen(trace.Len()))
			for i, r := range trace.Records() {
				for k := range r.After {
					Expect(r.After[k]).To(BeNumerically("~", path[i][k], 1e-9))
				}
			}
		})

		It("resets the trace on the next solve", func() {
			y := []float64{0, 0}
			_, err := s.Solve(y, &trace)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Len()).To(BeZero())
		})
	})

	It("stops at MaxIter with the best point so far", func() {
		cfg.MaxIter = 2
		s := newSolver(2, 2, twoCircles, cfg)
		x := []float64{4, 1}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusMaxIterExceeded))
		Expect(res.Iterations).To(Equal(2))
		Expect(res.Err).To(MatchError(ErrMaxIterExceeded))
		Expect(trace.Len()).To(Equal(2))
		last, _ := trace.Last()
		Expect(x).To(Equal(last.After))
		Expect(res.Eps).To(Equal(last.EpsAfter))
	})

	It("halves the step and still converges for arctan", func() {
		s := newSolver(1, 1, arctan, cfg)
		x := []float64{2}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusConverged))
		Expect(trace.Records()[0].Coef).To(Equal(0.5))
		Expect(math.Abs(x[0])).To(BeNumerically("<", 1e-5))
	})

	It("reports a local optimum when no damped step improves", func() {
		s := newSolver(1, 1, parabola, cfg)
		x := []float64{0.001}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusStuckAtLocalOptimum))
		Expect(res.Iterations).To(BeZero())
		Expect(errors.Is(res.Err, ErrNoImprovingStep)).To(BeTrue())
		Expect(x).To(Equal([]float64{0.001}))

		Expect(trace.Len()).To(Equal(1))
		r := trace.Records()[0]
		Expect(r.Before).To(Equal(r.After))
		Expect(r.Coef).To(BeNumerically("<=", cfg.CriticalCoef))
		Expect(r.EpsAfter).To(Equal(r.EpsBefore))
		Expect(r.TrialEps).To(BeNumerically(">", r.EpsBefore))
	})

	It("stops at the critical coefficient even when that trial improves", func() {
		s := newSolver(1, 1, terrace, cfg)
		x := []float64{0}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusStuckAtLocalOptimum))
		Expect(res.Iterations).To(BeZero())
		Expect(res.Eps).To(Equal(0.75))
		Expect(errors.Is(res.Err, ErrNoImprovingStep)).To(BeTrue())
		Expect(x).To(Equal([]float64{0}))

		Expect(trace.Len()).To(Equal(1))
		r := trace.Records()[0]
		Expect(r.Coef).To(Equal(cfg.CriticalCoef))
		Expect(r.After).To(Equal([]float64{0}))
		Expect(r.EpsAfter).To(Equal(0.75))
		Expect(r.TrialEps).To(Equal(0.5))
	})

	It("leaves the point at the last accepted iterate", func() {
		s := newSolver(1, 1, terrace, cfg)
		x := []float64{-64}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusStuckAtLocalOptimum))
		Expect(res.Iterations).To(Equal(1))
		Expect(x).To(Equal([]float64{0}))

		var iterErr *IterationError
		Expect(errors.As(res.Err, &iterErr)).To(BeTrue())
		Expect(iterErr.Iteration).To(Equal(2))
		Expect(iterErr.Point).To(Equal([]float64{0}))

		Expect(trace.Len()).To(Equal(2))
		Expect(trace.Records()[0].Coef).To(Equal(1.0))
		Expect(trace.Records()[0].After).To(Equal([]float64{0}))
		Expect(trace.Records()[1].After).To(Equal([]float64{0}))
	})

	It("reports no direction for an identically zero Jacobian", func() {
		s := newSolver(2, 2, constant, cfg)
		x := []float64{1, 2}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusStuckNoDirection))
		Expect(errors.Is(res.Err, profile.ErrNotFactorable)).To(BeTrue())

		var iterErr *IterationError
		Expect(errors.As(res.Err, &iterErr)).To(BeTrue())
		Expect(iterErr.Iteration).To(Equal(1))
		Expect(iterErr.Point).To(Equal([]float64{1, 2}))

		Expect(x).To(Equal([]float64{1, 2}))
		Expect(trace.Len()).To(Equal(1))
		r := trace.Records()[0]
		Expect(r.Before).To(Equal(r.After))
		Expect(r.Step).To(Equal([]float64{0, 0}))
		Expect(r.EpsAfter).To(Equal(r.EpsBefore))
	})

	It("reports no direction when the step is not finite", func() {
		inf := Funcs{
			F:  func(_ int, x []float64) float64 { return x[0] - 1 },
			DF: func(int, int, []float64) float64 { return math.SmallestNonzeroFloat64 },
		}
		s := newSolver(1, 1, inf, cfg)
		x := []float64{1e10}
		var trace Trace
		res, err := s.Solve(x, &trace)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusStuckNoDirection))
		Expect(errors.Is(res.Err, ErrNumericDivergence)).To(BeTrue())
		Expect(x).To(Equal([]float64{1e10}))
		Expect(trace.Len()).To(Equal(1))
		Expect(math.IsInf(trace.Records()[0].Step[0], 0)).To(BeTrue())
	})

	It("never treats a NaN residual as converged", func() {
		nan := Funcs{
			F:  func(int, []float64) float64 { return math.NaN() },
			DF: func(int, int, []float64) float64 { return 1 },
		}
		s := newSolver(1, 1, nan, cfg)
		res, err := s.Solve([]float64{0}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusStuckNoDirection))
		Expect(errors.Is(res.Err, ErrNumericDivergence)).To(BeTrue())
		Expect(res.Iterations).To(BeZero())
	})

	Context("with more functions than variables", func() {
		It("drops the least-violated equations and converges", func() {
			s := newSolver(2, 3, threeCircles, cfg)
			x := []float64{1.3, 2.4}
			res, err := s.Solve(x, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusConverged))
			Expect(x[0]).To(BeNumerically("~", 1, 1e-5))
			Expect(x[1]).To(BeNumerically("~", 2, 1e-5))
		})

		It("masks exactly the smallest residual on the first iteration", func() {
			cfg.MaxIter = 1
			s := newSolver(2, 3, threeCircles, cfg)
			x := []float64{1.3, 2.4}
			// residuals 2.45, 0.65, -0.75: the second is least violated
			_, err := s.Solve(x, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Mask()).To(Equal([]bool{true, false, true}))
		})
	})

	Context("with more variables than functions", func() {
		It("holds the least-influential variables fixed and converges", func() {
			s := newSolver(3, 2, spherePlane, cfg)
			x := []float64{1, 1, 2}
			var trace Trace
			res, err := s.Solve(x, &trace)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusConverged))
			Expect(norm(spherePlane, 2, x)).To(BeNumerically("<=", cfg.MinEps))

			// first iteration: partial maxima 2, 2, 4 so variable 0 is fixed
			first := trace.Records()[0]
			Expect(first.Step[0]).To(BeZero())
			Expect(first.After[0]).To(Equal(first.Before[0]))
		})

		It("keeps exactly funcCount variables selected", func() {
			cfg.MaxIter = 1
			s := newSolver(3, 2, spherePlane, cfg)
			_, err := s.Solve([]float64{1, 1, 2}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Mask()).To(Equal([]bool{false, true, true}))
		})
	})

	It("converges with numeric partials", func() {
		sys := CentralDifference{F: func(fn int, x []float64) float64 {
			if fn == 0 {
				return x[0] - 0.5*math.Cos(x[1])
			}
			return x[1] - 0.5*math.Sin(x[0])
		}}
		s := newSolver(2, 2, sys, cfg)
		x := []float64{1, 1}
		res, err := s.Solve(x, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(StatusConverged))
		Expect(x[0]).To(BeNumerically("~", 0.486405, 1e-5))
		Expect(x[1]).To(BeNumerically("~", 0.233726, 1e-5))
	})
})
