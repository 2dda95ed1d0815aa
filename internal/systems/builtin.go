package systems

import (
	"math"

	"github.com/san-kum/newtonsolve/internal/newton"
)

// Circles intersects two circles of radius 2 centred at (±2, 0). They touch
// only at the origin, where the Jacobian is singular, so convergence is
// linear.
func Circles() Definition {
	return Definition{
		Name:        "circles",
		Description: "two tangent circles (x∓2)²+y²=4",
		VarCount:    2,
		FuncCount:   2,
		Initial:     []float64{4, 1},
		System: newton.Funcs{
			F: func(fn int, x []float64) float64 {
				c := 2.0
				if fn == 1 {
					c = -2
				}
				return (x[0]-c)*(x[0]-c) + x[1]*x[1] - 4
			},
			DF: func(fn, v int, x []float64) float64 {
				if v == 1 {
					return 2 * x[1]
				}
				c := 2.0
				if fn == 1 {
					c = -2
				}
				return 2 * (x[0] - c)
			},
		},
	}
}

// Rosenbrock is the residual form of the Rosenbrock valley,
// (10(x₁-x₀²), 1-x₀), with its root at (1, 1).
func Rosenbrock() Definition {
	return Definition{
		Name:        "rosenbrock",
		Description: "Rosenbrock residuals 10(y-x²), 1-x",
		VarCount:    2,
		FuncCount:   2,
		Initial:     []float64{-1.2, 1},
		System: newton.Funcs{
			F: func(fn int, x []float64) float64 {
				if fn == 0 {
					return 10 * (x[1] - x[0]*x[0])
				}
				return 1 - x[0]
			},
			DF: func(fn, v int, x []float64) float64 {
				switch {
				case fn == 0 && v == 0:
					return -20 * x[0]
				case fn == 0:
					return 10
				case v == 0:
					return -1
				default:
					return 0
				}
			},
		},
	}
}

var threeCircleCenters = [][3]float64{{0, 0, 5}, {3, 0, 8}, {0, 4, 5}}

// ThreeCircles is over-determined: three circles sharing the point (1, 2).
func ThreeCircles() Definition {
	return Definition{
		Name:        "three-circles",
		Description: "three circles through (1, 2)",
		VarCount:    2,
		FuncCount:   3,
		Initial:     []float64{2, 3},
		System: newton.Funcs{
			F: func(fn int, x []float64) float64 {
				c := threeCircleCenters[fn]
				return (x[0]-c[0])*(x[0]-c[0]) + (x[1]-c[1])*(x[1]-c[1]) - c[2]
			},
			DF: func(fn, v int, x []float64) float64 {
				return 2 * (x[v] - threeCircleCenters[fn][v])
			},
		},
	}
}

// SpherePlane is under-determined: the circle where the sphere of radius 3
// meets the plane x+y+z=3.
func SpherePlane() Definition {
	return Definition{
		Name:        "sphere-plane",
		Description: "sphere x²+y²+z²=9 cut by x+y+z=3",
		VarCount:    3,
		FuncCount:   2,
		Initial:     []float64{1, 1, 2},
		System: newton.Funcs{
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
		},
	}
}

func UnitCircle() Definition {
	return Definition{
		Name:        "unit-circle",
		Description: "single equation x²+y²=4 in two unknowns",
		VarCount:    2,
		FuncCount:   1,
		Initial:     []float64{3, 0.5},
		System: newton.Funcs{
			F:  func(_ int, x []float64) float64 { return x[0]*x[0] + x[1]*x[1] - 4 },
			DF: func(_, v int, x []float64) float64 { return 2 * x[v] },
		},
	}
}

// Constant has a zero Jacobian everywhere and never yields a direction.
func Constant() Definition {
	return Definition{
		Name:        "constant",
		Description: "F ≡ 1 with zero partials",
		VarCount:    2,
		FuncCount:   2,
		Initial:     []float64{1, 2},
		System: newton.Funcs{
			F:  func(int, []float64) float64 { return 1 },
			DF: func(int, int, []float64) float64 { return 0 },
		},
	}
}

// Trig has no analytic partials; they are taken by central differences.
func Trig() Definition {
	return Definition{
		Name:        "trig",
		Description: "x=cos(y)/2, y=sin(x)/2 with numeric partials",
		VarCount:    2,
		FuncCount:   2,
		Initial:     []float64{1, 1},
		System: newton.CentralDifference{
			F: func(fn int, x []float64) float64 {
				if fn == 0 {
					return x[0] - 0.5*math.Cos(x[1])
				}
				return x[1] - 0.5*math.Sin(x[0])
			},
		},
	}
}

// Arctan overshoots from |x| > 1.39 without damping.
func Arctan() Definition {
	return Definition{
		Name:        "arctan",
		Description: "atan(x)=0, full Newton steps diverge from x=2",
		VarCount:    1,
		FuncCount:   1,
		Initial:     []float64{2},
		System: newton.Funcs{
			F:  func(_ int, x []float64) float64 { return math.Atan(x[0]) },
			DF: func(_, _ int, x []float64) float64 { return 1 / (1 + x[0]*x[0]) },
		},
	}
}

// Parabola has no root; near the origin no damped step improves.
func Parabola() Definition {
	return Definition{
		Name:        "parabola",
		Description: "x²+1=0, no real root",
		VarCount:    1,
		FuncCount:   1,
		Initial:     []float64{0.001},
		System: newton.Funcs{
			F:  func(_ int, x []float64) float64 { return x[0]*x[0] + 1 },
			DF: func(_, _ int, x []float64) float64 { return 2 * x[0] },
		},
	}
}
