package systems

import (
	"fmt"
	"sort"

	"github.com/san-kum/newtonsolve/internal/newton"
)

// Definition describes a named system of equations and a starting point
// from which it is usually solved.
type Definition struct {
	Name        string
	Description string
	VarCount    int
	FuncCount   int
	System      newton.System
	Initial     []float64
}

// Shape reports the system as "funcs×vars".
func (d Definition) Shape() string {
	return fmt.Sprintf("%d×%d", d.FuncCount, d.VarCount)
}

// NewSolver builds a solver sized for the definition.
func (d Definition) NewSolver(cfg newton.Config) (*newton.Solver, error) {
	return newton.NewSolver(d.VarCount, d.FuncCount, d.System, cfg)
}

// Start returns a fresh copy of the initial point.
func (d Definition) Start() []float64 {
	x := make([]float64, len(d.Initial))
	copy(x, d.Initial)
	return x
}

type Registry struct {
	systems map[string]func() Definition
}

func NewRegistry() *Registry {
	r := &Registry{
		systems: make(map[string]func() Definition),
	}

	r.systems["circles"] = Circles
	r.systems["rosenbrock"] = Rosenbrock
	r.systems["three-circles"] = ThreeCircles
	r.systems["sphere-plane"] = SpherePlane
	r.systems["unit-circle"] = UnitCircle
	r.systems["constant"] = Constant
	r.systems["trig"] = Trig
	r.systems["arctan"] = Arctan
	r.systems["parabola"] = Parabola

	return r
}

// Register adds or replaces a named system.
func (r *Registry) Register(name string, fn func() Definition) {
	r.systems[name] = fn
}

func (r *Registry) Get(name string) (Definition, error) {
	fn, ok := r.systems[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown system: %s", name)
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.systems))
	for name := range r.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
