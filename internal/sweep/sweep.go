// Package sweep solves a system from every point of a 2-D grid of starting
// points, mapping which root each start converges to.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/newtonsolve/internal/newton"
	"github.com/san-kum/newtonsolve/internal/systems"
)

var (
	// ErrInvalidGrid indicates a grid with no cells, a degenerate window or
	// bad axes.
	ErrInvalidGrid = errors.New("sweep: invalid grid")

	// ErrCanceled indicates the sweep was interrupted by its context.
	ErrCanceled = errors.New("sweep: canceled by context")
)

type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Config describes the grid. Starts are cell centres; row 0 is at YMax.
type Config struct {
	Axes    [2]int
	Bounds  Bounds
	Cols    int
	Rows    int
	Workers int
	Solver  newton.Config
}

// Cell is the outcome of one solve.
type Cell struct {
	Start      [2]float64
	Status     newton.Status
	Iterations int
	Eps        float64
	Final      []float64
}

type Grid struct {
	Bounds Bounds
	Axes   [2]int
	Cols   int
	Rows   int
	Cells  []Cell
}

func (g *Grid) At(col, row int) Cell { return g.Cells[row*g.Cols+col] }

// Counts tallies cells by status.
func (g *Grid) Counts() map[newton.Status]int {
	out := make(map[newton.Status]int)
	for _, c := range g.Cells {
		out[c.Status]++
	}
	return out
}

// Roots groups the final points of converged cells. Two points belong to
// the same root when no component differs by more than tol. It returns the
// root index per cell, -1 for cells that did not converge, and the first
// point seen for each root.
func (g *Grid) Roots(tol float64) ([]int, [][]float64) {
	idx := make([]int, len(g.Cells))
	var roots [][]float64
	for i, c := range g.Cells {
		idx[i] = -1
		if c.Status != newton.StatusConverged {
			continue
		}
		for r, root := range roots {
			if near(root, c.Final, tol) {
				idx[i] = r
				break
			}
		}
		if idx[i] < 0 {
			idx[i] = len(roots)
			roots = append(roots, c.Final)
		}
	}
	return idx, roots
}

func near(a, b []float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func (c Config) validate(varCount int) error {
	if c.Cols <= 0 || c.Rows <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidGrid, c.Cols, c.Rows)
	}
	for _, a := range c.Axes {
		if a < 0 || a >= varCount {
			return fmt.Errorf("%w: axis %d out of range for %d variables", ErrInvalidGrid, a, varCount)
		}
	}
	if c.Axes[0] == c.Axes[1] {
		return fmt.Errorf("%w: both axes are variable %d", ErrInvalidGrid, c.Axes[0])
	}
	b := c.Bounds
	if !(b.XMax > b.XMin) || !(b.YMax > b.YMin) {
		return fmt.Errorf("%w: degenerate window %+v", ErrInvalidGrid, b)
	}
	return nil
}

// Run solves def from every cell centre, holding the variables off the two
// axes at base. Each worker owns its own solver; rows are distributed over
// at most cfg.Workers goroutines (GOMAXPROCS when zero).
func Run(ctx context.Context, def systems.Definition, base []float64, cfg Config) (*Grid, error) {
	if len(base) != def.VarCount {
		return nil, fmt.Errorf("%w: base point has %d components, want %d", newton.ErrDimensionMismatch, len(base), def.VarCount)
	}
	if err := cfg.validate(def.VarCount); err != nil {
		return nil, err
	}
	if _, err := def.NewSolver(cfg.Solver); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	grid := &Grid{
		Bounds: cfg.Bounds,
		Axes:   cfg.Axes,
		Cols:   cfg.Cols,
		Rows:   cfg.Rows,
		Cells:  make([]Cell, cfg.Cols*cfg.Rows),
	}
	dx := (cfg.Bounds.XMax - cfg.Bounds.XMin) / float64(cfg.Cols)
	dy := (cfg.Bounds.YMax - cfg.Bounds.YMin) / float64(cfg.Rows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for row := 0; row < cfg.Rows; row++ {
		row := row
		g.Go(func() error {
			solver, err := def.NewSolver(cfg.Solver)
			if err != nil {
				return err
			}
			x := make([]float64, len(base))
			y := cfg.Bounds.YMax - (float64(row)+0.5)*dy
			for col := 0; col < cfg.Cols; col++ {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("%w: %v", ErrCanceled, err)
				}
				copy(x, base)
				x[cfg.Axes[0]] = cfg.Bounds.XMin + (float64(col)+0.5)*dx
				x[cfg.Axes[1]] = y
				start := [2]float64{x[cfg.Axes[0]], y}

				res, err := solver.Solve(x, nil)
				if err != nil {
					return err
				}
				grid.Cells[row*cfg.Cols+col] = Cell{
					Start:      start,
					Status:     res.Status,
					Iterations: res.Iterations,
					Eps:        res.Eps,
					Final:      append([]float64(nil), x...),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}
