package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/newtonsolve/internal/config"
	"github.com/san-kum/newtonsolve/internal/sweep"
	"github.com/san-kum/newtonsolve/internal/systems"
	"github.com/san-kum/newtonsolve/internal/viz"
)

var (
	basinAxes   []int
	basinWindow []float64
	workers     int
	rootTol     float64
)

// defaultBasinSpan is the half-width of the window around the initial
// point when --window is not given.
const defaultBasinSpan = 2.0

func basinsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "basins [system]",
		Short: "map which root each start in a window converges to",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBasins,
	}
	cmd.Flags().AddFlagSet(solverFlags())
	cmd.Flags().Float64SliceVar(&initial, "x", nil, "base point for the variables off the axes")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&fieldWidth, "width", config.DefaultFieldWidth, "columns")
	cmd.Flags().IntVar(&fieldHeight, "height", config.DefaultFieldHeight, "rows")
	cmd.Flags().IntSliceVar(&basinAxes, "axes", []int{0, 1}, "variable indices for the horizontal and vertical axes")
	cmd.Flags().Float64SliceVar(&basinWindow, "window", nil, "xmin,xmax,ymin,ymax (default base point ±2)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel solves (default GOMAXPROCS)")
	cmd.Flags().Float64Var(&rootTol, "tol", 1e-4, "distance under which two final points are the same root")
	cmd.Flags().StringVar(&themeName, "theme", viz.ThemeCyberpunk.Name, "colour theme")
	return cmd
}

func runBasins(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	def, err := systems.NewRegistry().Get(cfg.System)
	if err != nil {
		return err
	}
	base, err := cfg.InitialPoint(def)
	if err != nil {
		return err
	}
	if len(basinAxes) != 2 {
		return fmt.Errorf("--axes takes two indices, got %v", basinAxes)
	}
	axes := [2]int{basinAxes[0], basinAxes[1]}
	bounds, err := basinBounds(basinWindow, base, axes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	began := time.Now()
	grid, err := sweep.Run(ctx, def, base, sweep.Config{
		Axes:    axes,
		Bounds:  bounds,
		Cols:    fieldWidth,
		Rows:    fieldHeight,
		Workers: workers,
		Solver:  cfg.SolverConfig(),
	})
	if errors.Is(err, sweep.ErrCanceled) {
		fmt.Fprintln(os.Stderr, "interrupted")
		return nil
	}
	if err != nil {
		return err
	}
	log.V(1).Info("sweep finished", "system", def.Name, "cells", len(grid.Cells), "elapsed", time.Since(began))

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s (%s)  basins from %s", def.Name, def.Shape(), formatPoint(base))))
	return viz.RenderBasins(os.Stdout, grid, rootTol, viz.GetTheme(themeName))
}

// basinBounds reads --window, falling back to a square around base.
func basinBounds(window, base []float64, axes [2]int) (sweep.Bounds, error) {
	switch len(window) {
	case 4:
		return sweep.Bounds{XMin: window[0], XMax: window[1], YMin: window[2], YMax: window[3]}, nil
	case 0:
	default:
		return sweep.Bounds{}, fmt.Errorf("--window takes four values, got %v", window)
	}
	for _, a := range axes {
		if a < 0 || a >= len(base) {
			return sweep.Bounds{}, fmt.Errorf("axis %d out of range for %d variables", a, len(base))
		}
	}
	x, y := base[axes[0]], base[axes[1]]
	return sweep.Bounds{
		XMin: x - defaultBasinSpan, XMax: x + defaultBasinSpan,
		YMin: y - defaultBasinSpan, YMax: y + defaultBasinSpan,
	}, nil
}
