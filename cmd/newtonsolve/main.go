package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/san-kum/newtonsolve/internal/config"
	"github.com/san-kum/newtonsolve/internal/logging"
	"github.com/san-kum/newtonsolve/internal/newton"
	"github.com/san-kum/newtonsolve/internal/storage"
	"github.com/san-kum/newtonsolve/internal/systems"
	"github.com/san-kum/newtonsolve/internal/viz"
)

var (
	dataDir   string
	verbosity int
	log       = logr.Discard()

	// solver bounds, shared by solve and bench
	minEps       float64
	maxIter      int
	criticalCoef float64

	initial    []float64
	configFile string
	preset     string
	noSave     bool

	// field and path3d
	fieldWidth  int
	fieldHeight int
	fieldMargin float64
	fieldAxes   []int
	pathAxes    []int
	themeName   string
	rotX        float64
	rotY        float64
	svgFile     string

	repeat  int
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "newtonsolve",
		Short:         "damped Newton solver for nonlinear systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbosity, false)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".newtonsolve", "data directory")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log verbosity (repeat for per-iteration progress)")

	solveCmd := &cobra.Command{
		Use:   "solve [system]",
		Short: "solve a system and store its trace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().AddFlagSet(solverFlags())
	solveCmd.Flags().Float64SliceVar(&initial, "x", nil, "initial point, comma separated")
	solveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	solveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	systemsCmd := &cobra.Command{
		Use:   "systems",
		Short: "list built-in systems",
		RunE:  listSystems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file with default settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run and its iterations (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot residual norm and variables per iteration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	fieldCmd := &cobra.Command{
		Use:   "field [run_id]",
		Short: "draw the residual map around a run's path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  fieldPlot,
	}
	fieldCmd.Flags().IntVar(&fieldWidth, "width", config.DefaultFieldWidth, "columns")
	fieldCmd.Flags().IntVar(&fieldHeight, "height", config.DefaultFieldHeight, "rows")
	fieldCmd.Flags().Float64Var(&fieldMargin, "margin", config.DefaultFieldMargin, "padding around the path, as a fraction of its extent")
	fieldCmd.Flags().IntSliceVar(&fieldAxes, "axes", []int{0, 1}, "variable indices for the horizontal and vertical axes")
	fieldCmd.Flags().StringVar(&themeName, "theme", viz.ThemeCyberpunk.Name, "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	fieldCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	fieldCmd.Flags().StringVar(&svgFile, "svg", "", "also write the map as SVG to this file")

	path3dCmd := &cobra.Command{
		Use:   "path3d [run_id]",
		Short: "draw a run's path through three variables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  path3dPlot,
	}
	path3dCmd.Flags().IntVar(&fieldWidth, "width", config.DefaultFieldWidth, "columns")
	path3dCmd.Flags().IntVar(&fieldHeight, "height", config.DefaultFieldHeight, "rows")
	path3dCmd.Flags().IntSliceVar(&pathAxes, "axes", []int{0, 1, 2}, "variable indices to plot")
	path3dCmd.Flags().Float64Var(&rotX, "rot-x", 0.4, "rotation about x in radians")
	path3dCmd.Flags().Float64Var(&rotY, "rot-y", 0.6, "rotation about y in radians")
	path3dCmd.Flags().StringVar(&themeName, "theme", viz.ThemeCyberpunk.Name, "colour theme")
	path3dCmd.Flags().StringVar(&svgFile, "svg", "", "also write the drawing as SVG to this file")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run and trace to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export trace to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	benchCmd := &cobra.Command{
		Use:   "bench [system]",
		Short: "time repeated solves across damping bounds",
		Args:  cobra.ExactArgs(1),
		RunE:  benchSystem,
	}
	benchCmd.Flags().AddFlagSet(solverFlags())
	benchCmd.Flags().IntVar(&repeat, "repeat", 1000, "solves per setting")

	rootCmd.AddCommand(solveCmd, systemsCmd, presetsCmd, initConfigCmd, listCmd, showCmd, plotCmd, fieldCmd, path3dCmd, basinsCommand(), exportJSONCmd, exportCSVCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// solverFlags binds the iteration bounds. Each command gets its own set so
// cobra can parse them independently.
func solverFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("solver", pflag.ContinueOnError)
	fs.Float64Var(&minEps, "min-eps", newton.DefaultMinEps, "residual norm at which the solve converges")
	fs.IntVar(&maxIter, "max-iter", newton.DefaultMaxIter, "iteration limit")
	fs.Float64Var(&criticalCoef, "critical-coef", newton.DefaultCriticalCoef, "smallest damping coefficient tried")
	return fs
}

// resolveConfig applies, in order, defaults, the preset, the config file,
// the system argument and any changed flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.System = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.System, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.System))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.System = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("min-eps") {
		cfg.Solver.MinEps = minEps
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIter = maxIter
	}
	if flags.Changed("critical-coef") {
		cfg.Solver.CriticalCoef = criticalCoef
	}
	if flags.Changed("x") {
		cfg.Initial = initial
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	def, err := systems.NewRegistry().Get(cfg.System)
	if err != nil {
		return err
	}
	x, err := cfg.InitialPoint(def)
	if err != nil {
		return err
	}
	start := append([]float64(nil), x...)

	solver, err := def.NewSolver(cfg.SolverConfig())
	if err != nil {
		return err
	}
	solver.SetLogger(log.WithName("newton").WithValues("system", def.Name))

	var trace newton.Trace
	began := time.Now()
	res, err := solver.Solve(x, &trace)
	if err != nil {
		return err
	}
	elapsed := time.Since(began)

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s (%s)", def.Name, def.Shape())))
	printMetric("status", viz.StatusStyle(res.Status.String()).Render(res.Status.String()))
	printMetric("iterations", fmt.Sprintf("%d", res.Iterations))
	printMetric("eps", fmt.Sprintf("%.6g", res.Eps))
	printMetric("start", formatPoint(start))
	printMetric("point", formatPoint(x))
	if mask := solver.Mask(); mask != nil {
		printMetric("mask", formatMask(mask))
	}
	if res.Err != nil {
		printMetric("reason", res.Err.Error())
	}
	printMetric("time", elapsed.String())
	if eps := trace.Epsilons(); len(eps) > 1 {
		printMetric("log10 eps", viz.SparklineChart(log10All(eps), 40))
	}

	if noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.Run{
		System:    def.Name,
		FuncCount: def.FuncCount,
		Config:    cfg.SolverConfig(),
		Initial:   start,
		Final:     x,
		Result:    res,
		Trace:     &trace,
	})
	if err != nil {
		return err
	}
	log.V(1).Info("run saved", "id", runID, "dir", st.Dir())
	printMetric("run id", runID)
	return nil
}

func listSystems(cmd *cobra.Command, args []string) error {
	registry := systems.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSHAPE\tSTART\tDESCRIPTION")
	for _, name := range registry.List() {
		def, err := registry.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, def.Shape(), formatPoint(def.Initial), def.Description)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := systems.NewRegistry().List()
	if len(args) > 0 {
		names = args
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYSTEM\tPRESET\tSTART\tMAX ITER\tCRIT COEF")
	found := false
	for _, name := range names {
		for _, p := range config.ListPresets(name) {
			cfg := config.GetPreset(name, p)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\n", name, p, formatPoint(cfg.Initial), cfg.Solver.MaxIter, cfg.Solver.CriticalCoef)
			found = true
		}
	}
	if !found {
		fmt.Printf("no presets for: %s\n", strings.Join(names, ", "))
		return nil
	}
	return w.Flush()
}

func benchSystem(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	def, err := systems.NewRegistry().Get(cfg.System)
	if err != nil {
		return err
	}
	if repeat <= 0 {
		return fmt.Errorf("repeat must be positive, got %d", repeat)
	}
	x0, err := cfg.InitialPoint(def)
	if err != nil {
		return err
	}

	coefs := []float64{1.0 / 4, 1.0 / 16, 1.0 / 64, 1.0 / 256}
	if cmd.Flags().Changed("critical-coef") {
		coefs = []float64{cfg.Solver.CriticalCoef}
	}

	fmt.Printf("benchmarking %s (%s), %d solves per setting\n\n", def.Name, def.Shape(), repeat)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CRIT COEF\tSTATUS\tITERS\tEPS\tTIME/SOLVE\tSOLVES/SEC")

	x := make([]float64, def.VarCount)
	for _, coef := range coefs {
		sc := cfg.SolverConfig()
		sc.CriticalCoef = coef
		solver, err := def.NewSolver(sc)
		if err != nil {
			return err
		}

		var res newton.Result
		start := time.Now()
		for i := 0; i < repeat; i++ {
			copy(x, x0)
			if res, err = solver.Solve(x, nil); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%g\t%s\t%d\t%.3g\t%v\t%.0f\n",
			coef, res.Status, res.Iterations, res.Eps,
			elapsed/time.Duration(repeat), float64(repeat)/elapsed.Seconds())
	}
	return w.Flush()
}
