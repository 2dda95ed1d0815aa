package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/newtonsolve/internal/config"
	"github.com/san-kum/newtonsolve/internal/metrics"
	"github.com/san-kum/newtonsolve/internal/newton"
	"github.com/san-kum/newtonsolve/internal/storage"
	"github.com/san-kum/newtonsolve/internal/systems"
	"github.com/san-kum/newtonsolve/internal/viz"
)

// loadRun resolves the optional run id argument, defaulting to the most
// recent run.
func loadRun(args []string) (*storage.RunMetadata, *newton.Trace, error) {
	st := storage.New(dataDir)

	var (
		meta *storage.RunMetadata
		err  error
	)
	if len(args) > 0 {
		meta, err = st.Load(args[0])
	} else {
		meta, err = st.Latest()
	}
	if err != nil {
		return nil, nil, err
	}

	trace, err := st.LoadTrace(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	log.V(1).Info("loaded run", "id", meta.ID, "records", trace.Len())
	return meta, trace, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tSTATUS\tITERS\tEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.3g\n",
			run.ID,
			run.System,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Status,
			run.Iterations,
			float64(run.Eps),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  %s (%d×%d)", meta.ID, meta.System, meta.FuncCount, meta.VarCount)))
	printMetric("status", viz.StatusStyle(meta.Status).Render(meta.Status))
	printMetric("iterations", fmt.Sprintf("%d", meta.Iterations))
	printMetric("eps", fmt.Sprintf("%.6g", float64(meta.Eps)))
	printMetric("start", formatPoint(meta.Initial))
	printMetric("point", formatPoint(meta.Final))
	if meta.Error != "" {
		printMetric("reason", meta.Error)
	}
	printMetric("bounds", fmt.Sprintf("min eps %g, max iter %d, critical coef %g",
		meta.Config.MinEps, meta.Config.MaxIter, meta.Config.CriticalCoef))
	for _, m := range metrics.Evaluate(trace, metrics.Default()...) {
		printMetric(m.Name, fmt.Sprintf("%.4g", m.Value))
	}
	fmt.Println(viz.Separator(60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IT\tCOEF\tEPS BEFORE\tEPS AFTER\tAFTER")
	for _, r := range trace.Records() {
		fmt.Fprintf(w, "%d\t%g\t%.6g\t%.6g\t%s\n", r.Iteration, r.Coef, r.EpsBefore, r.EpsAfter, formatPoint(r.After))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args)
	if err != nil {
		return err
	}

	eps := finiteOnly(log10All(trace.Epsilons()))
	if len(eps) < 2 {
		return fmt.Errorf("run %s has fewer than two finite residuals to plot", meta.ID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s\n", meta.System)
	fmt.Printf("iterations: %d\n\n", trace.Len())

	fmt.Println(asciigraph.Plot(eps,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 ‖F‖ per iteration"),
	))
	fmt.Println()

	numVars := min(meta.VarCount, 6)
	for v := 0; v < numVars; v++ {
		data := make([]float64, 0, trace.Len()+1)
		for i, r := range trace.Records() {
			if i == 0 {
				data = append(data, r.Before[v])
			}
			data = append(data, r.After[v])
		}
		data = finiteOnly(data)
		if len(data) < 2 {
			continue
		}

		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d per iteration", v)),
		))
		fmt.Println()
	}
	return nil
}

func fieldPlot(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args)
	if err != nil {
		return err
	}
	def, err := systems.NewRegistry().Get(meta.System)
	if err != nil {
		return err
	}
	if def.VarCount < 2 {
		return fmt.Errorf("%s has a single variable, field needs two", def.Name)
	}

	fc := config.DefaultConfig().Field
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fc = cfg.Field
	}
	flags := cmd.Flags()
	if flags.Changed("width") || configFile == "" {
		fc.Width = fieldWidth
	}
	if flags.Changed("height") || configFile == "" {
		fc.Height = fieldHeight
	}
	if flags.Changed("margin") || configFile == "" {
		fc.Margin = fieldMargin
	}
	if flags.Changed("axes") || configFile == "" {
		if len(fieldAxes) != 2 {
			return fmt.Errorf("--axes takes two indices, got %v", fieldAxes)
		}
		fc.Axes = [2]int{fieldAxes[0], fieldAxes[1]}
	}

	base := []float64(meta.Final)
	win := viz.WindowAround(trace, base, fc.Axes, fc.Margin)
	field, err := viz.SampleField(def.System, def.FuncCount, base, fc.Axes, win, fc.Width, fc.Height)
	if err != nil {
		return err
	}

	theme := viz.GetTheme(themeName)
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  ‖F‖ around %s", meta.ID, formatPoint(base))))
	if err := viz.RenderField(os.Stdout, field, trace, theme); err != nil {
		return err
	}
	return writeSVG(viz.FieldToSVG(field, trace, svgCellSize, theme))
}

func path3dPlot(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args)
	if err != nil {
		return err
	}
	if len(pathAxes) != 3 {
		return fmt.Errorf("--axes takes three indices, got %v", pathAxes)
	}

	canvas, err := viz.PathCanvas(trace, [3]int{pathAxes[0], pathAxes[1], pathAxes[2]}, fieldWidth, fieldHeight, rotX, rotY)
	if err != nil {
		return err
	}
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s  path through x%d, x%d, x%d", meta.ID, pathAxes[0], pathAxes[1], pathAxes[2])))
	fmt.Print(canvas.String())
	return writeSVG(viz.CanvasToSVG(canvas, svgDotSize, viz.GetTheme(themeName)))
}

const (
	svgCellSize = 10.0
	svgDotSize  = 4.0
)

// writeSVG stores doc at --svg, if set.
func writeSVG(doc string) error {
	if svgFile == "" {
		return nil
	}
	if err := os.WriteFile(svgFile, []byte(doc), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", svgFile)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args)
	if err != nil {
		return err
	}
	return withOutput(func(w io.Writer) error {
		return storage.ExportJSON(w, meta, trace)
	})
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, trace, err := loadRun(args)
	if err != nil {
		return err
	}
	return withOutput(func(w io.Writer) error {
		return storage.WriteTraceCSV(w, meta.VarCount, trace)
	})
}

// withOutput runs write against --out, or stdout when it is unset.
func withOutput(write func(io.Writer) error) error {
	if outFile == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported to %s\n", outFile)
	return nil
}

func printMetric(label, value string) {
	fmt.Printf("%s %s\n", viz.MetricLabel.Render(fmt.Sprintf("%-17s", label)), viz.MetricValue.Render(value))
}

func formatPoint(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatMask(mask []bool) string {
	var b strings.Builder
	for _, m := range mask {
		if m {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// log10All maps residual norms to a log scale, clamping zeros to 1e-16.
func log10All(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = math.Log10(math.Max(v, 1e-16))
	}
	return out
}

func finiteOnly(vals []float64) []float64 {
	out := vals[:0:0]
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
