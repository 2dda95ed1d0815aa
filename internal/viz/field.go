package viz

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/newtonsolve/internal/newton"
)

var ErrInvalidField = errors.New("viz: invalid field")

// Window is the rectangle of the two plotted variables.
type Window struct {
	XMin, XMax float64
	YMin, YMax float64
}

func (w Window) valid() bool {
	return w.XMax > w.XMin && w.YMax > w.YMin &&
		!math.IsInf(w.XMax-w.XMin, 0) && !math.IsInf(w.YMax-w.YMin, 0)
}

// WindowAround fits the trace's path on the given axes, padded by margin
// times its extent. A flat extent is widened to ±1 around its centre.
// Without any finite points the window is centred on base.
func WindowAround(trace *newton.Trace, base []float64, axes [2]int, margin float64) Window {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	add := func(p []float64) {
		if max(axes[0], axes[1]) >= len(p) {
			return
		}
		x, y := p[axes[0]], p[axes[1]]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return
		}
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
	}

	if trace != nil {
		for _, r := range trace.Records() {
			add(r.Before)
			add(r.After)
		}
	}
	if xmin > xmax {
		add(base)
	}
	if xmin > xmax {
		return Window{-1, 1, -1, 1}
	}

	xmin, xmax = pad(xmin, xmax, margin)
	ymin, ymax = pad(ymin, ymax, margin)
	return Window{xmin, xmax, ymin, ymax}
}

func pad(lo, hi, margin float64) (float64, float64) {
	if hi-lo == 0 {
		return lo - 1, hi + 1
	}
	d := (hi - lo) * margin
	return lo - d, hi + d
}

// Field holds ‖F‖ sampled at cell centres, row-major with row 0 at YMax.
type Field struct {
	Window Window
	Axes   [2]int
	Cols   int
	Rows   int
	Values []float64
}

func (f *Field) At(col, row int) float64 { return f.Values[row*f.Cols+col] }

// Cell maps a point in the window to its cell.
func (f *Field) Cell(x, y float64) (col, row int) {
	col = int((x - f.Window.XMin) / (f.Window.XMax - f.Window.XMin) * float64(f.Cols))
	row = int((f.Window.YMax - y) / (f.Window.YMax - f.Window.YMin) * float64(f.Rows))
	return col, row
}

// Range returns the smallest and largest finite samples.
func (f *Field) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi, lo <= hi
}

// SampleField evaluates the residual norm of sys over win, varying the two
// axes variables and holding the others at base.
func SampleField(sys newton.System, funcCount int, base []float64, axes [2]int, win Window, cols, rows int) (*Field, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidField, cols, rows)
	}
	for _, a := range axes {
		if a < 0 || a >= len(base) {
			return nil, fmt.Errorf("%w: axis %d out of range for %d variables", ErrInvalidField, a, len(base))
		}
	}
	if axes[0] == axes[1] {
		return nil, fmt.Errorf("%w: both axes are variable %d", ErrInvalidField, axes[0])
	}
	if !win.valid() {
		return nil, fmt.Errorf("%w: degenerate window %+v", ErrInvalidField, win)
	}

	f := &Field{Window: win, Axes: axes, Cols: cols, Rows: rows, Values: make([]float64, cols*rows)}
	x := make([]float64, len(base))
	copy(x, base)
	dx := (win.XMax - win.XMin) / float64(cols)
	dy := (win.YMax - win.YMin) / float64(rows)
	for r := 0; r < rows; r++ {
		x[axes[1]] = win.YMax - (float64(r)+0.5)*dy
		for c := 0; c < cols; c++ {
			x[axes[0]] = win.XMin + (float64(c)+0.5)*dx
			sum := 0.0
			for fn := 0; fn < funcCount; fn++ {
				v := sys.Evaluate(fn, x)
				sum += v * v
			}
			f.Values[r*cols+c] = math.Sqrt(sum)
		}
	}
	return f, nil
}

// shades run from the smallest residual to the largest.
var shades = []rune{'█', '▓', '▒', '░', '·', ' '}

// shadeIndex buckets v on a log scale between lo and hi.
func shadeIndex(v, lo, hi float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	const floor = 1e-12
	l, h := math.Log10(lo+floor), math.Log10(hi+floor)
	if h <= l {
		return 0
	}
	t := (math.Log10(v+floor) - l) / (h - l)
	idx := int(t * float64(len(shades)))
	return max(0, min(idx, len(shades)-1))
}

// RenderField writes the shaded residual map with the trace path drawn in
// Braille dots over it, followed by a legend line. Colours follow the
// terminal capabilities of w.
func RenderField(w io.Writer, f *Field, trace *newton.Trace, theme Theme) error {
	r := lipgloss.NewRenderer(w)
	path := r.NewStyle().Foreground(theme.Path).Bold(true)
	marker := r.NewStyle().Foreground(theme.Marker).Bold(true)
	muted := r.NewStyle().Foreground(theme.Muted)
	shadeStyles := make([]lipgloss.Style, len(shades))
	for i := range shades {
		t := float64(i) / float64(len(shades)-1)
		shadeStyles[i] = r.NewStyle().Foreground(lipgloss.Color(GradientColor(theme.Low, theme.High, t)))
	}

	canvas := NewCanvas(f.Cols, f.Rows)
	ax, ay := f.Axes[0], f.Axes[1]

	endCol, endRow := -1, -1
	if trace != nil && trace.Len() > 0 {
		for _, rec := range trace.Records() {
			if !drawable(rec.Before, f.Axes) || !drawable(rec.After, f.Axes) {
				continue
			}
			canvas.Segment(f.Window, rec.Before[ax], rec.Before[ay], rec.After[ax], rec.After[ay])
		}
		last, _ := trace.Last()
		if drawable(last.After, f.Axes) {
			endCol, endRow = f.Cell(last.After[ax], last.After[ay])
		}
	}

	lo, hi, _ := f.Range()
	var b strings.Builder
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			switch {
			case col == endCol && row == endRow:
				b.WriteString(marker.Render("●"))
			case canvas.Dots(col, row) != 0:
				b.WriteString(path.Render(string(canvas.Cell(col, row))))
			default:
				idx := shadeIndex(f.At(col, row), lo, hi)
				if idx < 0 {
					b.WriteString(muted.Render("?"))
				} else {
					b.WriteString(shadeStyles[idx].Render(string(shades[idx])))
				}
			}
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%s x%d ∈ [%.4g, %.4g]  x%d ∈ [%.4g, %.4g]  ‖F‖ ∈ [%.3g, %.3g]\n",
		muted.Render("window"),
		f.Axes[0], f.Window.XMin, f.Window.XMax,
		f.Axes[1], f.Window.YMin, f.Window.YMax,
		lo, hi)

	_, err := io.WriteString(w, b.String())
	return err
}

func drawable(p []float64, axes [2]int) bool {
	for _, a := range axes {
		if a >= len(p) || math.IsNaN(p[a]) || math.IsInf(p[a], 0) {
			return false
		}
	}
	return true
}
