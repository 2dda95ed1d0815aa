package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/newtonsolve/internal/newton"
	"github.com/san-kum/newtonsolve/internal/sweep"
)

// rootGlyphs distinguish basins when colour is unavailable; they repeat
// after the eighth root.
var rootGlyphs = []rune{'█', '▓', '▒', '░', '#', '%', '@', '&'}

var rootPalette = []lipgloss.Color{
	"#00ffff", "#ff00ff", "#ffff00", "#00ff88",
	"#ff8800", "#8888ff", "#ff4444", "#ffffff",
}

var statusGlyphs = map[newton.Status]rune{
	newton.StatusMaxIterExceeded:     '·',
	newton.StatusStuckNoDirection:    '×',
	newton.StatusStuckAtLocalOptimum: '∘',
}

// RenderBasins writes one glyph per grid cell: converged cells by the root
// they reached, the rest by how they stopped. A legend lists the roots and
// the status counts.
func RenderBasins(w io.Writer, g *sweep.Grid, tol float64, theme Theme) error {
	r := lipgloss.NewRenderer(w)
	muted := r.NewStyle().Foreground(theme.Muted)
	rootStyles := make([]lipgloss.Style, len(rootPalette))
	for i, c := range rootPalette {
		rootStyles[i] = r.NewStyle().Foreground(c)
	}

	idx, roots := g.Roots(tol)
	var b strings.Builder
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			i := row*g.Cols + col
			if k := idx[i]; k >= 0 {
				b.WriteString(rootStyles[k%len(rootStyles)].Render(string(rootGlyphs[k%len(rootGlyphs)])))
				continue
			}
			glyph, ok := statusGlyphs[g.Cells[i].Status]
			if !ok {
				glyph = '?'
			}
			b.WriteString(muted.Render(string(glyph)))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%s x%d ∈ [%.4g, %.4g]  x%d ∈ [%.4g, %.4g]\n",
		muted.Render("window"),
		g.Axes[0], g.Bounds.XMin, g.Bounds.XMax,
		g.Axes[1], g.Bounds.YMin, g.Bounds.YMax)
	for k, root := range roots {
		style := rootStyles[k%len(rootStyles)]
		fmt.Fprintf(&b, "%s root %s\n", style.Render(string(rootGlyphs[k%len(rootGlyphs)])), formatVec(root))
	}
	counts := g.Counts()
	for _, st := range []newton.Status{newton.StatusConverged, newton.StatusMaxIterExceeded, newton.StatusStuckNoDirection, newton.StatusStuckAtLocalOptimum} {
		if n := counts[st]; n > 0 {
			fmt.Fprintf(&b, "%s %s: %d\n", muted.Render("·"), st, n)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatVec(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%.5g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
