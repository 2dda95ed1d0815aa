package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/newtonsolve/internal/newton"
)

// CanvasToSVG converts a Braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *Canvas, scale float64, theme Theme) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.PixelWidth()) * scale
	height := float64(canvas.PixelHeight()) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, theme.High, theme.Path)

	dotRadius := scale * 0.4
	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			pattern := canvas.Dots(col, row)
			if pattern == 0 {
				continue
			}
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&dotBits[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
					}
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// FieldToSVG draws the residual map as shaded cells of size px with the
// trace path as a polyline on top.
func FieldToSVG(f *Field, trace *newton.Trace, px float64, theme Theme) string {
	width := float64(f.Cols) * px
	height := float64(f.Rows) * px

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
`, width, height, width, height)

	lo, hi, _ := f.Range()
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			fill := string(theme.Muted)
			if idx := shadeIndex(f.At(col, row), lo, hi); idx >= 0 {
				fill = GradientColor(theme.Low, theme.High, float64(idx)/float64(len(shades)-1))
			}
			fmt.Fprintf(&sb, "<rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" fill=\"%s\"/>\n",
				float64(col)*px, float64(row)*px, px, px, fill)
		}
	}

	var pts [][2]float64
	if trace != nil {
		for i, r := range trace.Records() {
			if i == 0 && drawable(r.Before, f.Axes) {
				pts = append(pts, svgPoint(f, r.Before, width, height))
			}
			if drawable(r.After, f.Axes) {
				pts = append(pts, svgPoint(f, r.After, width, height))
			}
		}
	}
	if len(pts) >= 2 {
		d := make([]string, len(pts))
		for i, p := range pts {
			d[i] = fmt.Sprintf("%.1f,%.1f", p[0], p[1])
		}
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"M%s\"/>\n",
			theme.Path, strings.Join(d, " L"))
	}
	if len(pts) > 0 {
		end := pts[len(pts)-1]
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\"/>\n", end[0], end[1], math.Max(2, px/3), theme.Marker)
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func svgPoint(f *Field, p []float64, width, height float64) [2]float64 {
	x := (p[f.Axes[0]] - f.Window.XMin) / (f.Window.XMax - f.Window.XMin) * width
	y := (f.Window.YMax - p[f.Axes[1]]) / (f.Window.YMax - f.Window.YMin) * height
	return [2]float64{x, y}
}
