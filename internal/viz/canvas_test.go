package viz

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/newtonsolve/internal/newton"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)

	assert.Equal(t, rune(0x2801), c.Cell(0, 0))
	assert.Equal(t, rune(0x2880), c.Cell(1, 0))
	assert.Equal(t, uint8(0x01), c.Dots(0, 0))
	assert.Equal(t, "⠁⢀\n", c.String())

	assert.Zero(t, NewCanvas(1, 1).Dots(0, 0))
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for col := 0; col < 4; col++ {
		assert.Equal(t, rune(0x2809), c.Cell(col, 0))
	}

	c = NewCanvas(1, 2)
	c.DrawLine(0, 7, 0, 0)
	assert.Equal(t, rune(0x2847), c.Cell(0, 0))
	assert.Equal(t, rune(0x2847), c.Cell(0, 1))
}

func TestCanvasPixel(t *testing.T) {
	c := NewCanvas(5, 2)
	win := Window{XMin: -1, XMax: 1, YMin: 0, YMax: 4}

	x, y := c.Pixel(win, -1, 4)
	assert.Equal(t, [2]int{0, 0}, [2]int{x, y})
	x, y = c.Pixel(win, 0, 2)
	assert.Equal(t, [2]int{5, 4}, [2]int{x, y})

	c.Segment(win, -1, 3.5, 0.95, 3.5)
	for col := 0; col < 5; col++ {
		assert.Equal(t, uint8(0x12), c.Dots(col, 0), "col %d", col)
	}
	assert.Zero(t, c.Dots(0, 1))
}

func TestRenderPath3D(t *testing.T) {
	out, err := RenderPath3D(straightTrace(), [3]int{0, 1, 2}, 20, 10, 0.3, 0.5)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 10)
	assert.NotEqual(t, strings.Repeat(string(rune(brailleBlank)), 20), strings.Join(lines, ""))

	_, err = RenderPath3D(&newton.Trace{}, [3]int{0, 1, 2}, 20, 10, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = RenderPath3D(straightTrace(), [3]int{0, 1, 5}, 20, 10, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestTraceWireframe(t *testing.T) {
	w, err := TraceWireframe(straightTrace(), [3]int{0, 1, 2})
	require.NoError(t, err)
	// start point, two segments, three ticks
	require.Len(t, w.Edges, 6)
	assert.Equal(t, Vec3{-1, 1, 0}, w.Edges[0].Start)
	assert.Equal(t, Vec3{1, -1, 0}, w.Edges[2].End)
}

func TestSparklineChart(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	assert.Equal(t, "───", SparklineChart(nil, 3))
	out := SparklineChart([]float64{0, 1, 2}, 3)
	assert.Equal(t, "▁▄█", out)
}

func TestGradientColor(t *testing.T) {
	assert.Equal(t, "#000000", GradientColor("#000000", "#ffffff", 0))
	assert.Equal(t, "#ffffff", GradientColor("#000000", "#ffffff", 1))
	assert.Equal(t, "#7f7f7f", GradientColor("#000000", "#ffffff", 0.5))
	assert.Equal(t, "#ffffff", GradientColor("bogus", "#ffffff", 0.3))
}

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"cyberpunk", "ocean", "retro", "sunset"}, ThemeNames())
	assert.Equal(t, "ocean", GetTheme("ocean").Name)
	assert.Equal(t, "cyberpunk", GetTheme("nope").Name)
}
