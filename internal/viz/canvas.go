package viz

import (
	"math"
	"strings"
)

const brailleBlank = 0x2800

// dotBits[y][x] is the Braille bit of dot (x, y) within a 2×4 cell.
var dotBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a Width×Height grid of Braille cells of 2×4 dots each. Pixel
// coordinates address single dots, (0, 0) at the top left.
type Canvas struct {
	Width, Height int
	dots          []uint8
}

func NewCanvas(w, h int) *Canvas {
	return &Canvas{Width: w, Height: h, dots: make([]uint8, w*h)}
}

func (c *Canvas) PixelWidth() int  { return c.Width * 2 }
func (c *Canvas) PixelHeight() int { return c.Height * 4 }

// Set lights the dot at (x, y). Dots off the canvas are dropped.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.PixelWidth() || y >= c.PixelHeight() {
		return
	}
	c.dots[(y/4)*c.Width+x/2] |= dotBits[y%4][x%2]
}

// Dots is the lit-dot pattern of cell (col, row), zero when blank.
func (c *Canvas) Dots(col, row int) uint8 { return c.dots[row*c.Width+col] }

// Cell is the Braille glyph of cell (col, row).
func (c *Canvas) Cell(col, row int) rune { return brailleBlank + rune(c.Dots(col, row)) }

// Pixel maps (x, y) in win to dot coordinates, y growing downwards.
func (c *Canvas) Pixel(win Window, x, y float64) (int, int) {
	px := (x - win.XMin) / (win.XMax - win.XMin) * float64(c.PixelWidth())
	py := (win.YMax - y) / (win.YMax - win.YMin) * float64(c.PixelHeight())
	return int(math.Floor(px)), int(math.Floor(py))
}

// Segment draws the line between two points of win.
func (c *Canvas) Segment(win Window, x0, y0, x1, y1 float64) {
	ax, ay := c.Pixel(win, x0, y0)
	bx, by := c.Pixel(win, x1, y1)
	c.DrawLine(ax, ay, bx, by)
}

// DrawLine lights every dot on the Bresenham line from (x0, y0) to
// (x1, y1), both ends included.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, sx := x1-x0, 1
	if dx < 0 {
		dx, sx = -dx, -1
	}
	dy, sy := y1-y0, 1
	if dy < 0 {
		dy, sy = -dy, -1
	}

	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			b.WriteRune(c.Cell(col, row))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
