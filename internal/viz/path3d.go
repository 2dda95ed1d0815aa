package viz

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/newtonsolve/internal/newton"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Camera projects points onto the canvas after rotating them about the
// origin.
type Camera struct {
	Distance   float64
	Near       float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 50, Near: 0.1, Zoom: 1.0}
}

func (c *Camera) RotatePoint(p Vec3) Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return p
}

// Project maps p to pixel coordinates on a sw x sh surface and reports its
// depth and whether it lands on the surface.
func (c *Camera) Project(p Vec3, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(p).Scale(c.Zoom)
	if rot.Z >= c.Distance-c.Near {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	pScale := float64(min(sw, sh)) / 3.0
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe         { return &Wireframe{Edges: make([]Edge, 0)} }
func (w *Wireframe) AddEdge(s, e Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p Vec3)   { w.Edges = append(w.Edges, Edge{p, p}) }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe far-to-near onto the canvas.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	pw, ph := c.PixelWidth(), c.PixelHeight()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, pw, ph)
		x2, y2, d2, v2 := cam.Project(e.End, pw, ph)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}

// TraceWireframe builds the iteration path over three variables, centred
// on its bounding box and scaled to unit half-extent, with short axis ticks
// at the final point.
func TraceWireframe(trace *newton.Trace, axes [3]int) (*Wireframe, error) {
	if trace == nil || trace.Len() == 0 {
		return nil, fmt.Errorf("%w: empty trace", ErrInvalidField)
	}
	pick := func(p []float64) (Vec3, bool) {
		for _, a := range axes {
			if a < 0 || a >= len(p) || math.IsNaN(p[a]) || math.IsInf(p[a], 0) {
				return Vec3{}, false
			}
		}
		return Vec3{p[axes[0]], p[axes[1]], p[axes[2]]}, true
	}

	var pts []Vec3
	for i, r := range trace.Records() {
		if i == 0 {
			if v, ok := pick(r.Before); ok {
				pts = append(pts, v)
			}
		}
		if v, ok := pick(r.After); ok {
			pts = append(pts, v)
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no finite points on axes %v", ErrInvalidField, axes)
	}

	lo, hi := pts[0], pts[0]
	for _, p := range pts {
		lo = Vec3{math.Min(lo.X, p.X), math.Min(lo.Y, p.Y), math.Min(lo.Z, p.Z)}
		hi = Vec3{math.Max(hi.X, p.X), math.Max(hi.Y, p.Y), math.Max(hi.Z, p.Z)}
	}
	centre := lo.Add(hi).Scale(0.5)
	half := hi.Sub(lo).Scale(0.5)
	extent := math.Max(half.X, math.Max(half.Y, half.Z))
	if extent == 0 {
		extent = 1
	}

	w := NewWireframe()
	prev := pts[0].Sub(centre).Scale(1 / extent)
	w.AddPoint(prev)
	for _, p := range pts[1:] {
		cur := p.Sub(centre).Scale(1 / extent)
		w.AddEdge(prev, cur)
		prev = cur
	}
	const tick = 0.08
	w.AddEdge(prev.Sub(Vec3{tick, 0, 0}), prev.Add(Vec3{tick, 0, 0}))
	w.AddEdge(prev.Sub(Vec3{0, tick, 0}), prev.Add(Vec3{0, tick, 0}))
	w.AddEdge(prev.Sub(Vec3{0, 0, tick}), prev.Add(Vec3{0, 0, tick}))
	return w, nil
}

// PathCanvas draws the path of a trace through three variables onto a new
// canvas, viewed from the given rotation in radians.
func PathCanvas(trace *newton.Trace, axes [3]int, cols, rows int, rotX, rotY float64) (*Canvas, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidField, cols, rows)
	}
	w, err := TraceWireframe(trace, axes)
	if err != nil {
		return nil, err
	}
	cam := NewCamera()
	cam.RotX, cam.RotY = rotX, rotY

	c := NewCanvas(cols, rows)
	Render3D(c, w, cam)
	return c, nil
}

// RenderPath3D is PathCanvas rendered as Braille text.
func RenderPath3D(trace *newton.Trace, axes [3]int, cols, rows int, rotX, rotY float64) (string, error) {
	c, err := PathCanvas(trace, axes, cols, rows, rotX, rotY)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
