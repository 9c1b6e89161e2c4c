package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const cornerSteps = 8

type point struct{ x, y float32 }

// roundedContour returns the outline of a rounded rectangle, clockwise.
func roundedContour(x0, y0, x1, y1, r float32) []point {
	r = min(r, (x1-x0)/2, (y1-y0)/2)
	if r <= 0 {
		return []point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	}
	corners := []struct {
		cx, cy float32
		start  float64
	}{
		{x1 - r, y0 + r, -math.Pi / 2},
		{x1 - r, y1 - r, 0},
		{x0 + r, y1 - r, math.Pi / 2},
		{x0 + r, y0 + r, math.Pi},
	}
	pts := make([]point, 0, len(corners)*(cornerSteps+1))
	for _, c := range corners {
		for i := 0; i <= cornerSteps; i++ {
			a := c.start + float64(i)*(math.Pi/2)/cornerSteps
			pts = append(pts, point{c.cx + r*float32(math.Cos(a)), c.cy + r*float32(math.Sin(a))})
		}
	}
	return pts
}

func addContour(z *vector.Rasterizer, pts []point, reverse bool) {
	n := len(pts)
	at := func(i int) point {
		if reverse {
			return pts[n-1-i]
		}
		return pts[i]
	}
	z.MoveTo(at(0).x, at(0).y)
	for i := 1; i < n; i++ {
		p := at(i)
		z.LineTo(p.x, p.y)
	}
	z.ClosePath()
}

// Shapes draws antialiased rounded rectangles onto one destination size.
type Shapes struct {
	z *vector.Rasterizer
}

func (s *Shapes) rasterizer(b image.Rectangle) *vector.Rasterizer {
	if s.z == nil {
		s.z = vector.NewRasterizer(b.Dx(), b.Dy())
	} else {
		s.z.Reset(b.Dx(), b.Dy())
	}
	s.z.DrawOp = draw.Over
	return s.z
}

// FillRounded fills r with corner radius radius.
func (s *Shapes) FillRounded(dst *image.RGBA, r image.Rectangle, radius float64, c color.Color) {
	if r.Empty() {
		return
	}
	b := dst.Bounds()
	z := s.rasterizer(b)
	addContour(z, roundedContour(float32(r.Min.X-b.Min.X), float32(r.Min.Y-b.Min.Y),
		float32(r.Max.X-b.Min.X), float32(r.Max.Y-b.Min.Y), float32(radius)), false)
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// StrokeRounded draws a ring of the given width just inside r.
func (s *Shapes) StrokeRounded(dst *image.RGBA, r image.Rectangle, radius, width float64, c color.Color) {
	if r.Empty() || width <= 0 {
		return
	}
	b := dst.Bounds()
	z := s.rasterizer(b)
	x0, y0 := float32(r.Min.X-b.Min.X), float32(r.Min.Y-b.Min.Y)
	x1, y1 := float32(r.Max.X-b.Min.X), float32(r.Max.Y-b.Min.Y)
	w := float32(width)
	addContour(z, roundedContour(x0, y0, x1, y1, float32(radius)), false)
	if x1-x0 > 2*w && y1-y0 > 2*w {
		inner := float32(math.Max(0, radius-width))
		addContour(z, roundedContour(x0+w, y0+w, x1-w, y1-w, inner), true)
	}
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}
