// Package coords provides PDF user-space geometry: points, rectangles and
// 2D affine transformation matrices in the PDF row-vector convention
// [a b c d e f].
package coords

import (
	"errors"
	"math"
)

type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det, -m[1] / det,
		-m[2] / det, m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }
func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Rect is an axis-aligned rectangle with LLX <= URX and LLY <= URY after
// normalization. The zero Rect is empty.
type Rect struct {
	LLX, LLY, URX, URY float64
}

func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{LLX: x0, LLY: y0, URX: x1, URY: y1}.Normalized()
}

func (r Rect) Normalized() Rect {
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

func (r Rect) IsEmpty() bool { return r.Width() <= 0 || r.Height() <= 0 }

func (r Rect) Center() Point { return Point{X: (r.LLX + r.URX) / 2, Y: (r.LLY + r.URY) / 2} }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.LLX && p.X <= r.URX && p.Y >= r.LLY && p.Y <= r.URY
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.LLX >= r.LLX && o.URX <= r.URX && o.LLY >= r.LLY && o.URY <= r.URY
}

func (r Rect) Intersects(o Rect) bool {
	return r.LLX < o.URX && o.LLX < r.URX && r.LLY < o.URY && o.LLY < r.URY
}

func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		LLX: math.Max(r.LLX, o.LLX),
		LLY: math.Max(r.LLY, o.LLY),
		URX: math.Min(r.URX, o.URX),
		URY: math.Min(r.URY, o.URY),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		LLX: math.Min(r.LLX, o.LLX),
		LLY: math.Min(r.LLY, o.LLY),
		URX: math.Max(r.URX, o.URX),
		URY: math.Max(r.URY, o.URY),
	}
}

// Expand grows the rectangle by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{LLX: r.LLX - d, LLY: r.LLY - d, URX: r.URX + d, URY: r.URY + d}
}

// TransformRect returns the axis-aligned bounding box of the four transformed
// corners.
func (m Matrix) TransformRect(r Rect) Rect {
	p0 := m.Transform(Point{r.LLX, r.LLY})
	p1 := m.Transform(Point{r.URX, r.LLY})
	p2 := m.Transform(Point{r.LLX, r.URY})
	p3 := m.Transform(Point{r.URX, r.URY})
	return Rect{
		LLX: math.Min(math.Min(p0.X, p1.X), math.Min(p2.X, p3.X)),
		LLY: math.Min(math.Min(p0.Y, p1.Y), math.Min(p2.Y, p3.Y)),
		URX: math.Max(math.Max(p0.X, p1.X), math.Max(p2.X, p3.X)),
		URY: math.Max(math.Max(p0.Y, p1.Y), math.Max(p2.Y, p3.Y)),
	}
}
