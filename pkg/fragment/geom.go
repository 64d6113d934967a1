package fragment

import (
	"math"

	"github.com/gogpu/gg"
)

// Affine is a 2D affine transform stored in row-major order:
//
//	| A  B  C |
//	| D  E  F |
//
// A point (x, y) maps to (A*x + B*y + C, D*x + E*y + F).
type Affine struct {
	A, B, C float32
	D, E, F float32
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate returns a translation.
func Translate(x, y float32) Affine {
	return Affine{A: 1, C: x, E: 1, F: y}
}

// Scale returns a scale about the origin.
func Scale(x, y float32) Affine {
	return Affine{A: x, E: y}
}

// Multiply returns a*b: b is applied first.
func (a Affine) Multiply(b Affine) Affine {
	return Affine{
		A: a.A*b.A + a.B*b.D,
		B: a.A*b.B + a.B*b.E,
		C: a.A*b.C + a.B*b.F + a.C,
		D: a.D*b.A + a.E*b.D,
		E: a.D*b.B + a.E*b.E,
		F: a.D*b.C + a.E*b.F + a.F,
	}
}

// Apply maps a point through the transform.
func (a Affine) Apply(x, y float32) (float32, float32) {
	return a.A*x + a.B*y + a.C, a.D*x + a.E*y + a.F
}

// IsIdentity reports whether a is the identity.
func (a Affine) IsIdentity() bool {
	return a == Identity()
}

// Matrix converts a to a gg.Matrix.
func (a Affine) Matrix() gg.Matrix {
	return gg.Matrix{
		A: float64(a.A), B: float64(a.B), C: float64(a.C),
		D: float64(a.D), E: float64(a.E), F: float64(a.F),
	}
}

// FromMatrix converts a gg.Matrix to an Affine.
func FromMatrix(m gg.Matrix) Affine {
	return Affine{
		A: float32(m.A), B: float32(m.B), C: float32(m.C),
		D: float32(m.D), E: float32(m.E), F: float32(m.F),
	}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// EmptyRect returns inverted bounds suitable as a union seed.
func EmptyRect() Rect {
	return Rect{
		MinX: math.MaxFloat32,
		MinY: math.MaxFloat32,
		MaxX: -math.MaxFloat32,
		MaxY: -math.MaxFloat32,
	}
}

// IsEmpty reports whether r has no area.
func (r Rect) IsEmpty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	if o.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return o
	}
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

func (r Rect) addPoint(x, y float32) Rect {
	return Rect{
		MinX: min(r.MinX, x),
		MinY: min(r.MinY, y),
		MaxX: max(r.MaxX, x),
		MaxY: max(r.MaxY, y),
	}
}

// Transform returns the bounds of r mapped through t.
func (r Rect) Transform(t Affine) Rect {
	if r.IsEmpty() {
		return r
	}
	out := EmptyRect()
	for _, p := range [4][2]float32{
		{r.MinX, r.MinY}, {r.MaxX, r.MinY},
		{r.MinX, r.MaxY}, {r.MaxX, r.MaxY},
	} {
		x, y := t.Apply(p[0], p[1])
		out = out.addPoint(x, y)
	}
	return out
}

// Width returns the width of r, or 0 when empty.
func (r Rect) Width() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.MaxX - r.MinX
}

// Height returns the height of r, or 0 when empty.
func (r Rect) Height() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.MaxY - r.MinY
}
