package particle

import "math"

// Vec2 is a 2D vector in screen space (y grows downwards).
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * f.
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

// Len returns the euclidean norm.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Angle returns the direction of v in degrees.
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) * 180 / math.Pi }

// FromPolar builds the vector of length r pointing at deg degrees.
func FromPolar(r, deg float64) Vec2 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return Vec2{r * c, r * s}
}
