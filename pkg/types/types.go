package types

import "math"

// Point is a normalized 2-D coordinate; both components are expected in [0,1]
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamped returns the point with each component clamped to [0,1]
func (p Point) Clamped() Point {
	return Point{X: Clamp(p.X, 0, 1), Y: Clamp(p.Y, 0, 1)}
}

// Distance returns the Euclidean distance between two points
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Lerp linearly interpolates between p and o
func (p Point) Lerp(o Point, t float64) Point {
	return Point{X: p.X + (o.X-p.X)*t, Y: p.Y + (o.Y-p.Y)*t}
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the normalized center of the box
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Size returns the normalized width and height as a point
func (b Box) Size() Point {
	return Point{X: b.W, Y: b.H}
}

// Contains reports whether o lies fully inside b
func (b Box) Contains(o Box) bool {
	return o.X >= b.X && o.Y >= b.Y && o.X+o.W <= b.X+b.W && o.Y+o.H <= b.Y+b.H
}

// BoxFromCenter builds a box of the given normalized size centered at c.
// The box is not clamped.
func BoxFromCenter(c, size Point) Box {
	return Box{X: c.X - size.X/2, Y: c.Y - size.Y/2, W: size.X, H: size.Y}
}

// Size is a pixel dimension
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether either dimension is non-positive
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned pixel rectangle
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the rectangle
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the rectangle
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Right is the first column past the rectangle.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom is the first row past the rectangle.
func (r Rect) Bottom() int { return r.Y + r.Height }

// ContainsPoint reports whether pixel (x, y) lies inside the rectangle
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Grow expands the rectangle by dx on the left and right and dy on the top and bottom
func (r Rect) Grow(dx, dy int) Rect {
	return Rect{X: r.X - dx, Y: r.Y - dy, Width: r.Width + 2*dx, Height: r.Height + 2*dy}
}

// ClampTo trims the rectangle so it lies within an image of the given size
func (r Rect) ClampTo(s Size) Rect {
	x0 := max(r.X, 0)
	y0 := max(r.Y, 0)
	x1 := min(r.Right(), s.Width)
	y1 := min(r.Bottom(), s.Height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Normalized converts the pixel rectangle into a normalized box for an image of size s
func (r Rect) Normalized(s Size) Box {
	if s.Empty() {
		return Box{}
	}
	fw, fh := float64(s.Width), float64(s.Height)
	return Box{
		X: float64(r.X) / fw,
		Y: float64(r.Y) / fh,
		W: float64(r.Width) / fw,
		H: float64(r.Height) / fh,
	}
}

// Detection is a single object proposed by a vision model
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// AnalysisResult contains the complete analysis result from the vision model
type AnalysisResult struct {
	Objects     []Detection `json:"objects"`
	Description string      `json:"description"`
}

// OutputConfig defines how rendered images are encoded
type OutputConfig struct {
	Quality   int
	Lossless  bool
	Extension string
}

// Clamp ensures a value is within the given bounds
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
