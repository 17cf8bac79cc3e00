// Package mark implements the annotation entity: a quadrilateral stored as four
// normalized points plus a corner assignment that is kept consistent by Rebalance.
package mark

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/google/uuid"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrPointCount is returned when an operation needs exactly four points
var ErrPointCount = errors.New("mark: exactly 4 points required")

// CornerType is the role a point plays in the quadrilateral
type CornerType int

const (
	TopLeft CornerType = iota
	TopRight
	BottomRight
	BottomLeft
)

// Corners lists every corner type in rebalance order
var Corners = [4]CornerType{TopLeft, TopRight, BottomRight, BottomLeft}

func (c CornerType) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	}
	return fmt.Sprintf("corner(%d)", int(c))
}

// Opposite returns the diagonally opposite corner
func (c CornerType) Opposite() CornerType {
	return (c + 2) % 4
}

// Mark is a single annotation
type Mark struct {
	ID          uuid.UUID
	ClassID     int
	Name        string
	Provisional bool
	Confidence  float64

	// ImageSize is the pixel size used when converting to pixel space.
	// Callers may swap it to query the mark at another resolution.
	ImageSize types.Size

	points   []types.Point
	corners  [4]int
	balanced bool
}

// New creates an empty mark with a fresh ID
func New(imageSize types.Size, classID int) *Mark {
	return &Mark{
		ID:        uuid.New(),
		ClassID:   classID,
		ImageSize: imageSize,
		points:    make([]types.Point, 0, 4),
	}
}

// FromCenterSize creates a rectangular mark of the given normalized size centered at center.
// Each coordinate is clamped independently, so a rectangle crossing an image edge is truncated.
func FromCenterSize(center, size types.Point, imageSize types.Size, classID int) *Mark {
	m := New(imageSize, classID)
	m.setCorners(center.X-size.X/2, center.Y-size.Y/2, center.X+size.X/2, center.Y+size.Y/2)
	return m
}

// FromRect creates a rectangular mark covering the pixel rectangle r
func FromRect(r types.Rect, imageSize types.Size, classID int) *Mark {
	m := New(imageSize, classID)
	m.RebuildFromRect(r)
	return m
}

// Points returns a copy of the stored points in insertion order
func (m *Mark) Points() []types.Point {
	out := make([]types.Point, len(m.points))
	copy(out, m.points)
	return out
}

// AddPoint appends a point. Once four points are present the corners are rebalanced.
// A mark that already has four points is left unchanged and ErrPointCount is returned.
func (m *Mark) AddPoint(p types.Point) error {
	if len(m.points) >= 4 {
		return fmt.Errorf("%w: have %d", ErrPointCount, len(m.points))
	}
	m.points = append(m.points, p.Clamped())
	m.balanced = false
	if len(m.points) == 4 {
		return m.Rebalance()
	}
	return nil
}

// SetPoint moves the point currently playing corner c and rebalances
func (m *Mark) SetPoint(c CornerType, p types.Point) error {
	if !m.balanced {
		return fmt.Errorf("%w: have %d", ErrPointCount, len(m.points))
	}
	m.points[m.corners[c]] = p.Clamped()
	return m.Rebalance()
}

// Rebalance reassigns the four points to corner roles. For each corner of the
// bounding rectangle, in the order TL, TR, BR, BL, the nearest point that has not
// been assigned yet takes that role.
func (m *Mark) Rebalance() error {
	if len(m.points) != 4 {
		m.balanced = false
		return fmt.Errorf("%w: have %d", ErrPointCount, len(m.points))
	}

	b := m.NormalizedRect()
	targets := [4]types.Point{
		{X: b.X, Y: b.Y},
		{X: b.X + b.W, Y: b.Y},
		{X: b.X + b.W, Y: b.Y + b.H},
		{X: b.X, Y: b.Y + b.H},
	}

	candidates := []int{0, 1, 2, 3}
	for _, c := range Corners {
		best := 0
		bestDist := math.Inf(1)
		for i, idx := range candidates {
			d := m.points[idx].Distance(targets[c])
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		m.corners[c] = candidates[best]
		candidates = append(candidates[:best], candidates[best+1:]...)
	}
	m.balanced = true
	return nil
}

// RebuildFromBox replaces all points with the corners of the normalized box
func (m *Mark) RebuildFromBox(b types.Box) {
	m.setCorners(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

func (m *Mark) setCorners(x0, y0, x1, y1 float64) {
	x0, y0 = types.Clamp(x0, 0, 1), types.Clamp(y0, 0, 1)
	x1, y1 = types.Clamp(x1, 0, 1), types.Clamp(y1, 0, 1)
	m.points = append(m.points[:0],
		types.Point{X: x0, Y: y0},
		types.Point{X: x1, Y: y0},
		types.Point{X: x1, Y: y1},
		types.Point{X: x0, Y: y1},
	)
	_ = m.Rebalance()
}

// RebuildFromRect replaces all points with the corners of the pixel rectangle.
// The rectangle is inclusive of its first pixel and exclusive of Right/Bottom,
// so BoundingRect returns r again.
func (m *Mark) RebuildFromRect(r types.Rect) {
	if m.ImageSize.Empty() {
		return
	}
	fw, fh := float64(m.ImageSize.Width), float64(m.ImageSize.Height)
	x1, y1 := r.X, r.Y
	if r.Width > 0 {
		x1 = r.X + r.Width - 1
	}
	if r.Height > 0 {
		y1 = r.Y + r.Height - 1
	}
	m.RebuildFromBox(types.Box{
		X: float64(r.X) / fw,
		Y: float64(r.Y) / fh,
		W: float64(x1-r.X) / fw,
		H: float64(y1-r.Y) / fh,
	})
}

// CornerNormalized returns the normalized location of corner c
func (m *Mark) CornerNormalized(c CornerType) types.Point {
	if !m.balanced {
		return types.Point{}
	}
	return m.points[m.corners[c]]
}

// Corner returns the pixel location of corner c using the stored image size
func (m *Mark) Corner(c CornerType) image.Point {
	return m.CornerFor(c, m.ImageSize)
}

// CornerFor returns the pixel location of corner c for an image of size s
func (m *Mark) CornerFor(c CornerType, s types.Size) image.Point {
	p := m.CornerNormalized(c)
	return image.Pt(toPixel(p.X, s.Width), toPixel(p.Y, s.Height))
}

// NormalizedRect returns the normalized axis-aligned bounding box of all points
func (m *Mark) NormalizedRect() types.Box {
	if len(m.points) == 0 {
		return types.Box{}
	}
	minX, minY := m.points[0].X, m.points[0].Y
	maxX, maxY := minX, minY
	for _, p := range m.points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return types.Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// BoundingRect returns the pixel bounding rectangle against the stored image size
func (m *Mark) BoundingRect() types.Rect {
	return m.BoundingRectFor(m.ImageSize)
}

// BoundingRectFor returns the pixel bounding rectangle for an image of size s.
// Every point is rounded on its own, and the rectangle spans the rounded points
// inclusively, trimmed so it never extends past the image.
func (m *Mark) BoundingRectFor(s types.Size) types.Rect {
	if len(m.points) == 0 || s.Empty() {
		return types.Rect{}
	}
	minX, minY := s.Width, s.Height
	maxX, maxY := -1, -1
	for _, p := range m.points {
		x, y := toPixel(p.X, s.Width), toPixel(p.Y, s.Height)
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	r := types.Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
	if r.Right() > s.Width {
		r.Width = s.Width - r.X
	}
	if r.Bottom() > s.Height {
		r.Height = s.Height - r.Y
	}
	return r
}

// Midpoint returns the pixel center of the bounding rectangle
func (m *Mark) Midpoint() image.Point {
	b := m.NormalizedRect()
	c := b.Center()
	return image.Pt(toPixel(c.X, m.ImageSize.Width), toPixel(c.Y, m.ImageSize.Height))
}

// Colour returns the display colour for the mark's class
func (m *Mark) Colour() color.NRGBA {
	return ClassColour(m.ClassID)
}

// Accept confirms a provisional mark and restores its label text
func (m *Mark) Accept(name string) {
	m.Provisional = false
	m.Confidence = 0
	m.Name = name
}

// Clone returns a deep copy of the mark, including its ID
func (m *Mark) Clone() *Mark {
	c := *m
	c.points = m.Points()
	return &c
}

// Outline returns the closed ring TL, TR, BR, BL, TL in normalized coordinates.
// An unbalanced mark yields an empty line string.
func (m *Mark) Outline() (geom.LineString, error) {
	if !m.balanced {
		return geom.LineString{}, nil
	}
	coords := make([]float64, 0, 10)
	for _, c := range Corners {
		p := m.points[m.corners[c]]
		coords = append(coords, p.X, p.Y)
	}
	first := m.points[m.corners[TopLeft]]
	coords = append(coords, first.X, first.Y)
	ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("mark %s outline: %w", m.ID, err)
	}
	return ls, nil
}

// Balanced reports whether the corner assignment is valid
func (m *Mark) Balanced() bool {
	return m.balanced
}

func toPixel(v float64, dim int) int {
	if dim <= 0 {
		return 0
	}
	p := int(math.Round(v * float64(dim)))
	if p < 0 {
		return 0
	}
	if p > dim-1 {
		return dim - 1
	}
	return p
}
