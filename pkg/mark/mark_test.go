package mark

import (
	"errors"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/menta2k/image-annotator/pkg/types"
)

func newRectMark() *Mark {
	return FromCenterSize(types.Point{X: 0.4, Y: 0.4}, types.Point{X: 0.4, Y: 0.4}, types.Size{Width: 800, Height: 600}, 0)
}

func TestFromCenterSize(t *testing.T) {
	m := FromCenterSize(types.Point{X: 0.5, Y: 0.5}, types.Point{X: 0.5, Y: 0.5}, types.Size{Width: 800, Height: 600}, 3)

	if m.ClassID != 3 {
		t.Errorf("Expected class 3, got %d", m.ClassID)
	}
	if tl := m.Corner(TopLeft); tl != image.Pt(200, 150) {
		t.Errorf("Expected top-left (200,150), got %v", tl)
	}
	if br := m.Corner(BottomRight); br != image.Pt(600, 450) {
		t.Errorf("Expected bottom-right (600,450), got %v", br)
	}

	m.ImageSize = types.Size{Width: 1024, Height: 1024}
	if tl := m.Corner(TopLeft); tl != image.Pt(256, 256) {
		t.Errorf("Expected top-left (256,256), got %v", tl)
	}
	if br := m.Corner(BottomRight); br != image.Pt(768, 768) {
		t.Errorf("Expected bottom-right (768,768), got %v", br)
	}
}

func TestFromCenterSizeTruncatesAtEdge(t *testing.T) {
	m := FromCenterSize(types.Point{X: 0.05, Y: 0.95}, types.Point{X: 0.2, Y: 0.2}, types.Size{Width: 100, Height: 100}, 0)

	b := m.NormalizedRect()
	if b.X != 0 || math.Abs(b.Y+b.H-1) > 1e-9 {
		t.Errorf("Expected box clamped to the image edge, got %+v", b)
	}
	if math.Abs(b.W-0.15) > 1e-9 || math.Abs(b.H-0.15) > 1e-9 {
		t.Errorf("Expected truncated size 0.15x0.15, got %fx%f", b.W, b.H)
	}
}

func TestBoundingRectRounding(t *testing.T) {
	m := FromCenterSize(types.Point{X: 0.543, Y: 0.456}, types.Point{X: 0.321, Y: 0.123}, types.Size{Width: 800, Height: 600}, 0)

	r := m.BoundingRect()
	expected := types.Rect{X: 306, Y: 237, Width: 258, Height: 75}
	if r != expected {
		t.Errorf("Expected %+v, got %+v", expected, r)
	}
}

func TestBoundingRectForOtherSize(t *testing.T) {
	m := newRectMark()
	r := m.BoundingRectFor(types.Size{Width: 100, Height: 100})
	expected := types.Rect{X: 20, Y: 20, Width: 41, Height: 41}
	if r != expected {
		t.Errorf("Expected %+v, got %+v", expected, r)
	}
	if m.ImageSize.Width != 800 {
		t.Errorf("BoundingRectFor must not change the stored image size")
	}
}

func TestBoundingRectStaysInsideImage(t *testing.T) {
	m := FromCenterSize(types.Point{X: 1, Y: 1}, types.Point{X: 0.5, Y: 0.5}, types.Size{Width: 64, Height: 48}, 0)
	r := m.BoundingRect()
	if r.Right() > 64 || r.Bottom() > 48 {
		t.Errorf("Rect %+v extends past 64x48", r)
	}
	if br := m.Corner(BottomRight); br != image.Pt(63, 47) {
		t.Errorf("Expected bottom-right clamped to (63,47), got %v", br)
	}
}

func TestRebuildFromRectRoundTrip(t *testing.T) {
	size := types.Size{Width: 640, Height: 480}
	rects := []types.Rect{
		{X: 10, Y: 20, Width: 100, Height: 50},
		{X: 0, Y: 0, Width: 640, Height: 480},
		{X: 639, Y: 479, Width: 1, Height: 1},
		{X: 123, Y: 77, Width: 11, Height: 313},
	}

	for _, r := range rects {
		m := FromRect(r, size, 0)
		if got := m.BoundingRect(); got != r {
			t.Errorf("Expected %+v after rebuild, got %+v", r, got)
		}
	}
}

func TestZeroAreaMark(t *testing.T) {
	m := FromCenterSize(types.Point{X: 0.5, Y: 0.5}, types.Point{}, types.Size{Width: 100, Height: 100}, 0)

	b := m.NormalizedRect()
	if b.W != 0 || b.H != 0 {
		t.Errorf("Expected zero normalized size, got %fx%f", b.W, b.H)
	}
	if !m.Balanced() {
		t.Error("Zero-area mark should still be balanced")
	}
	if r := m.BoundingRect(); r.Width != 1 || r.Height != 1 {
		t.Errorf("Expected single pixel rect, got %+v", r)
	}
}

func TestRebalanceIdempotent(t *testing.T) {
	m := newRectMark()
	if err := m.Rebalance(); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	first := m.corners
	if err := m.Rebalance(); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if m.corners != first {
		t.Errorf("Expected identical corner map, got %v then %v", first, m.corners)
	}
}

func TestCornerSelfCorrection(t *testing.T) {
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			m := newRectMark()
			want := m.corners

			m.corners[a], m.corners[b] = m.corners[b], m.corners[a]
			if err := m.Rebalance(); err != nil {
				t.Fatalf("Rebalance failed: %v", err)
			}
			if m.corners != want {
				t.Errorf("Swap %s/%s: expected %v, got %v", Corners[a], Corners[b], want, m.corners)
			}
		}
	}
}

func TestRebalanceIgnoresInsertionOrder(t *testing.T) {
	m := New(types.Size{Width: 100, Height: 100}, 0)
	m.AddPoint(types.Point{X: 0.9, Y: 0.8})
	m.AddPoint(types.Point{X: 0.1, Y: 0.2})
	m.AddPoint(types.Point{X: 0.1, Y: 0.8})
	m.AddPoint(types.Point{X: 0.9, Y: 0.2})

	expected := map[CornerType]types.Point{
		TopLeft:     {X: 0.1, Y: 0.2},
		TopRight:    {X: 0.9, Y: 0.2},
		BottomRight: {X: 0.9, Y: 0.8},
		BottomLeft:  {X: 0.1, Y: 0.8},
	}
	for c, p := range expected {
		if got := m.CornerNormalized(c); got != p {
			t.Errorf("Expected %s at %+v, got %+v", c, p, got)
		}
	}
}

func TestSetPointCrossingCorner(t *testing.T) {
	m := newRectMark()
	if err := m.SetPoint(TopLeft, types.Point{X: 0.8, Y: 0.8}); err != nil {
		t.Fatalf("SetPoint failed: %v", err)
	}

	b := m.NormalizedRect()
	if got := m.CornerNormalized(BottomRight); got != (types.Point{X: 0.8, Y: 0.8}) {
		t.Errorf("Dragged point should become bottom-right, got %+v", got)
	}
	if math.Abs(b.X-0.2) > 1e-9 || math.Abs(b.W-0.6) > 1e-9 {
		t.Errorf("Unexpected bounding box %+v", b)
	}

	outline, err := m.Outline()
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	if !outline.IsClosed() {
		t.Error("Outline should be a closed ring")
	}
	if !outline.IsSimple() {
		t.Error("Outline should not self-intersect")
	}
}

func TestSetPointClamps(t *testing.T) {
	m := newRectMark()
	if err := m.SetPoint(BottomRight, types.Point{X: 1.7, Y: -0.3}); err != nil {
		t.Fatalf("SetPoint failed: %v", err)
	}
	for _, p := range m.Points() {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			t.Errorf("Point %+v escaped [0,1]", p)
		}
	}
}

func TestRebalanceRequiresFourPoints(t *testing.T) {
	m := New(types.Size{Width: 100, Height: 100}, 0)
	m.AddPoint(types.Point{X: 0.1, Y: 0.1})
	m.AddPoint(types.Point{X: 0.5, Y: 0.1})
	m.AddPoint(types.Point{X: 0.5, Y: 0.5})

	err := m.Rebalance()
	if !errors.Is(err, ErrPointCount) {
		t.Errorf("Expected ErrPointCount, got %v", err)
	}
	if m.Balanced() {
		t.Error("Three point mark must not be balanced")
	}
	if err := m.SetPoint(TopLeft, types.Point{}); !errors.Is(err, ErrPointCount) {
		t.Errorf("Expected SetPoint to refuse, got %v", err)
	}
	if len(m.Points()) != 3 {
		t.Errorf("Points must be left untouched, got %d", len(m.Points()))
	}
}

func TestAddPointRefusesFifthPoint(t *testing.T) {
	m := FromCenterSize(types.Point{X: 0.5, Y: 0.5}, types.Point{X: 0.2, Y: 0.2}, types.Size{Width: 100, Height: 100}, 0)
	before := m.NormalizedRect()

	err := m.AddPoint(types.Point{X: 0.9, Y: 0.9})
	if !errors.Is(err, ErrPointCount) {
		t.Errorf("Expected ErrPointCount, got %v", err)
	}
	if len(m.Points()) != 4 {
		t.Errorf("Expected 4 points, got %d", len(m.Points()))
	}
	if !m.Balanced() {
		t.Error("Mark should stay balanced")
	}
	if m.NormalizedRect() != before {
		t.Errorf("Expected rect %+v to be unchanged, got %+v", before, m.NormalizedRect())
	}
	if got := m.CornerNormalized(TopLeft); math.Abs(got.X-0.4) > 1e-9 || math.Abs(got.Y-0.4) > 1e-9 {
		t.Errorf("Expected top-left at (0.4,0.4), got %+v", got)
	}
}

func TestPointCountErrorsReportCount(t *testing.T) {
	m := New(types.Size{Width: 100, Height: 100}, 0)
	m.AddPoint(types.Point{X: 0.1, Y: 0.1})
	m.AddPoint(types.Point{X: 0.5, Y: 0.1})

	for name, err := range map[string]error{
		"Rebalance": m.Rebalance(),
		"SetPoint":  m.SetPoint(TopLeft, types.Point{}),
	} {
		if !errors.Is(err, ErrPointCount) || !strings.Contains(err.Error(), "have 2") {
			t.Errorf("%s: expected ErrPointCount with the point count, got %v", name, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := newRectMark()
	c := m.Clone()
	if c.ID != m.ID {
		t.Error("Clone should keep the ID")
	}

	c.RebuildFromBox(types.Box{X: 0, Y: 0, W: 0.1, H: 0.1})
	if m.NormalizedRect() == c.NormalizedRect() {
		t.Error("Modifying the clone changed the original")
	}
}

func TestMidpointAndColour(t *testing.T) {
	m := newRectMark()
	if mp := m.Midpoint(); mp != image.Pt(320, 240) {
		t.Errorf("Expected midpoint (320,240), got %v", mp)
	}
	if m.Colour() != ClassColour(0) {
		t.Error("Mark colour should follow its class")
	}
	if ClassColour(len(palette)) != ClassColour(0) {
		t.Error("Palette should wrap around")
	}
}

func TestAccept(t *testing.T) {
	m := newRectMark()
	m.Provisional = true
	m.Name = "dog 87%"
	m.Confidence = 0.87

	m.Accept("dog")
	if m.Provisional || m.Name != "dog" || m.Confidence != 0 {
		t.Errorf("Unexpected state after accept: %+v", m)
	}
}

func TestCollection(t *testing.T) {
	c := NewCollection()
	a, b, d := newRectMark(), newRectMark(), newRectMark()
	d.ID = uuid.Nil

	c.Add(a)
	c.Add(b)
	id := c.Add(d)
	if id == uuid.Nil {
		t.Fatal("Add should assign an ID")
	}
	if c.Len() != 3 {
		t.Fatalf("Expected 3 marks, got %d", c.Len())
	}

	if !c.Delete(b.ID) {
		t.Error("Delete should report removal")
	}
	if c.Delete(b.ID) {
		t.Error("Second delete should report nothing removed")
	}
	all := c.All()
	if len(all) != 2 || all[0] != a || all[1] != d {
		t.Errorf("Unexpected order after delete: %v", all)
	}
	if got, ok := c.Get(a.ID); !ok || got != a {
		t.Error("Get should find a by ID")
	}

	a.ClassID = 5
	if n := c.DeleteWhere(func(m *Mark) bool { return m.ClassID == 5 }); n != 1 {
		t.Errorf("Expected 1 removed, got %d", n)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Expected empty collection, got %d", c.Len())
	}
}

func BenchmarkRebalance(b *testing.B) {
	m := newRectMark()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Rebalance()
	}
}
