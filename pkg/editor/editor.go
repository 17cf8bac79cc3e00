// Package editor implements the interactive editing state machine: pointer
// gestures, selection, mark creation and the per-mark commands built on them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/menta2k/image-annotator/pkg/classes"
	"github.com/menta2k/image-annotator/pkg/frames"
	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/merge"
	"github.com/menta2k/image-annotator/pkg/snap"
	"github.com/menta2k/image-annotator/pkg/types"
)

var (
	ErrNoFrame      = errors.New("no frame loaded")
	ErrNoSelection  = errors.New("no mark selected")
	ErrInvalidClass = errors.New("invalid class id")
)

// Prompter asks the user for input and shows messages
type Prompter interface {
	// MassDeleteParams asks for the class to delete and how many following frames to visit
	MassDeleteParams() (classID, forward int, ok bool)
	Notify(msg string)
}

type nopPrompter struct{}

func (nopPrompter) MassDeleteParams() (int, int, bool) { return 0, 0, false }
func (nopPrompter) Notify(string)                      {}

// Editor applies pointer events and commands to the current frame
type Editor struct {
	config  Config
	nav     *frames.Navigator
	classes *classes.Table
	snapper *snap.Engine
	merger  *merge.Engine
	ui      Prompter
	log     zerolog.Logger

	mode     Mode
	selected uuid.UUID
	view     View

	showReal        bool
	showProvisional bool
	massDelete      bool

	lastClass int
	lastSize  types.Point
}

// New creates an editor with default configuration
func New(nav *frames.Navigator, table *classes.Table) *Editor {
	return NewWithConfig(DefaultConfig(), nav, table, zerolog.Nop())
}

// NewWithConfig creates an editor with custom configuration
func NewWithConfig(config Config, nav *frames.Navigator, table *classes.Table, log zerolog.Logger) *Editor {
	if config.CornerHitRadius <= 0 {
		config.CornerHitRadius = DefaultConfig().CornerHitRadius
	}
	if config.DefaultMarkSize.X <= 0 || config.DefaultMarkSize.Y <= 0 {
		config.DefaultMarkSize = DefaultConfig().DefaultMarkSize
	}
	return &Editor{
		config:          config,
		nav:             nav,
		classes:         table,
		snapper:         snap.NewWithConfig(config.Snap, log),
		merger:          merge.New(nav, log),
		ui:              nopPrompter{},
		log:             log,
		mode:            Idle{},
		view:            View{Zoom: 1},
		showReal:        true,
		showProvisional: true,
	}
}

// SetPrompter installs the user interaction callbacks
func (e *Editor) SetPrompter(p Prompter) {
	if p == nil {
		p = nopPrompter{}
	}
	e.ui = p
}

// Mode returns the gesture in progress
func (e *Editor) Mode() Mode {
	return e.mode
}

// View returns the current view transform
func (e *Editor) View() View {
	return e.view
}

// ZoomAt changes the zoom keeping the image point under anchor fixed
func (e *Editor) ZoomAt(zoom float64, anchor image.Point) {
	e.view.ZoomAt(zoom, anchor)
}

// Merge returns the interpolation engine
func (e *Editor) Merge() *merge.Engine {
	return e.merger
}

// SetFilters chooses which marks are visible and selectable
func (e *Editor) SetFilters(showReal, showProvisional bool) {
	e.showReal = showReal
	e.showProvisional = showProvisional
	if m := e.Selected(); m != nil && !e.visible(m) {
		e.selected = uuid.Nil
	}
}

// ToggleMassDelete switches mass-delete mode and reports the new state
func (e *Editor) ToggleMassDelete() bool {
	e.massDelete = !e.massDelete
	e.mode = Idle{}
	return e.massDelete
}

// Selected returns the selected mark on the current frame, or nil
func (e *Editor) Selected() *mark.Mark {
	f := e.nav.Current()
	if f == nil || e.selected == uuid.Nil {
		return nil
	}
	m, ok := f.Marks.Get(e.selected)
	if !ok {
		return nil
	}
	return m
}

// Select selects the mark with the given ID; uuid.Nil clears the selection
func (e *Editor) Select(id uuid.UUID) {
	e.selected = id
}

// Escape abandons the gesture in progress and leaves merge mode
func (e *Editor) Escape() {
	e.mode = Idle{}
	e.merger.Cancel()
}

// PointerDown starts a gesture at screen point p
func (e *Editor) PointerDown(p image.Point, mods Modifiers) {
	f := e.nav.Current()
	if f == nil {
		return
	}
	if mods.Has(ModPan) {
		e.mode = Panning{Last: p}
		return
	}
	if e.massDelete {
		e.mode = MassDeleting{Start: p, Current: p}
		return
	}

	px := e.view.ToImage(p)
	if m := e.Selected(); m != nil && m.BoundingRectFor(f.Size).ContainsPoint(px.X, px.Y) {
		if c, ok := e.cornerAt(m, f.Size, px); ok && !m.Provisional {
			e.mode = ResizingCorner{Mark: m.ID, Corner: c, Pinned: m.CornerFor(c.Opposite(), f.Size)}
			return
		}
		e.mode = Repositioning{Mark: m.ID, Start: px, Origin: m.BoundingRectFor(f.Size)}
		return
	}

	if m := e.markAt(f, px); m != nil {
		e.selected = m.ID
		e.mode = Idle{}
		return
	}

	e.selected = uuid.Nil
	start := clampPixel(px, f.Size)
	e.mode = Creating{Start: start, Current: start}
}

// PointerDrag continues the gesture in progress
func (e *Editor) PointerDrag(p image.Point) {
	f := e.nav.Current()
	if f == nil {
		return
	}
	px := e.view.ToImage(p)

	switch mode := e.mode.(type) {
	case Creating:
		mode.Current = clampPixel(px, f.Size)
		e.mode = mode

	case ResizingCorner:
		m, ok := f.Marks.Get(mode.Mark)
		if !ok {
			e.mode = Idle{}
			return
		}
		m.RebuildFromRect(rectFromCorners(mode.Pinned, clampPixel(px, f.Size)))

	case Repositioning:
		m, ok := f.Marks.Get(mode.Mark)
		if !ok {
			e.mode = Idle{}
			return
		}
		r := mode.Origin
		r.X = clampInt(r.X+px.X-mode.Start.X, 0, f.Size.Width-r.Width)
		r.Y = clampInt(r.Y+px.Y-mode.Start.Y, 0, f.Size.Height-r.Height)
		m.RebuildFromRect(r)

	case Panning:
		e.view.Pan(p.X-mode.Last.X, p.Y-mode.Last.Y)
		mode.Last = p
		e.mode = mode

	case MassDeleting:
		mode.Current = p
		e.mode = mode
	}
}

// PointerUp finishes the gesture in progress
func (e *Editor) PointerUp(ctx context.Context, p image.Point, mods Modifiers) error {
	f := e.nav.Current()
	mode := e.mode
	e.mode = Idle{}
	if f == nil {
		return nil
	}

	switch mode := mode.(type) {
	case Creating:
		r := rectFromCorners(mode.Start, clampPixel(e.view.ToImage(p), f.Size))
		if r.Area() <= e.config.MinCreateArea {
			return nil
		}
		b := r.Normalized(f.Size)
		b.W = float64(r.Width-1) / float64(f.Size.Width)
		b.H = float64(r.Height-1) / float64(f.Size.Height)
		m := e.create(f, b.Center(), b.Size(), mods)
		e.lastSize = b.Size()
		e.log.Debug().Str("mark", m.ID.String()).Interface("rect", m.BoundingRect()).Msg("created mark")

	case ResizingCorner:
		if m, ok := f.Marks.Get(mode.Mark); ok {
			e.lastSize = m.NormalizedRect().Size()
		}
		f.NeedsSave = true

	case Repositioning:
		f.NeedsSave = true

	case MassDeleting:
		classID, forward, ok := e.ui.MassDeleteParams()
		if !ok {
			return nil
		}
		n, err := e.MassDelete(ctx, image.Rectangle{Min: mode.Start, Max: p}, classID, forward)
		if err != nil {
			e.ui.Notify(fmt.Sprintf("Deleted %d marks before stopping: %v", n, err))
			return err
		}
		e.ui.Notify(fmt.Sprintf("Deleted %d marks", n))
	}
	return nil
}

// DoubleClick creates a mark of the last used class and size centered at p.
// In merge mode it instead feeds the mark under p to the interpolation engine.
func (e *Editor) DoubleClick(ctx context.Context, p image.Point, mods Modifiers) error {
	f := e.nav.Current()
	if f == nil {
		return ErrNoFrame
	}
	e.mode = Idle{}
	px := e.view.ToImage(p)

	if e.merger.Active() {
		m := e.markAt(f, px)
		res, err := e.merger.Select(ctx, m)
		switch {
		case err != nil:
			e.ui.Notify(fmt.Sprintf("Merge: %v", err))
		case res.Stage == merge.AwaitingSecond:
			e.ui.Notify("Merge: select the matching mark on another frame")
		default:
			e.ui.Notify(fmt.Sprintf("Merge: created %d marks between frames %d and %d", res.Created, res.From, res.To))
		}
		return err
	}

	if !(types.Rect{Width: f.Size.Width, Height: f.Size.Height}).ContainsPoint(px.X, px.Y) {
		return nil
	}
	size := e.lastSize
	if size.X <= 0 || size.Y <= 0 {
		size = e.config.DefaultMarkSize
	}
	center := types.Point{X: float64(px.X) / float64(f.Size.Width), Y: float64(px.Y) / float64(f.Size.Height)}
	e.create(f, center, size, mods)
	return nil
}

func (e *Editor) create(f *frames.Frame, center, size types.Point, mods Modifiers) *mark.Mark {
	m := mark.FromCenterSize(center, size, f.Size, e.lastClass)
	m.Name, _ = e.classes.Name(e.lastClass)
	f.Marks.Add(m)
	f.NeedsSave = true
	e.selected = m.ID

	if e.config.SnapByDefault != mods.Has(ModSnap) {
		e.snapper.Snap(m, f.Binary(e.snapper.Config().Binarize))
	}
	return m
}

func (e *Editor) visible(m *mark.Mark) bool {
	if m.Provisional {
		return e.showProvisional
	}
	return e.showReal
}

// markAt picks the visible mark with the smallest bounding rectangle containing px.
// The first one found wins a tie.
func (e *Editor) markAt(f *frames.Frame, px image.Point) *mark.Mark {
	var best *mark.Mark
	bestArea := 0
	for _, m := range f.Marks.All() {
		if !e.visible(m) {
			continue
		}
		r := m.BoundingRectFor(f.Size)
		if !r.ContainsPoint(px.X, px.Y) {
			continue
		}
		if best == nil || r.Area() < bestArea {
			best, bestArea = m, r.Area()
		}
	}
	return best
}

// cornerAt returns the corner of m nearest px if it lies within the hit radius
func (e *Editor) cornerAt(m *mark.Mark, size types.Size, px image.Point) (mark.CornerType, bool) {
	radius := float64(e.config.CornerHitRadius) / e.view.zoom()
	best, bestDist := mark.TopLeft, math.Inf(1)
	for _, c := range mark.Corners {
		cp := m.CornerFor(c, size)
		d := math.Hypot(float64(cp.X-px.X), float64(cp.Y-px.Y))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist <= radius
}

// rectFromCorners spans two pixel corners inclusively
func rectFromCorners(a, b image.Point) types.Rect {
	x0, x1 := min(a.X, b.X), max(a.X, b.X)
	y0, y1 := min(a.Y, b.Y), max(a.Y, b.Y)
	return types.Rect{X: x0, Y: y0, Width: x1 - x0 + 1, Height: y1 - y0 + 1}
}

func clampPixel(p image.Point, s types.Size) image.Point {
	return image.Pt(clampInt(p.X, 0, s.Width-1), clampInt(p.Y, 0, s.Height-1))
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
