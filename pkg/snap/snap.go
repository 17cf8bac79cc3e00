// Package snap grows or shrinks a mark's rectangle until it hugs the content
// found in a binarized copy of the image.
package snap

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Config holds the snap parameters
type Config struct {
	HorizontalTolerance int
	VerticalTolerance   int
	MinSize             int
	RunawayFactor       float64
	Binarize            BinarizeConfig
}

// DefaultConfig returns the standard snap parameters
func DefaultConfig() Config {
	return Config{
		HorizontalTolerance: 5,
		VerticalTolerance:   5,
		MinSize:             10,
		RunawayFactor:       3,
		Binarize:            DefaultBinarizeConfig(),
	}
}

// Engine refines mark rectangles
type Engine struct {
	config Config
	log    zerolog.Logger
}

// New creates an Engine with default configuration
func New() *Engine {
	return NewWithConfig(DefaultConfig(), zerolog.Nop())
}

// NewWithConfig creates an Engine with custom configuration
func NewWithConfig(config Config, log zerolog.Logger) *Engine {
	if config.HorizontalTolerance < 1 {
		config.HorizontalTolerance = 1
	}
	if config.VerticalTolerance < 1 {
		config.VerticalTolerance = 1
	}
	if config.RunawayFactor <= 0 {
		config.RunawayFactor = 3
	}
	return &Engine{config: config, log: log}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// Result describes the outcome of snapping one mark
type Result struct {
	Original   types.Rect
	Rect       types.Rect
	Adjusted   bool
	Runaway    bool
	Iterations int
}

// Summary counts snap outcomes across several marks
type Summary struct {
	Snapped int
	Total   int
}

// Snap refines m against the binarized image bin. The mark is changed only when
// the result differs from the original rectangle and is at least MinSize in both
// dimensions.
func (e *Engine) Snap(m *mark.Mark, bin *image.Gray) Result {
	size := types.Size{Width: bin.Rect.Dx(), Height: bin.Rect.Dy()}
	original := m.BoundingRectFor(size)
	res := Result{Original: original, Rect: original}
	if size.Empty() || !m.Balanced() {
		return res
	}

	rect, iterations, runaway := e.converge(bin, size, original)
	res.Iterations = iterations
	res.Runaway = runaway
	if runaway {
		e.log.Debug().Str("mark", m.ID.String()).Int("iterations", iterations).Msg("snap runaway, keeping original")
		return res
	}
	if rect == original || rect.Width < e.config.MinSize || rect.Height < e.config.MinSize {
		return res
	}

	saved := m.ImageSize
	m.ImageSize = size
	m.RebuildFromRect(rect)
	m.ImageSize = saved

	res.Rect = rect
	res.Adjusted = true
	e.log.Debug().
		Str("mark", m.ID.String()).
		Interface("from", original).
		Interface("to", rect).
		Int("iterations", iterations).
		Msg("snapped mark")
	return res
}

// SnapAll snaps every non-provisional mark and reports how many were adjusted
func (e *Engine) SnapAll(marks []*mark.Mark, bin *image.Gray) Summary {
	var s Summary
	for _, m := range marks {
		if m.Provisional {
			continue
		}
		s.Total++
		if e.Snap(m, bin).Adjusted {
			s.Snapped++
		}
	}
	return s
}

func (e *Engine) converge(bin *image.Gray, size types.Size, original types.Rect) (types.Rect, int, bool) {
	maxStall := max(e.config.HorizontalTolerance, e.config.VerticalTolerance)
	limit := size.Width + size.Height + maxStall
	runawayArea := e.config.RunawayFactor * float64(original.Area())

	roi := original
	stall := 0
	iterations := 0
	for attempt := 0; iterations < limit; attempt++ {
		iterations++
		dx := min(attempt, e.config.HorizontalTolerance)
		dy := min(attempt, e.config.VerticalTolerance)
		grown := roi.Grow(dx, dy).ClampTo(size)

		next, ok := contentBounds(bin, grown)
		if !ok {
			return original, iterations, false
		}

		if next == roi {
			stall++
			if stall >= maxStall {
				break
			}
		} else {
			stall = 0
			if float64(next.Area()) > runawayArea {
				return original, iterations, true
			}
		}
		roi = next
	}
	return roi, iterations, false
}

// contentBounds returns the tight rectangle around every content pixel inside roi
func contentBounds(bin *image.Gray, roi types.Rect) (types.Rect, bool) {
	minX, minY := roi.Right(), roi.Bottom()
	maxX, maxY := -1, -1
	for y := roi.Y; y < roi.Bottom(); y++ {
		for x := roi.X; x < roi.Right(); x++ {
			if !IsContent(bin, x, y) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return types.Rect{}, false
	}
	return types.Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}, true
}
