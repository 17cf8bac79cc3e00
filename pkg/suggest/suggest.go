// Package suggest turns vision model proposals into provisional marks
package suggest

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/menta2k/image-annotator/pkg/classes"
	"github.com/menta2k/image-annotator/pkg/client"
	"github.com/menta2k/image-annotator/pkg/frames"
	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/types"
)

// DefaultPrompt is filled with the quoted class names
const DefaultPrompt = `You are an object locator for dataset annotation.

Return JSON only:
{
  "objects": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ],
  "description": "short neutral sentence (<= 20 words)"
}

HARD RULES
- "label" must be exactly one of: %s.
- Report every visible instance of those labels; ignore anything else.
- "box" is the top-left corner plus width and height, normalized to [0,1] (NOT pixels).
- Boxes must tightly enclose the object.
- If nothing matches, return {"objects": [], "description": "..."}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config controls how images are sent and which proposals are kept
type Config struct {
	Model         string
	SendSize      int
	SendQuality   int
	MinConfidence float64
}

// DefaultConfig returns the standard suggestion parameters
func DefaultConfig() Config {
	return Config{
		Model:         "qwen2.5vl:7b",
		SendSize:      1024,
		SendQuality:   85,
		MinConfidence: 0.25,
	}
}

// Suggester proposes provisional marks for a frame
type Suggester struct {
	client    client.VisionClient
	classes   *classes.Table
	processor *processing.Processor
	config    Config
	log       zerolog.Logger
}

// New creates a suggester with default configuration
func New(c client.VisionClient, table *classes.Table) *Suggester {
	return NewWithConfig(DefaultConfig(), c, table, zerolog.Nop())
}

// NewWithConfig creates a suggester with custom configuration
func NewWithConfig(config Config, c client.VisionClient, table *classes.Table, log zerolog.Logger) *Suggester {
	if config.SendQuality <= 0 || config.SendQuality > 100 {
		config.SendQuality = DefaultConfig().SendQuality
	}
	return &Suggester{
		client:    c,
		classes:   table,
		processor: processing.NewProcessor(),
		config:    config,
		log:       log,
	}
}

// Prompt returns the prompt sent to the model
func (s *Suggester) Prompt() string {
	names := s.classes.Names()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf(DefaultPrompt, strings.Join(quoted, ", "))
}

// Suggest replaces the provisional marks of f with fresh model proposals and
// returns how many were added. Confirmed marks are never touched.
func (s *Suggester) Suggest(ctx context.Context, f *frames.Frame) (int, error) {
	imgB64, err := s.processor.PrepareImageForModel(f.Image, "jpg", s.config.SendSize, s.config.SendQuality)
	if err != nil {
		return 0, fmt.Errorf("prepare image: %w", err)
	}

	result, err := s.client.AnalyzeImage(ctx, s.config.Model, s.Prompt(), imgB64)
	if err != nil {
		return 0, fmt.Errorf("analyze frame %d: %w", f.Index, err)
	}

	marks := s.Marks(result, f.Size)
	removed := f.Marks.DeleteWhere(func(m *mark.Mark) bool { return m.Provisional })
	for _, m := range marks {
		f.Marks.Add(m)
	}
	if removed > 0 || len(marks) > 0 {
		f.NeedsSave = true
	}

	s.log.Debug().
		Int("frame", f.Index).
		Int("proposed", len(result.Objects)).
		Int("kept", len(marks)).
		Str("description", result.Description).
		Msg("suggestions applied")
	return len(marks), nil
}

// Marks converts proposals to provisional marks for an image of the given size.
// Unknown labels and proposals below the confidence floor are dropped.
func (s *Suggester) Marks(result *types.AnalysisResult, size types.Size) []*mark.Mark {
	var out []*mark.Mark
	for _, obj := range result.Objects {
		id, ok := s.classes.Lookup(obj.Label)
		if !ok {
			s.log.Debug().Str("label", obj.Label).Msg("dropping proposal with unknown label")
			continue
		}
		if obj.Confidence < s.config.MinConfidence {
			continue
		}

		b := normalizeBox(obj.Box, size)
		if b.W <= 0 || b.H <= 0 {
			continue
		}
		m := mark.FromCenterSize(b.Center(), b.Size(), size, id)
		name, _ := s.classes.Name(id)
		m.Name = fmt.Sprintf("%s %d%%", name, int(math.Round(obj.Confidence*100)))
		m.Provisional = true
		m.Confidence = obj.Confidence
		out = append(out, m)
	}
	return out
}

// normalizeBox clamps a box to the image. Boxes with any coordinate above 1 are read as pixels.
func normalizeBox(b types.Box, size types.Size) types.Box {
	if (b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1) && !size.Empty() {
		b = types.Box{
			X: b.X / float64(size.Width),
			Y: b.Y / float64(size.Height),
			W: b.W / float64(size.Width),
			H: b.H / float64(size.Height),
		}
	}
	x0, y0 := types.Clamp(b.X, 0, 1), types.Clamp(b.Y, 0, 1)
	x1, y1 := types.Clamp(b.X+b.W, 0, 1), types.Clamp(b.Y+b.H, 0, 1)
	return types.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
