package editor

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/menta2k/image-annotator/pkg/frames"
	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/types"
)

// MassDelete removes every mark of classID lying fully inside the screen rectangle r,
// on the current frame and the forward frames after it. Frames past the end are skipped.
// The current frame is restored afterwards, also when the run stops early; the count of
// marks deleted so far is returned with the error that stopped it.
func (e *Editor) MassDelete(ctx context.Context, r image.Rectangle, classID, forward int) (int, error) {
	start := e.nav.Current()
	if start == nil {
		return 0, ErrNoFrame
	}
	sel := e.normalizedSelection(r.Canon(), start.Size)

	total := deleteContained(start, sel, classID)
	var runErr error
	visited := false
	for i := start.Index + 1; i <= start.Index+forward && i < e.nav.Len(); i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		visited = true
		f, err := e.nav.Load(ctx, i)
		if err != nil {
			runErr = fmt.Errorf("mass delete frame %d: %w", i, err)
			break
		}
		total += deleteContained(f, sel, classID)
	}

	if visited {
		if _, err := e.nav.Load(context.WithoutCancel(ctx), start.Index); err != nil && runErr == nil {
			runErr = fmt.Errorf("restore frame %d: %w", start.Index, err)
		}
	}
	if e.Selected() == nil {
		e.selected = uuid.Nil
	}

	ev := e.log.Info()
	if runErr != nil {
		ev = e.log.Warn().Err(runErr)
	}
	ev.Int("class", classID).Int("forward", forward).Int("deleted", total).Msg("mass delete finished")
	return total, runErr
}

// normalizedSelection converts a screen rectangle into normalized image coordinates
func (e *Editor) normalizedSelection(r image.Rectangle, size types.Size) types.Box {
	if size.Empty() {
		return types.Box{}
	}
	x0, y0 := e.view.ToImageF(r.Min)
	x1, y1 := e.view.ToImageF(r.Max)
	fw, fh := float64(size.Width), float64(size.Height)
	return types.Box{X: x0 / fw, Y: y0 / fh, W: (x1 - x0) / fw, H: (y1 - y0) / fh}
}

func deleteContained(f *frames.Frame, sel types.Box, classID int) int {
	n := f.Marks.DeleteWhere(func(m *mark.Mark) bool {
		return m.ClassID == classID && sel.Contains(m.NormalizedRect())
	})
	if n > 0 {
		f.NeedsSave = true
	}
	return n
}
