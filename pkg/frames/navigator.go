package frames

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Navigator owns the current frame. Switching frames saves a frame that needs saving first.
type Navigator struct {
	provider Provider
	store    MarkStore
	current  *Frame
	log      zerolog.Logger
}

// NewNavigator creates a navigator with no frame loaded. store may be nil.
func NewNavigator(provider Provider, store MarkStore, log zerolog.Logger) *Navigator {
	return &Navigator{provider: provider, store: store, log: log}
}

// Len returns the number of frames available
func (n *Navigator) Len() int {
	return n.provider.Len()
}

// Current returns the loaded frame, or nil
func (n *Navigator) Current() *Frame {
	return n.current
}

// Index returns the current frame index, or -1 when nothing is loaded
func (n *Navigator) Index() int {
	if n.current == nil {
		return -1
	}
	return n.current.Index
}

// Load makes frame index current. On failure the current frame is left untouched.
func (n *Navigator) Load(ctx context.Context, index int) (*Frame, error) {
	if err := n.Save(ctx); err != nil {
		return nil, err
	}
	f, err := n.provider.LoadFrame(ctx, index)
	if err != nil {
		n.log.Warn().Err(err).Int("index", index).Msg("frame load failed")
		return nil, err
	}
	n.current = f
	return f, nil
}

// Save persists the current frame's marks if it needs saving
func (n *Navigator) Save(ctx context.Context) error {
	f := n.current
	if f == nil || !f.NeedsSave {
		return nil
	}
	if n.store != nil {
		if err := n.store.SaveMarks(ctx, f.Path, f.Size, f.Marks.All()); err != nil {
			return fmt.Errorf("save frame %d: %w", f.Index, err)
		}
		n.log.Debug().Int("index", f.Index).Int("marks", f.Marks.Len()).Msg("saved frame")
	}
	f.NeedsSave = false
	return nil
}
