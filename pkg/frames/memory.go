package frames

import "context"

// Memory is a Provider over frames already held in memory.
// LoadFrame returns the stored frame itself, so edits survive reloads.
type Memory struct {
	frames []*Frame
}

// NewMemory creates a provider; frame indexes are reassigned to their position
func NewMemory(frames ...*Frame) *Memory {
	for i, f := range frames {
		f.Index = i
	}
	return &Memory{frames: frames}
}

// Len returns the number of frames
func (m *Memory) Len() int {
	return len(m.frames)
}

// LoadFrame returns frame index
func (m *Memory) LoadFrame(ctx context.Context, index int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(m.frames) {
		return nil, &LoadError{Kind: OutOfRange, Index: index, Err: ErrOutOfRange}
	}
	return m.frames[index], nil
}
