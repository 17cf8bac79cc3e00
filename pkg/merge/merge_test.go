package merge

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-annotator/pkg/frames"
	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/types"
)

var frameSize = types.Size{Width: 800, Height: 600}

func newFrames(n int) []*frames.Frame {
	out := make([]*frames.Frame, n)
	for i := range out {
		out[i] = frames.NewFrame(i, "", image.NewGray(image.Rect(0, 0, frameSize.Width, frameSize.Height)))
	}
	return out
}

// failingProvider fails to load one index
type failingProvider struct {
	*frames.Memory
	fail int
}

func (p failingProvider) LoadFrame(ctx context.Context, index int) (*frames.Frame, error) {
	if index == p.fail {
		return nil, &frames.LoadError{Kind: frames.Decode, Index: index, Err: errors.New("corrupt")}
	}
	return p.Memory.LoadFrame(ctx, index)
}

type fixture struct {
	frames []*frames.Frame
	nav    *frames.Navigator
	engine *Engine
	a, b   *mark.Mark
}

func newFixture(t *testing.T, provider func(*frames.Memory) frames.Provider) *fixture {
	t.Helper()
	fs := newFrames(11)
	mem := frames.NewMemory(fs...)
	var p frames.Provider = mem
	if provider != nil {
		p = provider(mem)
	}
	nav := frames.NewNavigator(p, nil, zerolog.Nop())

	a := mark.FromCenterSize(types.Point{X: 0.2, Y: 0.3}, types.Point{X: 0.1, Y: 0.2}, frameSize, 4)
	a.Name = "cup"
	fs[0].Marks.Add(a)
	b := mark.FromCenterSize(types.Point{X: 0.6, Y: 0.5}, types.Point{X: 0.3, Y: 0.1}, frameSize, 4)
	b.Name = "other label"
	fs[10].Marks.Add(b)

	return &fixture{frames: fs, nav: nav, engine: New(nav, zerolog.Nop()), a: a, b: b}
}

func (fx *fixture) selectAt(t *testing.T, ctx context.Context, index int, m *mark.Mark) (Result, error) {
	t.Helper()
	_, err := fx.nav.Load(ctx, index)
	require.NoError(t, err)
	return fx.engine.Select(ctx, m)
}

func TestInterpolationLinearity(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	fx.engine.Arm()

	res, err := fx.selectAt(t, ctx, 0, fx.a)
	require.NoError(t, err)
	assert.Equal(t, AwaitingSecond, res.Stage)

	res, err = fx.selectAt(t, ctx, 10, fx.b)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Created)
	assert.False(t, fx.engine.Active())
	assert.Equal(t, 10, fx.nav.Index())

	for i := 1; i < 10; i++ {
		assert.Equal(t, 1, fx.frames[i].Marks.Len(), "frame %d", i)
	}

	mid := fx.frames[5].Marks.All()[0]
	box := mid.NormalizedRect()
	assert.InDelta(t, 0.4, box.Center().X, 1e-9)
	assert.InDelta(t, 0.4, box.Center().Y, 1e-9)
	assert.InDelta(t, 0.2, box.W, 1e-9)
	assert.InDelta(t, 0.15, box.H, 1e-9)
	assert.Equal(t, 4, mid.ClassID)
	assert.Equal(t, "cup", mid.Name)
	assert.NotEqual(t, fx.a.ID, mid.ID)

	// key frames are untouched
	assert.Equal(t, 1, fx.frames[0].Marks.Len())
	assert.Equal(t, 1, fx.frames[10].Marks.Len())
}

func TestInterpolationBackwards(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	fx.engine.Arm()

	_, err := fx.selectAt(t, ctx, 10, fx.b)
	require.NoError(t, err)
	res, err := fx.selectAt(t, ctx, 0, fx.a)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Created)
	assert.Equal(t, 0, fx.nav.Index())

	// t is measured from the first key frame, here frame 10
	near := fx.frames[9].Marks.All()[0].NormalizedRect()
	assert.InDelta(t, 0.6-0.04, near.Center().X, 1e-9)
	assert.Equal(t, "other label", fx.frames[9].Marks.All()[0].Name)
}

func TestSelectWithoutMark(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.engine.Select(ctx, fx.a)
	assert.ErrorIs(t, err, ErrNotArmed)

	fx.engine.Arm()
	res, err := fx.selectAt(t, ctx, 0, nil)
	assert.ErrorIs(t, err, ErrNoMarkSelected)
	assert.Equal(t, AwaitingFirst, res.Stage)
	assert.True(t, fx.engine.Active())
}

func TestInvalidSecondSelectionResets(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		second func(fx *fixture) *mark.Mark
		want   error
	}{
		{"no mark", 10, func(*fixture) *mark.Mark { return nil }, ErrNoMarkSelected},
		{"class mismatch", 10, func(fx *fixture) *mark.Mark {
			m := fx.b.Clone()
			m.ClassID = 7
			return m
		}, ErrClassMismatch},
		{"adjacent frames", 1, func(fx *fixture) *mark.Mark { return fx.a.Clone() }, ErrNoIntermediateFrames},
		{"same frame", 0, func(fx *fixture) *mark.Mark { return fx.a }, ErrNoIntermediateFrames},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, nil)
			ctx := context.Background()
			fx.engine.Arm()
			_, err := fx.selectAt(t, ctx, 0, fx.a)
			require.NoError(t, err)

			res, err := fx.selectAt(t, ctx, tt.index, tt.second(fx))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, AwaitingFirst, res.Stage)
			assert.Equal(t, AwaitingFirst, fx.engine.Stage())
			assert.Zero(t, res.Created)
			for _, f := range fx.frames[1:10] {
				assert.Zero(t, f.Marks.Len())
			}
		})
	}
}

func TestCancel(t *testing.T) {
	fx := newFixture(t, nil)
	fx.engine.Arm()
	_, err := fx.selectAt(t, context.Background(), 0, fx.a)
	require.NoError(t, err)

	fx.engine.Cancel()
	assert.False(t, fx.engine.Active())
	assert.Equal(t, Off, fx.engine.Stage())
}

func TestLoadFailureKeepsPartialResult(t *testing.T) {
	fx := newFixture(t, func(m *frames.Memory) frames.Provider {
		return failingProvider{Memory: m, fail: 4}
	})
	ctx := context.Background()
	fx.engine.Arm()
	_, err := fx.selectAt(t, ctx, 0, fx.a)
	require.NoError(t, err)

	res, err := fx.selectAt(t, ctx, 10, fx.b)
	require.Error(t, err)
	kind, ok := frames.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, frames.Decode, kind)

	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, fx.frames[3].Marks.Len())
	assert.Zero(t, fx.frames[5].Marks.Len())
	assert.Equal(t, 10, fx.nav.Index())
	assert.False(t, fx.engine.Active())
}

func TestCancelledRunRestoresFrame(t *testing.T) {
	fx := newFixture(t, nil)
	fx.engine.Arm()
	_, err := fx.selectAt(t, context.Background(), 0, fx.a)
	require.NoError(t, err)
	_, err = fx.nav.Load(context.Background(), 10)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := fx.engine.Select(ctx, fx.b)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Created)
	assert.Equal(t, 10, fx.nav.Index())
}
