package frames

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/snap"
	"github.com/menta2k/image-annotator/pkg/types"
)

type fakeStore struct {
	saved map[string][]*mark.Mark
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]*mark.Mark)}
}

func (s *fakeStore) LoadMarks(_ context.Context, path string, _ types.Size) ([]*mark.Mark, error) {
	return s.saved[path], nil
}

func (s *fakeStore) SaveMarks(_ context.Context, path string, _ types.Size, marks []*mark.Mark) error {
	s.saves++
	s.saved[path] = marks
	return nil
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	require.NoError(t, imaging.Save(img, path))
}

func TestOpenDirSortsImages(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "b.png"), 20, 10)
	writeImage(t, filepath.Join(dir, "a.png"), 20, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	d, err := OpenDir(dir, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, filepath.Join(dir, "a.png"), d.Path(0))
	assert.Equal(t, "", d.Path(5))
}

func TestOpenDirMissing(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "missing"), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeImage(t, path, 32, 24)

	store := newFakeStore()
	store.saved[path] = []*mark.Mark{mark.FromRect(types.Rect{X: 1, Y: 1, Width: 10, Height: 10}, types.Size{Width: 32, Height: 24}, 2)}

	d, err := OpenDir(dir, store, zerolog.Nop())
	require.NoError(t, err)

	f, err := d.LoadFrame(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, types.Size{Width: 32, Height: 24}, f.Size)
	assert.Equal(t, 1, f.Marks.Len())
	assert.False(t, f.NeedsSave)
}

func TestLoadFrameKinds(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.png")
	gone := filepath.Join(dir, "b.png")
	broken := filepath.Join(dir, "c.png")
	writeImage(t, good, 8, 8)
	writeImage(t, gone, 8, 8)
	require.NoError(t, os.WriteFile(broken, []byte("not an image"), 0o644))

	d, err := OpenDir(dir, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, os.Remove(gone))

	ctx := context.Background()
	tests := []struct {
		name  string
		index int
		kind  LoadKind
	}{
		{"negative index", -1, OutOfRange},
		{"past the end", 3, OutOfRange},
		{"removed file", 1, NotFound},
		{"undecodable", 2, Decode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.LoadFrame(ctx, tt.index)
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}

	_, err = d.LoadFrame(ctx, 3)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestLoadFrameCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory(NewFrame(0, "a", image.NewGray(image.Rect(0, 0, 4, 4)))).LoadFrame(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameBinaryCache(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 0})
	f := NewFrame(0, "a", img)

	cfg := snap.DefaultBinarizeConfig()
	first := f.Binary(cfg)
	assert.Same(t, first, f.Binary(cfg))
	assert.True(t, snap.IsContent(first, 1, 1))
	assert.False(t, snap.IsContent(first, 0, 0))

	cfg.ContentIsDark = false
	inverted := f.Binary(cfg)
	assert.NotSame(t, first, inverted)
	assert.True(t, snap.IsContent(inverted, 0, 0))
}

func TestNavigatorSavesBeforeSwitching(t *testing.T) {
	a := NewFrame(0, "a.png", image.NewGray(image.Rect(0, 0, 10, 10)))
	b := NewFrame(0, "b.png", image.NewGray(image.Rect(0, 0, 10, 10)))
	store := newFakeStore()
	nav := NewNavigator(NewMemory(a, b), store, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, -1, nav.Index())
	_, err := nav.Load(ctx, 0)
	require.NoError(t, err)

	nav.Current().Marks.Add(mark.FromRect(types.Rect{X: 0, Y: 0, Width: 5, Height: 5}, a.Size, 0))
	nav.Current().NeedsSave = true

	_, err = nav.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, nav.Index())
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.saved["a.png"], 1)
	assert.False(t, a.NeedsSave)

	// clean frames are not saved again
	_, err = nav.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestNavigatorKeepsCurrentOnFailure(t *testing.T) {
	a := NewFrame(0, "a.png", image.NewGray(image.Rect(0, 0, 10, 10)))
	nav := NewNavigator(NewMemory(a), nil, zerolog.Nop())
	ctx := context.Background()

	_, err := nav.Load(ctx, 0)
	require.NoError(t, err)
	_, err = nav.Load(ctx, 4)
	require.Error(t, err)
	assert.Same(t, a, nav.Current())
}
