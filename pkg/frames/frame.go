package frames

import (
	"context"
	"image"

	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/snap"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Frame is one image of the working set together with its marks
type Frame struct {
	Index int
	Path  string
	Image image.Image
	Size  types.Size
	Marks *mark.Collection

	// NeedsSave is set whenever Marks changed since the frame was loaded or saved
	NeedsSave bool

	binary    *image.Gray
	binaryCfg snap.BinarizeConfig
}

// NewFrame wraps an already decoded image
func NewFrame(index int, path string, img image.Image) *Frame {
	b := img.Bounds()
	return &Frame{
		Index: index,
		Path:  path,
		Image: img,
		Size:  types.Size{Width: b.Dx(), Height: b.Dy()},
		Marks: mark.NewCollection(),
	}
}

// Binary returns the binarized image, computing it on first use or when cfg changes
func (f *Frame) Binary(cfg snap.BinarizeConfig) *image.Gray {
	if f.binary == nil || f.binaryCfg != cfg {
		f.binary = snap.Binarize(f.Image, cfg)
		f.binaryCfg = cfg
	}
	return f.binary
}

// Provider loads frames by index
type Provider interface {
	Len() int
	LoadFrame(ctx context.Context, index int) (*Frame, error)
}

// MarkStore persists the marks of a frame, keyed by image path
type MarkStore interface {
	LoadMarks(ctx context.Context, path string, size types.Size) ([]*mark.Mark, error)
	SaveMarks(ctx context.Context, path string, size types.Size, marks []*mark.Mark) error
}
