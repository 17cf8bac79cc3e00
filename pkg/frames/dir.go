package frames

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/processing"
)

// Dir provides the images of a directory tree as frames, sorted by path
type Dir struct {
	root      string
	paths     []string
	processor *processing.Processor
	store     MarkStore
	log       zerolog.Logger
}

// OpenDir lists the images below root. store may be nil, in which case frames start without marks.
func OpenDir(root string, store MarkStore, log zerolog.Logger) (*Dir, error) {
	if !utils.DirExists(root) {
		return nil, fmt.Errorf("frames: %s is not a directory", root)
	}
	paths, err := utils.ListImageFiles(root)
	if err != nil {
		return nil, fmt.Errorf("frames: list %s: %w", root, err)
	}
	sort.Strings(paths)

	log.Debug().Str("dir", root).Int("frames", len(paths)).Msg("opened frame directory")
	return &Dir{
		root:      root,
		paths:     paths,
		processor: processing.NewProcessor(),
		store:     store,
		log:       log,
	}, nil
}

// Len returns the number of frames
func (d *Dir) Len() int {
	return len(d.paths)
}

// Path returns the image path of frame index
func (d *Dir) Path(index int) string {
	if index < 0 || index >= len(d.paths) {
		return ""
	}
	return d.paths[index]
}

// Paths returns every image path in frame order
func (d *Dir) Paths() []string {
	out := make([]string, len(d.paths))
	copy(out, d.paths)
	return out
}

// LoadFrame decodes frame index and attaches its stored marks
func (d *Dir) LoadFrame(ctx context.Context, index int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.paths) {
		return nil, &LoadError{Kind: OutOfRange, Index: index, Err: ErrOutOfRange}
	}
	path := d.paths[index]

	if _, err := os.Stat(path); err != nil {
		kind := Filesystem
		if errors.Is(err, fs.ErrNotExist) {
			kind = NotFound
		}
		return nil, &LoadError{Kind: kind, Index: index, Path: path, Err: err}
	}

	img, err := d.processor.LoadImage(path)
	if err != nil {
		kind := Decode
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			kind = Filesystem
		}
		return nil, &LoadError{Kind: kind, Index: index, Path: path, Err: err}
	}

	f := NewFrame(index, path, img)
	if d.store != nil {
		marks, err := d.store.LoadMarks(ctx, path, f.Size)
		if err != nil {
			return nil, &LoadError{Kind: Filesystem, Index: index, Path: path, Err: err}
		}
		for _, m := range marks {
			f.Marks.Add(m)
		}
	}

	d.log.Debug().Int("index", index).Str("path", path).Int("marks", f.Marks.Len()).Msg("loaded frame")
	return f, nil
}
