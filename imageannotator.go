// Package imageannotator wires the annotation core into a working session over a
// directory of images.
//
// A session opens every image below a directory as a frame, persists marks in a
// SQLite store and exposes the editor together with the batch operations the CLI
// offers:
//
//	cfg := config.Default()
//	a, err := imageannotator.Open("dataset/", cfg, zerolog.Nop())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer a.Close()
//
//	summary, err := a.SnapAll(ctx)
//	files, lines, err := a.ExportYOLO(ctx)
//
// The components are:
//
//  1. Mark (pkg/mark): normalized quadrilaterals with corner rebalancing
//  2. Editor (pkg/editor): pointer gestures, selection and mass-delete
//  3. Snap (pkg/snap): content-aware rectangle refinement
//  4. Merge (pkg/merge): key-frame interpolation
//  5. Frames and Store (pkg/frames, pkg/store): image loading and persistence
//  6. Suggest (pkg/suggest): provisional marks from a vision model
package imageannotator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/classes"
	"github.com/menta2k/image-annotator/pkg/client"
	"github.com/menta2k/image-annotator/pkg/editor"
	"github.com/menta2k/image-annotator/pkg/export"
	"github.com/menta2k/image-annotator/pkg/frames"
	"github.com/menta2k/image-annotator/pkg/llamacpp"
	"github.com/menta2k/image-annotator/pkg/merge"
	"github.com/menta2k/image-annotator/pkg/ollama"
	"github.com/menta2k/image-annotator/pkg/processing"
	"github.com/menta2k/image-annotator/pkg/snap"
	"github.com/menta2k/image-annotator/pkg/store"
	"github.com/menta2k/image-annotator/pkg/suggest"
)

// Version of the image annotator library
const Version = "0.3.0"

// DefaultClassesFile is looked up in the image directory when no class file is configured
const DefaultClassesFile = "obj.names"

// ErrMarkIndex is returned when a mark position does not exist on a frame
var ErrMarkIndex = errors.New("mark index out of range")

// Annotator is an editing session over one image directory
type Annotator struct {
	config    *config.Config
	log       zerolog.Logger
	classes   *classes.Table
	store     *store.Store
	dir       *frames.Dir
	nav       *frames.Navigator
	editor    *editor.Editor
	processor *processing.Processor
}

// Open starts a session over the images below dir
func Open(dir string, cfg *config.Config, log zerolog.Logger) (*Annotator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	table, err := loadClasses(dir, cfg.Classes)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return nil, err
	}

	d, err := frames.OpenDir(dir, st, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	nav := frames.NewNavigator(d, st, log)
	return &Annotator{
		config:    cfg,
		log:       log,
		classes:   table,
		store:     st,
		dir:       d,
		nav:       nav,
		editor:    editor.NewWithConfig(cfg.EditorSettings(), nav, table, log),
		processor: processing.NewProcessor(),
	}, nil
}

func loadClasses(dir, path string) (*classes.Table, error) {
	if path == "" {
		path = filepath.Join(dir, DefaultClassesFile)
		if !utils.FileExists(path) {
			return classes.New(nil), nil
		}
	}
	table, err := classes.LoadNames(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}
	return table, nil
}

// Close saves the current frame and closes the store
func (a *Annotator) Close() error {
	err := a.nav.Save(context.Background())
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// Len returns the number of frames
func (a *Annotator) Len() int { return a.nav.Len() }

// Classes returns the class table
func (a *Annotator) Classes() *classes.Table { return a.classes }

// Editor returns the interactive editor
func (a *Annotator) Editor() *editor.Editor { return a.editor }

// Navigator returns the frame navigator
func (a *Annotator) Navigator() *frames.Navigator { return a.nav }

// Store returns the mark store
func (a *Annotator) Store() *store.Store { return a.store }

// Load makes frame index current
func (a *Annotator) Load(ctx context.Context, index int) (*frames.Frame, error) {
	return a.nav.Load(ctx, index)
}

// Save persists the current frame if it changed
func (a *Annotator) Save(ctx context.Context) error {
	return a.nav.Save(ctx)
}

// SnapFrame snaps every confirmed mark of frame index
func (a *Annotator) SnapFrame(ctx context.Context, index int) (snap.Summary, error) {
	if _, err := a.nav.Load(ctx, index); err != nil {
		return snap.Summary{}, err
	}
	return a.editor.SnapAll()
}

// SnapAll snaps every confirmed mark in every frame. Frames that fail to load are skipped.
func (a *Annotator) SnapAll(ctx context.Context) (snap.Summary, error) {
	var total snap.Summary
	err := a.eachFrame(ctx, func(f *frames.Frame) error {
		s, err := a.editor.SnapAll()
		total.Snapped += s.Snapped
		total.Total += s.Total
		return err
	})
	if err != nil {
		return total, err
	}
	return total, a.nav.Save(ctx)
}

// NewVisionClient creates the suggestion backend named in the configuration
func NewVisionClient(cfg config.SuggestConfig) (client.VisionClient, error) {
	switch cfg.Backend {
	case "ollama":
		return ollama.NewClient(cfg.URL)
	case "llamacpp":
		return llamacpp.NewClient(cfg.URL)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", cfg.Backend)
	}
}

// Suggest asks the vision model for provisional marks on frame index
func (a *Annotator) Suggest(ctx context.Context, vc client.VisionClient, index int) (int, error) {
	f, err := a.nav.Load(ctx, index)
	if err != nil {
		return 0, err
	}
	s := suggest.NewWithConfig(a.config.SuggestSettings(), vc, a.classes, a.log)
	n, err := s.Suggest(ctx, f)
	if err != nil {
		return 0, err
	}
	return n, a.nav.Save(ctx)
}

// Interpolate fills the frames between two key frames. Key marks are given by their
// position on their frame.
func (a *Annotator) Interpolate(ctx context.Context, from, fromMark, to, toMark int) (merge.Result, error) {
	m := a.editor.Merge()
	m.Arm()
	defer m.Cancel()

	for _, key := range [][2]int{{from, fromMark}, {to, toMark}} {
		f, err := a.nav.Load(ctx, key[0])
		if err != nil {
			return merge.Result{}, err
		}
		marks := f.Marks.All()
		if key[1] < 0 || key[1] >= len(marks) {
			return merge.Result{}, fmt.Errorf("%w: frame %d has %d marks", ErrMarkIndex, key[0], len(marks))
		}
		res, err := m.Select(ctx, marks[key[1]])
		if err != nil || res.Stage == merge.Off {
			if err == nil {
				err = a.nav.Save(ctx)
			}
			return res, err
		}
	}
	return merge.Result{}, nil
}

// MassDelete removes marks of classID lying inside the pixel rectangle r on frame
// index and the forward frames after it
func (a *Annotator) MassDelete(ctx context.Context, index int, r image.Rectangle, classID, forward int) (int, error) {
	if _, err := a.nav.Load(ctx, index); err != nil {
		return 0, err
	}
	n, err := a.editor.MassDelete(ctx, r, classID, forward)
	if serr := a.nav.Save(ctx); err == nil {
		err = serr
	}
	return n, err
}

// ExportYOLO writes a darknet label file next to every image.
// It returns the number of files and label lines written.
func (a *Annotator) ExportYOLO(ctx context.Context) (int, int, error) {
	files, lines := 0, 0
	err := a.eachFrame(ctx, func(f *frames.Frame) error {
		n, err := export.SaveYOLO(f.Path, f.Marks.All())
		if err != nil {
			return err
		}
		files++
		lines += n
		return nil
	})
	return files, lines, err
}

// RenderOverlay draws the marks of frame index over its image and saves it to path
func (a *Annotator) RenderOverlay(ctx context.Context, index int, path string) error {
	f, err := a.nav.Load(ctx, index)
	if err != nil {
		return err
	}
	out := a.processor.RenderMarks(f.Image, f.Marks.All(), a.editor.Selected())
	return a.processor.SaveImage(out, path, a.config.OutputSettings())
}

// ExportCrops saves every confirmed mark of frame index as its own image in outDir
func (a *Annotator) ExportCrops(ctx context.Context, index int, outDir string) ([]string, error) {
	f, err := a.nav.Load(ctx, index)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, err
	}

	out := a.config.OutputSettings()
	var confirmed []string
	for _, m := range f.Marks.All() {
		if !m.Provisional {
			confirmed = append(confirmed, m.Name)
		}
	}

	var paths []string
	for i, crop := range a.processor.CropMarks(f.Image, f.Marks.All()) {
		suffix := fmt.Sprintf("_%02d", i)
		if name := utils.SanitizeFilename(confirmed[i]); name != "" {
			suffix += "_" + name
		}
		path := utils.GenerateOutputFilename(f.Path, outDir, "", suffix, out.Extension)
		if err := a.processor.SaveImage(crop, path, out); err != nil {
			return paths, fmt.Errorf("failed to save crop %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// eachFrame loads every frame in order and calls fn on it. Frames that fail to load
// are logged and skipped; the current frame is restored afterwards.
func (a *Annotator) eachFrame(ctx context.Context, fn func(*frames.Frame) error) error {
	start := a.nav.Index()
	for i := 0; i < a.nav.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := a.nav.Load(ctx, i)
		if err != nil {
			a.log.Warn().Err(err).Int("frame", i).Msg("skipping frame")
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	if start >= 0 {
		if _, err := a.nav.Load(ctx, start); err != nil {
			return err
		}
	}
	return nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
