package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/menta2k/image-annotator/pkg/frames"
	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/types"
)

var (
	ErrNotArmed             = errors.New("merge mode is not active")
	ErrNoMarkSelected       = errors.New("no mark selected")
	ErrClassMismatch        = errors.New("key frame marks have different classes")
	ErrNoIntermediateFrames = errors.New("no frames between the key frames")
)

// Stage is the step the engine is waiting for
type Stage int

const (
	Off Stage = iota
	AwaitingFirst
	AwaitingSecond
)

func (s Stage) String() string {
	switch s {
	case AwaitingFirst:
		return "awaiting first key frame"
	case AwaitingSecond:
		return "awaiting second key frame"
	default:
		return "off"
	}
}

// Result describes a Select call
type Result struct {
	Stage Stage // stage after the call
	From  int   // first key frame index
	To    int   // second key frame index, set once interpolation ran
	// Created counts the marks appended to intermediate frames
	Created int
}

// Engine interpolates a mark across the frames between two key frames
type Engine struct {
	nav *frames.Navigator
	log zerolog.Logger

	stage      Stage
	first      *mark.Mark
	firstFrame int
}

// New creates an inactive engine working on nav
func New(nav *frames.Navigator, log zerolog.Logger) *Engine {
	return &Engine{nav: nav, log: log}
}

// Arm enters merge mode, discarding any stored key frame
func (e *Engine) Arm() {
	e.reset(AwaitingFirst)
}

// Active reports whether merge mode is on
func (e *Engine) Active() bool {
	return e.stage != Off
}

// Stage returns the current stage
func (e *Engine) Stage() Stage {
	return e.stage
}

// Cancel leaves merge mode
func (e *Engine) Cancel() {
	e.reset(Off)
}

func (e *Engine) reset(s Stage) {
	e.stage = s
	e.first = nil
	e.firstFrame = 0
}

// Select feeds the mark the user picked on the current frame. m may be nil.
//
// The first call stores a copy of m as key frame A. The second call, on frame B,
// appends an interpolated mark to every frame strictly between A and B and then
// reloads B. An invalid second selection drops key frame A and waits for a new one.
// The run stops early when ctx is done or a frame fails to load; marks already
// written are kept and the returned error says why it stopped.
func (e *Engine) Select(ctx context.Context, m *mark.Mark) (Result, error) {
	switch e.stage {
	case AwaitingFirst:
		if m == nil {
			return Result{Stage: e.stage}, ErrNoMarkSelected
		}
		e.first = m.Clone()
		e.firstFrame = e.nav.Index()
		e.stage = AwaitingSecond
		e.log.Debug().Int("frame", e.firstFrame).Str("mark", m.ID.String()).Msg("first key frame stored")
		return Result{Stage: e.stage, From: e.firstFrame}, nil

	case AwaitingSecond:
		from := e.firstFrame
		if m == nil {
			e.reset(AwaitingFirst)
			return Result{Stage: e.stage, From: from}, ErrNoMarkSelected
		}
		if firstClass := e.first.ClassID; m.ClassID != firstClass {
			e.reset(AwaitingFirst)
			return Result{Stage: e.stage, From: from}, fmt.Errorf("%w: %d and %d", ErrClassMismatch, firstClass, m.ClassID)
		}
		to := e.nav.Index()
		if abs(to-from) < 2 {
			e.reset(AwaitingFirst)
			return Result{Stage: e.stage, From: from, To: to}, ErrNoIntermediateFrames
		}

		first := e.first
		e.reset(Off)
		created, err := e.interpolate(ctx, first, m.NormalizedRect(), from, to)
		return Result{Stage: Off, From: from, To: to, Created: created}, err

	default:
		return Result{}, ErrNotArmed
	}
}

func (e *Engine) interpolate(ctx context.Context, first *mark.Mark, last types.Box, from, to int) (int, error) {
	a := first.NormalizedRect()
	centerA, sizeA := a.Center(), a.Size()
	centerB, sizeB := last.Center(), last.Size()

	step := 1
	if to < from {
		step = -1
	}
	span := float64(abs(to - from))

	created := 0
	var runErr error
	for i := from + step; i != to; i += step {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		f, err := e.nav.Load(ctx, i)
		if err != nil {
			runErr = fmt.Errorf("interpolate frame %d: %w", i, err)
			break
		}

		t := float64(abs(i-from)) / span
		center := centerA.Lerp(centerB, t)
		size := sizeA.Lerp(sizeB, t)

		nm := mark.FromCenterSize(center, size, f.Size, first.ClassID)
		nm.Name = first.Name
		f.Marks.Add(nm)
		f.NeedsSave = true
		created++
	}

	// the second key frame is displayed again even after a cancelled run
	if _, err := e.nav.Load(context.WithoutCancel(ctx), to); err != nil && runErr == nil {
		runErr = fmt.Errorf("reload frame %d: %w", to, err)
	}

	ev := e.log.Info()
	if runErr != nil {
		ev = e.log.Warn().Err(runErr)
	}
	ev.Int("from", from).Int("to", to).Int("created", created).Msg("interpolation finished")
	return created, runErr
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
