package editor

import (
	"image"

	"github.com/google/uuid"

	"github.com/menta2k/image-annotator/pkg/mark"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Mode is the pointer gesture in progress. Exactly one mode is active at a time.
type Mode interface {
	isMode()
}

// Idle means no gesture is in progress
type Idle struct{}

// Creating is a rubber-band rectangle for a new mark, in image pixels
type Creating struct {
	Start   image.Point
	Current image.Point
}

// ResizingCorner drags one corner of a mark while the opposite corner stays put
type ResizingCorner struct {
	Mark   uuid.UUID
	Corner mark.CornerType
	Pinned image.Point
}

// Repositioning moves a mark by the pointer delta
type Repositioning struct {
	Mark   uuid.UUID
	Start  image.Point
	Origin types.Rect
}

// Panning scrolls the view. Last is in screen pixels.
type Panning struct {
	Last image.Point
}

// MassDeleting is a rubber-band rectangle in screen pixels
type MassDeleting struct {
	Start   image.Point
	Current image.Point
}

func (Idle) isMode()           {}
func (Creating) isMode()       {}
func (ResizingCorner) isMode() {}
func (Repositioning) isMode()  {}
func (Panning) isMode()        {}
func (MassDeleting) isMode()   {}

// Modifiers is the set of held modifier keys
type Modifiers uint8

const (
	// ModPan turns a pointer-down into panning
	ModPan Modifiers = 1 << iota
	// ModSnap inverts the snap default for new marks
	ModSnap
)

// Has reports whether every modifier in o is held
func (m Modifiers) Has(o Modifiers) bool {
	return m&o == o
}
