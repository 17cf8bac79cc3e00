package editor

import (
	"github.com/menta2k/image-annotator/pkg/snap"
	"github.com/menta2k/image-annotator/pkg/types"
)

// Config holds the editor parameters
type Config struct {
	// CornerHitRadius is the grab distance for corners, in screen pixels
	CornerHitRadius int
	// MinCreateArea is the pixel area a dragged rectangle must exceed to become a mark
	MinCreateArea int
	// SnapByDefault snaps new marks unless ModSnap is held
	SnapByDefault bool
	// DefaultMarkSize is the normalized size for double-click marks before any mark was drawn
	DefaultMarkSize types.Point
	Snap            snap.Config
}

// DefaultConfig returns the standard editor parameters
func DefaultConfig() Config {
	return Config{
		CornerHitRadius: 10,
		MinCreateArea:   100,
		SnapByDefault:   true,
		DefaultMarkSize: types.Point{X: 0.1, Y: 0.1},
		Snap:            snap.DefaultConfig(),
	}
}
