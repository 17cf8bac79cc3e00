package frames

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is wrapped by a LoadError when the index is outside the frame list
var ErrOutOfRange = errors.New("frame index out of range")

// LoadKind classifies why a frame could not be loaded
type LoadKind int

const (
	NotFound LoadKind = iota
	Filesystem
	Decode
	OutOfRange
)

func (k LoadKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Filesystem:
		return "filesystem"
	case Decode:
		return "decode"
	case OutOfRange:
		return "out of range"
	default:
		return fmt.Sprintf("LoadKind(%d)", int(k))
	}
}

// LoadError reports a failed frame load
type LoadError struct {
	Kind  LoadKind
	Index int
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load frame %d: %s: %v", e.Index, e.Kind, e.Err)
	}
	return fmt.Sprintf("load frame %d (%s): %s: %v", e.Index, e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// KindOf returns the load failure kind carried by err, if any
func KindOf(err error) (LoadKind, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return 0, false
}
