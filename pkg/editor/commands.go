package editor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/menta2k/image-annotator/pkg/snap"
)

// DeleteSelected removes the selected mark
func (e *Editor) DeleteSelected() error {
	m := e.Selected()
	if m == nil {
		return ErrNoSelection
	}
	f := e.nav.Current()
	f.Marks.Delete(m.ID)
	f.NeedsSave = true
	e.selected = uuid.Nil
	return nil
}

// SetClass makes id the class for new marks and assigns it to the selected mark, if any.
// An out of range id is rejected and nothing changes.
func (e *Editor) SetClass(id int) error {
	if id < 0 || id >= e.classes.Len() {
		e.ui.Notify(fmt.Sprintf("Class %d does not exist (0-%d)", id, e.classes.Len()-1))
		return fmt.Errorf("%w: %d", ErrInvalidClass, id)
	}
	e.lastClass = id

	m := e.Selected()
	if m == nil {
		return nil
	}
	m.ClassID = id
	if !m.Provisional {
		m.Name, _ = e.classes.Name(id)
	}
	e.nav.Current().NeedsSave = true
	return nil
}

// Class returns the class used for new marks
func (e *Editor) Class() int {
	return e.lastClass
}

// Accept confirms the selected provisional mark
func (e *Editor) Accept() error {
	m := e.Selected()
	if m == nil {
		return ErrNoSelection
	}
	if !m.Provisional {
		return nil
	}
	name, _ := e.classes.Name(m.ClassID)
	m.Accept(name)
	e.nav.Current().NeedsSave = true
	return nil
}

// AcceptAll confirms every mark of the current frame, but only when all of them
// are provisional. It returns the number accepted.
func (e *Editor) AcceptAll() int {
	f := e.nav.Current()
	if f == nil || f.Marks.Len() == 0 {
		return 0
	}
	marks := f.Marks.All()
	for _, m := range marks {
		if !m.Provisional {
			e.ui.Notify("Accept all skipped: the image already has confirmed marks")
			return 0
		}
	}
	for _, m := range marks {
		name, _ := e.classes.Name(m.ClassID)
		m.Accept(name)
	}
	f.NeedsSave = true
	return len(marks)
}

// SnapSelected refines the selected mark against the frame content
func (e *Editor) SnapSelected() (snap.Result, error) {
	m := e.Selected()
	if m == nil {
		return snap.Result{}, ErrNoSelection
	}
	f := e.nav.Current()
	res := e.snapper.Snap(m, f.Binary(e.snapper.Config().Binarize))
	if res.Adjusted {
		f.NeedsSave = true
	}
	return res, nil
}

// SnapAll refines every confirmed mark of the current frame
func (e *Editor) SnapAll() (snap.Summary, error) {
	f := e.nav.Current()
	if f == nil {
		return snap.Summary{}, ErrNoFrame
	}
	s := e.snapper.SnapAll(f.Marks.All(), f.Binary(e.snapper.Config().Binarize))
	if s.Snapped > 0 {
		f.NeedsSave = true
	}
	e.ui.Notify(fmt.Sprintf("Snapped %d of %d annotations", s.Snapped, s.Total))
	return s, nil
}
