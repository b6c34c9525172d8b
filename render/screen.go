package render

import (
	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/terminal"
)

// Screen drives the draw pipeline against a backend. It keeps the
// previous frame as the diff baseline so each Draw sends only the
// cells that changed.
//
// Screen is not safe for concurrent use; callers serialize Draw on a
// single goroutine.
type Screen struct {
	backend terminal.Backend

	prev    *core.Buffer // last frame the backend accepted, nil forces repaint
	working *core.Buffer
	frame   Frame
}

// NewScreen creates a screen over backend, sized from the backend
func NewScreen(backend terminal.Backend) *Screen {
	w, h := backend.Size()
	return &Screen{
		backend: backend,
		working: core.NewBuffer(w, h),
	}
}

// Size returns the current frame dimensions
func (s *Screen) Size() (width, height int) {
	return s.working.Width(), s.working.Height()
}

// ForceFullRepaint discards the diff baseline; the next Draw repaints
// every cell
func (s *Screen) ForceFullRepaint() {
	s.prev = nil
}

// Draw runs one render pass: clear the working buffer, let renderFn
// fill it, diff against the previous frame, and send the updates.
//
// A size change discards the baseline and repaints fully. When the
// backend write fails, the baseline is kept so the next Draw diffs
// against the last frame the terminal actually shows.
func (s *Screen) Draw(renderFn func(*Frame)) error {
	w, h := s.backend.Size()
	if w != s.working.Width() || h != s.working.Height() {
		s.working = core.NewBuffer(w, h)
		s.prev = nil
	} else {
		s.working.Clear()
	}

	s.frame.reset(s.working)
	renderFn(&s.frame)

	var updates []core.CellUpdate
	if s.prev == nil {
		updates = core.Repaint(s.working)
	} else {
		updates = core.Diff(s.prev, s.working)
	}

	if len(updates) > 0 {
		if err := s.backend.Draw(updates); err != nil {
			return err
		}
	}

	if s.frame.cursorWanted {
		s.backend.MoveCursor(s.frame.cursorX, s.frame.cursorY)
		s.backend.SetCursorVisible(true)
	} else {
		s.backend.SetCursorVisible(false)
	}

	// Swap buffers; the old baseline becomes next pass's scratch
	old := s.prev
	s.prev = s.working
	if old != nil && old.Width() == w && old.Height() == h {
		s.working = old
	} else {
		s.working = core.NewBuffer(w, h)
	}
	return nil
}
