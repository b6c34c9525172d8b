package events

import (
	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/render"
)

// Element is a UI component that can receive routed events. Elements
// register with a Registry each frame along with the screen area they
// occupy; registration order defines focus traversal and z-order
// (later registrations sit on top).
type Element interface {
	// ID identifies the element across frames
	ID() string

	// Render draws the element into its area
	Render(f *render.Frame, area core.Rect)

	// Focusable reports whether focus traversal may stop here
	Focusable() bool

	// HandleKey processes a key event. focused is true when the event
	// reached this element as the focus target rather than a fallback.
	HandleKey(ev Event, focused bool) Result

	// HandleMouse processes a mouse event whose coordinates hit this
	// element (or that this element captured via drag)
	HandleMouse(ev Event) Result
}

// Base provides no-op defaults; embed it to implement only the
// handlers an element cares about.
type Base struct{}

func (Base) Render(*render.Frame, core.Rect) {}

func (Base) Focusable() bool { return false }

func (Base) HandleKey(Event, bool) Result { return Unhandled }

func (Base) HandleMouse(Event) Result { return Unhandled }
