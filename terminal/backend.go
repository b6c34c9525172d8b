// Package terminal abstracts the real terminal behind a Backend
// interface: size queries, minimal cell-update writes, input polling,
// cursor control, raw-mode and alternate-screen lifecycle.
//
// Three implementations are provided: a Unix ANSI backend writing
// escape sequences directly, an adapter over tcell, and an in-memory
// Sim backend for headless tests.
package terminal

import (
	"fmt"
	"time"

	"github.com/loomtui/loom/core"
)

// Backend is the I/O boundary the draw pipeline and event loop talk to.
// Implementations must tolerate Draw/cursor calls only between Init and
// Fini.
type Backend interface {
	// Init enters raw mode and the alternate screen, hides the cursor
	Init() error

	// Fini restores terminal state. Safe to call multiple times
	Fini()

	// Size returns current terminal dimensions
	Size() (width, height int)

	// Draw writes a batch of cell updates. Updates arrive in row-major
	// order, which backends exploit to coalesce writes into runs.
	Draw(updates []core.CellUpdate) error

	// Poll blocks up to timeout for the next input event
	Poll(timeout time.Duration) PollResult

	// Post injects a synthetic event, observed by a later Poll.
	// Safe to call from any goroutine.
	Post(ev Event)

	// SetCursorVisible shows/hides cursor
	SetCursorVisible(visible bool)

	// MoveCursor positions cursor (0-indexed)
	MoveCursor(x, y int)

	// SetMouseMode enables/disables mouse event reporting.
	// Modes can be combined: MouseModeClick | MouseModeDrag
	SetMouseMode(mode MouseMode) error

	// OnResize registers a callback invoked (on an arbitrary goroutine)
	// when the terminal is resized. Callers marshal back to their own
	// thread; backends never mutate shared state through it.
	OnResize(fn func(width, height int))
}

// PollResult is the outcome of one Poll call: an event, a timeout, or
// end of input.
type PollResult struct {
	Event   Event
	Timeout bool
	EOF     bool
}

// IOError wraps a terminal I/O failure with the operation that caused
// it. The draw pipeline preserves its diff baseline when Draw fails, so
// the next attempt diffs against the last known-good frame.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("terminal %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
