// Package events routes input to UI elements: key events flow through
// the focused element then global handlers, mouse events hit-test the
// element registry, and a lock-free queue marshals work from other
// goroutines onto the event loop.
package events

import (
	"time"

	"github.com/loomtui/loom/terminal"
)

// Kind distinguishes routed event categories
type Kind uint8

const (
	KindNone Kind = iota
	KindKey
	KindMouse
	KindResize
	KindTick
	KindFunc // Fn runs on the loop goroutine
)

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindMouse:
		return "mouse"
	case KindResize:
		return "resize"
	case KindTick:
		return "tick"
	case KindFunc:
		return "func"
	default:
		return "none"
	}
}

// Event is a routed input event. Fields are populated per Kind.
type Event struct {
	Kind Kind

	// Key fields
	Key       terminal.Key
	Rune      rune
	Modifiers terminal.Modifier

	// Mouse fields
	MouseX      int
	MouseY      int
	MouseBtn    terminal.MouseButton
	MouseAction terminal.MouseAction

	// Resize fields
	Width  int
	Height int

	// Tick fields
	Time  time.Time
	Delta time.Duration

	// Func payload
	Fn func()
}

// Result reports whether a handler consumed an event
type Result uint8

const (
	Unhandled Result = iota
	Handled
)

// KeyEvent translates a terminal key event
func KeyEvent(tev terminal.Event) Event {
	return Event{
		Kind:      KindKey,
		Key:       tev.Key,
		Rune:      tev.Rune,
		Modifiers: tev.Modifiers,
	}
}

// MouseEvent translates a terminal mouse event
func MouseEvent(tev terminal.Event) Event {
	return Event{
		Kind:        KindMouse,
		MouseX:      tev.MouseX,
		MouseY:      tev.MouseY,
		MouseBtn:    tev.MouseBtn,
		MouseAction: tev.MouseAction,
		Modifiers:   tev.Modifiers,
	}
}
