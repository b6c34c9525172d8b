package events

import (
	"strconv"
	"time"

	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/terminal"
	"github.com/loomtui/loom/trace"
)

// GlobalHandler receives events that no element claimed, in
// registration order
type GlobalHandler func(Event) Result

// Outcome is the result of routing one event, including any focus
// movement it caused as a side effect
type Outcome struct {
	Result      Result
	FocusBefore string
	FocusAfter  string
}

// Router dispatches one inbound event per Route call.
//
// Key events walk ordered phases (focused element, global handlers,
// Tab/Backtab navigation fallback); mouse events hit-test the
// registry with the topmost registration winning, unless a drag
// capture pins delivery to the element that saw the press. All calls
// happen on the loop goroutine.
type Router struct {
	registry *Registry
	focus    *FocusManager
	globals  []GlobalHandler

	onResize func(width, height int)

	// dragging holds the capturing element id, empty when idle
	dragging string

	sink     trace.Sink
	tracing  bool
	routeSeq uint64
}

func NewRouter() *Router {
	return &Router{
		registry: NewRegistry(),
		focus:    NewFocusManager(),
		sink:     trace.Nop{},
	}
}

// Registry exposes the element registry for direct inspection
func (r *Router) Registry() *Registry {
	return r.registry
}

// Focus exposes the focus manager
func (r *Router) Focus() *FocusManager {
	return r.focus
}

// SetTraceSink installs a sink for routing records. A nil or Nop sink
// disables record construction entirely, keeping tick routing
// allocation-free.
func (r *Router) SetTraceSink(sink trace.Sink) {
	if sink == nil {
		sink = trace.Nop{}
	}
	r.sink = sink
	_, nop := sink.(trace.Nop)
	r.tracing = !nop
}

// AddGlobal registers a handler for events no element claims.
// Handlers run in registration order.
func (r *Router) AddGlobal(h GlobalHandler) {
	r.globals = append(r.globals, h)
}

// SetResizeHandler registers the single owner callback for resize
// events; resizes are never routed to elements
func (r *Router) SetResizeHandler(fn func(width, height int)) {
	r.onResize = fn
}

// BeginPass clears per-frame registrations. The focused id survives,
// so focus is stable across passes.
func (r *Router) BeginPass() {
	r.registry.Clear()
	r.focus.Clear()
}

// Register records an element and its area for this pass. Focusable
// elements join the traversal order in registration order.
func (r *Router) Register(el Element, area core.Rect) {
	r.registry.Register(el, area)
	if el.Focusable() {
		r.focus.Register(el.ID())
	}
}

// Route dispatches a single event and reports the outcome.
// Trace records are built only when an active sink is installed, so
// the high-frequency tick path stays allocation-free by default.
func (r *Router) Route(ev Event) Outcome {
	r.routeSeq++
	focusBefore := r.focus.Focused()

	if !r.tracing {
		return Outcome{
			Result:      r.dispatch(ev),
			FocusBefore: focusBefore,
			FocusAfter:  r.focus.Focused(),
		}
	}

	routeID := r.routeSeq
	r.sink.Emit(trace.Record{
		RouteID:   routeID,
		Kind:      trace.KindRouteStart,
		Name:      ev.Kind.String(),
		Timestamp: time.Now(),
	})

	res := r.dispatch(ev)

	out := Outcome{
		Result:      res,
		FocusBefore: focusBefore,
		FocusAfter:  r.focus.Focused(),
	}

	attrs := map[string]string{
		"handled": strconv.FormatBool(res == Handled),
	}
	if out.FocusBefore != out.FocusAfter {
		attrs["focus_from"] = out.FocusBefore
		attrs["focus_to"] = out.FocusAfter
	}
	r.sink.Emit(trace.Record{
		RouteID:    routeID,
		Kind:       trace.KindRouteEnd,
		Name:       ev.Kind.String(),
		Timestamp:  time.Now(),
		Attributes: attrs,
	})
	return out
}

// dispatch selects the routing strategy for one event kind
func (r *Router) dispatch(ev Event) Result {
	switch ev.Kind {
	case KindKey:
		return r.routeKey(ev)
	case KindMouse:
		return r.routeMouse(ev)
	case KindResize:
		if r.onResize != nil {
			r.onResize(ev.Width, ev.Height)
			return Handled
		}
	case KindTick:
		return r.routeGlobals(ev)
	case KindFunc:
		if ev.Fn != nil {
			ev.Fn()
			return Handled
		}
	}
	return Unhandled
}

// routeKey walks the key phases; the first Handled wins
func (r *Router) routeKey(ev Event) Result {
	// Phase 1: focused element. A stale focused id finds no element
	// and the phase is a no-op.
	if id := r.focus.Focused(); id != "" {
		if el, ok := r.registry.Lookup(id); ok {
			if el.HandleKey(ev, true) == Handled {
				return Handled
			}
		}
	}

	// Phase 2: global handlers in registration order
	if r.routeGlobals(ev) == Handled {
		return Handled
	}

	// Phase 3: built-in focus navigation. Handled iff focus moved.
	before := r.focus.Focused()
	switch {
	case ev.Key == terminal.KeyTab && ev.Modifiers&terminal.ModShift == 0:
		r.focus.FocusNext()
	case ev.Key == terminal.KeyBacktab,
		ev.Key == terminal.KeyTab && ev.Modifiers&terminal.ModShift != 0:
		r.focus.FocusPrevious()
	default:
		return Unhandled
	}
	if r.focus.Focused() != before {
		return Handled
	}
	return Unhandled
}

// routeMouse hit-tests unless a capture is active
func (r *Router) routeMouse(ev Event) Result {
	if r.dragging != "" {
		// Capture overrides hit-testing until release
		res := Unhandled
		if el, ok := r.registry.Lookup(r.dragging); ok {
			res = el.HandleMouse(ev)
		}
		if ev.MouseAction == terminal.MouseActionRelease {
			r.dragging = ""
		}
		return res
	}

	el, hit := r.registry.HitTest(ev.MouseX, ev.MouseY)
	if hit {
		press := ev.MouseAction == terminal.MouseActionPress && isPointerButton(ev.MouseBtn)
		if press && el.Focusable() {
			// Focus follows click, before delivery
			r.focus.SetFocus(el.ID())
		}
		res := el.HandleMouse(ev)
		if press {
			r.dragging = el.ID()
		}
		if res == Handled {
			return Handled
		}
	}

	// No hit, or the element declined: fall through to globals
	return r.routeGlobals(ev)
}

func (r *Router) routeGlobals(ev Event) Result {
	for _, g := range r.globals {
		if g(ev) == Handled {
			return Handled
		}
	}
	return Unhandled
}

// isPointerButton reports whether btn can start a drag capture
func isPointerButton(btn terminal.MouseButton) bool {
	switch btn {
	case terminal.MouseBtnLeft, terminal.MouseBtnMiddle, terminal.MouseBtnRight:
		return true
	}
	return false
}
