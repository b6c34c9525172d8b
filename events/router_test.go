package events

import (
	"testing"

	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/terminal"
	"github.com/loomtui/loom/trace"
)

// testElement records deliveries and answers with fixed results
type testElement struct {
	Base

	id          string
	focusable   bool
	keyResult   Result
	mouseResult Result

	keys  []Event
	mice  []Event
	focus []bool
}

func (e *testElement) ID() string { return e.id }

func (e *testElement) Focusable() bool { return e.focusable }

func (e *testElement) HandleKey(ev Event, focused bool) Result {
	e.keys = append(e.keys, ev)
	e.focus = append(e.focus, focused)
	return e.keyResult
}

func (e *testElement) HandleMouse(ev Event) Result {
	e.mice = append(e.mice, ev)
	return e.mouseResult
}

func keyEvent(k terminal.Key) Event {
	return Event{Kind: KindKey, Key: k}
}

func mouseEvent(action terminal.MouseAction, btn terminal.MouseButton, x, y int) Event {
	return Event{Kind: KindMouse, MouseAction: action, MouseBtn: btn, MouseX: x, MouseY: y}
}

func TestRouteKeyFocusedElementFirst(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "box", focusable: true, keyResult: Handled}
	r.Register(el, core.NewRect(0, 0, 5, 5))
	r.Focus().SetFocus("box")

	globalCalled := false
	r.AddGlobal(func(Event) Result { globalCalled = true; return Handled })

	out := r.Route(keyEvent(terminal.KeyEnter))
	if out.Result != Handled {
		t.Fatal("focused element should have handled the key")
	}
	if globalCalled {
		t.Error("global handler ran despite focused element handling")
	}
	if len(el.focus) != 1 || !el.focus[0] {
		t.Error("element not delivered as focus target")
	}
}

func TestRouteKeyGlobalBeatsNavigationFallback(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "a", focusable: true, keyResult: Unhandled}
	other := &testElement{id: "b", focusable: true}
	r.Register(el, core.NewRect(0, 0, 5, 5))
	r.Register(other, core.NewRect(5, 0, 5, 5))
	r.Focus().SetFocus("a")

	r.AddGlobal(func(ev Event) Result {
		if ev.Key == terminal.KeyTab {
			return Handled
		}
		return Unhandled
	})

	out := r.Route(keyEvent(terminal.KeyTab))
	if out.Result != Handled {
		t.Fatal("global handler should have claimed Tab")
	}
	if out.FocusAfter != "a" {
		t.Errorf("navigation fallback ran anyway: focus moved to %q", out.FocusAfter)
	}
}

func TestRouteKeyNavigationFallback(t *testing.T) {
	r := NewRouter()
	r.Register(&testElement{id: "a", focusable: true}, core.NewRect(0, 0, 5, 5))
	r.Register(&testElement{id: "b", focusable: true}, core.NewRect(5, 0, 5, 5))

	out := r.Route(keyEvent(terminal.KeyTab))
	if out.Result != Handled || out.FocusAfter != "a" {
		t.Fatalf("first Tab: got %+v, want focus a", out)
	}
	out = r.Route(keyEvent(terminal.KeyTab))
	if out.FocusAfter != "b" {
		t.Errorf("second Tab: focus = %q, want b", out.FocusAfter)
	}
	out = r.Route(keyEvent(terminal.KeyBacktab))
	if out.FocusAfter != "a" {
		t.Errorf("Backtab: focus = %q, want a", out.FocusAfter)
	}
}

func TestRouteKeyNavigationUnhandledWhenEmpty(t *testing.T) {
	r := NewRouter()
	out := r.Route(keyEvent(terminal.KeyTab))
	if out.Result != Unhandled {
		t.Error("Tab with no focusables should be Unhandled")
	}
}

func TestRouteKeyStaleFocusSkipsToGlobals(t *testing.T) {
	r := NewRouter()
	r.Focus().SetFocus("gone")

	var got []Event
	r.AddGlobal(func(ev Event) Result { got = append(got, ev); return Handled })

	out := r.Route(keyEvent(terminal.KeyEnter))
	if out.Result != Handled || len(got) != 1 {
		t.Errorf("stale focus should fall through to globals: %+v", out)
	}
}

func TestRouteMouseZOrder(t *testing.T) {
	r := NewRouter()
	a := &testElement{id: "a", mouseResult: Handled}
	b := &testElement{id: "b", mouseResult: Handled}
	r.Register(a, core.NewRect(0, 0, 10, 10))
	r.Register(b, core.NewRect(5, 5, 10, 10))

	r.Route(mouseEvent(terminal.MouseActionPress, terminal.MouseBtnLeft, 7, 7))
	if len(b.mice) != 1 {
		t.Fatal("topmost element did not receive the click")
	}
	if len(a.mice) != 0 {
		t.Error("occluded element received the click")
	}
}

func TestRouteMouseFocusFollowsClick(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "btn", focusable: true, mouseResult: Handled}
	r.Register(el, core.NewRect(0, 0, 4, 1))

	out := r.Route(mouseEvent(terminal.MouseActionPress, terminal.MouseBtnLeft, 1, 0))
	if out.FocusAfter != "btn" {
		t.Errorf("focus = %q, want btn", out.FocusAfter)
	}
	if out.FocusBefore == out.FocusAfter {
		t.Error("focus change not reported in outcome")
	}
}

func TestRouteMouseDragCapture(t *testing.T) {
	r := NewRouter()
	src := &testElement{id: "src", mouseResult: Handled}
	other := &testElement{id: "other", mouseResult: Handled}
	r.Register(src, core.NewRect(0, 0, 5, 5))
	r.Register(other, core.NewRect(10, 0, 5, 5))

	r.Route(mouseEvent(terminal.MouseActionPress, terminal.MouseBtnLeft, 2, 2))
	// Drag over the other element: capture overrides hit-testing
	r.Route(mouseEvent(terminal.MouseActionDrag, terminal.MouseBtnLeft, 12, 2))
	r.Route(mouseEvent(terminal.MouseActionRelease, terminal.MouseBtnLeft, 12, 2))

	if len(src.mice) != 3 {
		t.Fatalf("capturing element saw %d events, want press+drag+release", len(src.mice))
	}
	if len(other.mice) != 0 {
		t.Error("capture leaked events to hit-tested element")
	}

	// Capture released: next click hit-tests normally
	r.Route(mouseEvent(terminal.MouseActionPress, terminal.MouseBtnLeft, 12, 2))
	if len(other.mice) != 1 {
		t.Error("capture not released after mouse up")
	}
}

func TestRouteMouseNoHitFallsToGlobals(t *testing.T) {
	r := NewRouter()
	r.Register(&testElement{id: "a"}, core.NewRect(0, 0, 2, 2))

	var got []Event
	r.AddGlobal(func(ev Event) Result { got = append(got, ev); return Handled })

	out := r.Route(mouseEvent(terminal.MouseActionPress, terminal.MouseBtnLeft, 50, 50))
	if out.Result != Handled || len(got) != 1 {
		t.Errorf("miss should route to globals: %+v", out)
	}
}

func TestRouteMouseUnhandledBubbles(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "a", mouseResult: Unhandled}
	r.Register(el, core.NewRect(0, 0, 5, 5))

	globalHits := 0
	r.AddGlobal(func(Event) Result { globalHits++; return Handled })

	r.Route(mouseEvent(terminal.MouseActionPress, terminal.MouseBtnLeft, 1, 1))
	if len(el.mice) != 1 || globalHits != 1 {
		t.Errorf("unhandled element result should bubble: el=%d global=%d", len(el.mice), globalHits)
	}
}

func TestRouteTickOnlyGlobals(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "a", focusable: true, keyResult: Handled}
	r.Register(el, core.NewRect(0, 0, 5, 5))
	r.Focus().SetFocus("a")

	ticks := 0
	r.AddGlobal(func(ev Event) Result {
		if ev.Kind == KindTick {
			ticks++
		}
		return Handled
	})

	r.Route(Event{Kind: KindTick})
	if ticks != 1 {
		t.Error("tick did not reach global handler")
	}
	if len(el.keys) != 0 || len(el.mice) != 0 {
		t.Error("tick leaked to the focused element")
	}
}

func TestRouteFuncRunsInline(t *testing.T) {
	r := NewRouter()
	ran := false
	out := r.Route(Event{Kind: KindFunc, Fn: func() { ran = true }})
	if !ran || out.Result != Handled {
		t.Errorf("func event not executed inline: %+v", out)
	}
}

func TestRouteResizeGoesToOwnerCallback(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "a", focusable: true}
	r.Register(el, core.NewRect(0, 0, 5, 5))
	r.Focus().SetFocus("a")

	var gotW, gotH int
	r.SetResizeHandler(func(w, h int) { gotW, gotH = w, h })

	out := r.Route(Event{Kind: KindResize, Width: 120, Height: 40})
	if out.Result != Handled || gotW != 120 || gotH != 40 {
		t.Errorf("resize callback got (%d,%d), want (120,40)", gotW, gotH)
	}
	if len(el.keys) != 0 {
		t.Error("resize routed to an element")
	}
}

func TestRouteBeginPassKeepsFocus(t *testing.T) {
	r := NewRouter()
	el := &testElement{id: "a", focusable: true}
	r.Register(el, core.NewRect(0, 0, 5, 5))
	r.Focus().SetFocus("a")

	r.BeginPass()
	r.Register(el, core.NewRect(0, 0, 5, 5))

	if r.Focus().Focused() != "a" {
		t.Errorf("focus lost across passes: %q", r.Focus().Focused())
	}
	if r.Registry().Len() != 1 {
		t.Errorf("registry len = %d after re-registration, want 1", r.Registry().Len())
	}
}

func TestRouteEmitsTraceRecords(t *testing.T) {
	r := NewRouter()
	col := &trace.Collector{}
	r.SetTraceSink(col)

	r.Route(keyEvent(terminal.KeyEnter))

	recs := col.Records()
	if len(recs) != 2 {
		t.Fatalf("got %d records, want start+end", len(recs))
	}
	if recs[0].Kind != trace.KindRouteStart || recs[1].Kind != trace.KindRouteEnd {
		t.Errorf("record kinds = %v %v", recs[0].Kind, recs[1].Kind)
	}
	if recs[0].RouteID != recs[1].RouteID {
		t.Error("start and end carry different route ids")
	}
}

func TestRouteTickAllocationFree(t *testing.T) {
	r := NewRouter()
	r.AddGlobal(func(Event) Result { return Unhandled })

	allocs := testing.AllocsPerRun(1000, func() {
		r.Route(Event{Kind: KindTick})
	})
	if allocs != 0 {
		t.Errorf("tick route allocates %v per event, want 0", allocs)
	}
}
