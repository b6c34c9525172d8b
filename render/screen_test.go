package render

import (
	"errors"
	"testing"

	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/terminal"
)

func TestScreenFirstDrawRepaintsEverything(t *testing.T) {
	sim := terminal.NewSim(3, 2)
	scr := NewScreen(sim)

	err := scr.Draw(func(f *Frame) {
		f.SetString(0, 0, "hi", core.Style{})
	})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}

	if got := len(sim.LastUpdates()); got != 6 {
		t.Errorf("first draw sent %d updates, want full 6", got)
	}
	if sim.CellAt(0, 0).Symbol != "h" || sim.CellAt(1, 0).Symbol != "i" {
		t.Errorf("content not drawn: %q", sim.Content())
	}
}

func TestScreenSecondDrawSendsOnlyChanges(t *testing.T) {
	sim := terminal.NewSim(5, 1)
	scr := NewScreen(sim)

	draw := func(s string) {
		if err := scr.Draw(func(f *Frame) {
			f.SetString(0, 0, s, core.Style{})
		}); err != nil {
			t.Fatalf("draw: %v", err)
		}
	}

	draw("aaaaa")
	draw("aaXaa")

	ups := sim.LastUpdates()
	if len(ups) != 1 {
		t.Fatalf("second draw sent %d updates, want 1: %+v", len(ups), ups)
	}
	if ups[0].X != 2 || ups[0].Cell.Symbol != "X" {
		t.Errorf("wrong update: %+v", ups[0])
	}
}

func TestScreenUnchangedFrameSendsNothing(t *testing.T) {
	sim := terminal.NewSim(4, 1)
	scr := NewScreen(sim)

	render := func(f *Frame) { f.SetString(0, 0, "same", core.Style{}) }
	if err := scr.Draw(render); err != nil {
		t.Fatal(err)
	}
	before := sim.DrawCount()
	if err := scr.Draw(render); err != nil {
		t.Fatal(err)
	}
	if sim.DrawCount() != before {
		t.Errorf("unchanged frame reached the backend")
	}
}

func TestScreenResizeForcesFullRepaint(t *testing.T) {
	sim := terminal.NewSim(4, 1)
	scr := NewScreen(sim)

	render := func(f *Frame) { f.SetString(0, 0, "ab", core.Style{}) }
	if err := scr.Draw(render); err != nil {
		t.Fatal(err)
	}

	sim.Resize(6, 2)
	if err := scr.Draw(render); err != nil {
		t.Fatal(err)
	}

	if got := len(sim.LastUpdates()); got != 12 {
		t.Errorf("post-resize draw sent %d updates, want full 12", got)
	}
	if w, h := scr.Size(); w != 6 || h != 2 {
		t.Errorf("screen size = (%d,%d), want (6,2)", w, h)
	}
}

func TestScreenForceFullRepaint(t *testing.T) {
	sim := terminal.NewSim(3, 1)
	scr := NewScreen(sim)

	render := func(f *Frame) { f.SetString(0, 0, "abc", core.Style{}) }
	if err := scr.Draw(render); err != nil {
		t.Fatal(err)
	}

	scr.ForceFullRepaint()
	if err := scr.Draw(render); err != nil {
		t.Fatal(err)
	}
	if got := len(sim.LastUpdates()); got != 3 {
		t.Errorf("forced repaint sent %d updates, want 3", got)
	}
}

func TestScreenDrawErrorPreservesBaseline(t *testing.T) {
	sim := terminal.NewSim(3, 1)
	scr := NewScreen(sim)

	if err := scr.Draw(func(f *Frame) { f.SetString(0, 0, "aaa", core.Style{}) }); err != nil {
		t.Fatal(err)
	}

	cause := errors.New("write refused")
	sim.FailNextDraw(cause)
	err := scr.Draw(func(f *Frame) { f.SetString(0, 0, "aab", core.Style{}) })

	var ioErr *terminal.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("got %v, want *terminal.IOError", err)
	}

	// Retry diffs against the last accepted frame, so the failed cell
	// goes out again
	if err := scr.Draw(func(f *Frame) { f.SetString(0, 0, "aab", core.Style{}) }); err != nil {
		t.Fatalf("retry: %v", err)
	}
	ups := sim.LastUpdates()
	if len(ups) != 1 || ups[0].X != 2 || ups[0].Cell.Symbol != "b" {
		t.Errorf("retry updates = %+v, want single b at x=2", ups)
	}
}

func TestScreenCursorRequestPerPass(t *testing.T) {
	sim := terminal.NewSim(5, 5)
	scr := NewScreen(sim)

	if err := scr.Draw(func(f *Frame) { f.SetCursor(3, 2) }); err != nil {
		t.Fatal(err)
	}
	x, y, visible := sim.Cursor()
	if !visible || x != 3 || y != 2 {
		t.Errorf("cursor = (%d,%d,%v), want (3,2,visible)", x, y, visible)
	}

	// No request this pass: cursor hides again
	if err := scr.Draw(func(f *Frame) {}); err != nil {
		t.Fatal(err)
	}
	if _, _, visible := sim.Cursor(); visible {
		t.Error("cursor still visible without a request")
	}
}
