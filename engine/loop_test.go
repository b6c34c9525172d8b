package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/events"
	"github.com/loomtui/loom/render"
	"github.com/loomtui/loom/terminal"
)

// box is a minimal element for loop tests
type box struct {
	events.Base

	id   string
	keys chan events.Event
}

func newBox(id string) *box {
	return &box{id: id, keys: make(chan events.Event, 16)}
}

func (b *box) ID() string { return b.id }

func (b *box) Focusable() bool { return true }

func (b *box) Render(f *render.Frame, area core.Rect) {
	f.SetString(area.X, area.Y, b.id, core.Style{})
}

func (b *box) HandleKey(ev events.Event, focused bool) events.Result {
	b.keys <- ev
	return events.Handled
}

// startLoop runs a loop over sim with one registered box
func startLoop(t *testing.T, sim *terminal.Sim, cfg Config) (*Loop, *box, chan error) {
	t.Helper()
	el := newBox("box")
	renderFn := func(f *render.Frame, r *events.Router) {
		area := core.NewRect(0, 0, 5, 1)
		r.Register(el, area)
		el.Render(f, area)
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 5 * time.Millisecond
	}
	l := New(sim, renderFn, cfg)
	l.Router().Focus().SetFocus("box")

	done := make(chan error, 1)
	go func() { done <- l.Run() }()
	return l, el, done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestLoopRoutesInputAndDraws(t *testing.T) {
	sim := terminal.NewSim(20, 5)
	l, el, done := startLoop(t, sim, Config{})

	sim.Post(terminal.Event{Type: terminal.EventKey, Key: terminal.KeyRune, Rune: 'x'})

	select {
	case ev := <-el.keys:
		if ev.Rune != 'x' {
			t.Errorf("routed rune = %q, want x", ev.Rune)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("key never reached the focused element")
	}

	waitFor(t, func() bool { return sim.CellAt(0, 0).Symbol == "b" }, "initial frame never drawn")

	l.Quit()
	if err := waitDone(t, done); err != nil {
		t.Errorf("run returned %v", err)
	}
}

func TestLoopStopsOnEOF(t *testing.T) {
	sim := terminal.NewSim(10, 3)
	_, _, done := startLoop(t, sim, Config{})

	waitFor(t, func() bool { return sim.DrawCount() > 0 }, "no initial draw")
	sim.Close()
	if err := waitDone(t, done); err != nil {
		t.Errorf("run returned %v on EOF", err)
	}
}

func TestLoopRunOnLoopExecutesOnLoopGoroutine(t *testing.T) {
	sim := terminal.NewSim(10, 3)
	l, _, done := startLoop(t, sim, Config{})

	if l.OnLoopThread() {
		t.Error("test goroutine claims to be the loop goroutine")
	}

	ran := make(chan bool, 1)
	l.RunOnLoop(func() { ran <- l.OnLoopThread() })

	select {
	case onThread := <-ran:
		if !onThread {
			t.Error("scheduled fn ran off the loop goroutine")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled fn never ran")
	}

	l.Quit()
	waitDone(t, done)
}

func TestLoopTickSynthesis(t *testing.T) {
	sim := terminal.NewSim(10, 3)

	var ticks atomic.Int32
	el := newBox("box")
	renderFn := func(f *render.Frame, r *events.Router) {
		r.Register(el, core.NewRect(0, 0, 5, 1))
	}
	l := New(sim, renderFn, Config{
		TickInterval: 5 * time.Millisecond,
		PollTimeout:  5 * time.Millisecond,
	})
	l.Router().AddGlobal(func(ev events.Event) events.Result {
		if ev.Kind == events.KindTick {
			if ev.Delta <= 0 {
				t.Error("tick delta not positive")
			}
			ticks.Add(1)
		}
		return events.Handled
	})

	done := make(chan error, 1)
	go func() { done <- l.Run() }()

	waitFor(t, func() bool { return ticks.Load() >= 3 }, "ticks not synthesized")
	l.Quit()
	waitDone(t, done)
}

func TestLoopDrawErrorContinue(t *testing.T) {
	sim := terminal.NewSim(10, 3)

	var seen atomic.Int32
	cfg := Config{
		OnError: func(err error) ErrorAction {
			var ioErr *terminal.IOError
			if !errors.As(err, &ioErr) {
				t.Errorf("handler got %v, want *terminal.IOError", err)
			}
			seen.Add(1)
			return Continue
		},
	}
	l, el, done := startLoop(t, sim, cfg)

	waitFor(t, func() bool { return sim.DrawCount() > 0 }, "no initial draw")

	sim.FailNextDraw(errors.New("write refused"))
	// A handled key marks the screen dirty, forcing the failing draw
	sim.Post(terminal.Event{Type: terminal.EventKey, Key: terminal.KeyRune, Rune: 'x'})
	<-el.keys

	waitFor(t, func() bool { return seen.Load() == 1 }, "error handler not invoked")

	// Loop survives and keeps drawing
	before := sim.DrawCount()
	sim.Post(terminal.Event{Type: terminal.EventKey, Key: terminal.KeyRune, Rune: 'y'})
	<-el.keys
	waitFor(t, func() bool { return sim.DrawCount() > before }, "loop stopped drawing after Continue")

	l.Quit()
	if err := waitDone(t, done); err != nil {
		t.Errorf("run returned %v after Continue", err)
	}
}

func TestLoopDrawErrorPropagates(t *testing.T) {
	sim := terminal.NewSim(10, 3)
	sim.FailNextDraw(errors.New("gone"))

	_, _, done := startLoop(t, sim, Config{})

	err := waitDone(t, done)
	var ioErr *terminal.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("run returned %v, want propagated *terminal.IOError", err)
	}
}

func TestLoopResizeForcesFullRepaint(t *testing.T) {
	sim := terminal.NewSim(10, 3)

	var resized atomic.Int32
	cfg := Config{OnResize: func(w, h int) {
		if w != 20 || h != 6 {
			t.Errorf("resize callback got (%d,%d), want (20,6)", w, h)
		}
		resized.Add(1)
	}}
	l, _, done := startLoop(t, sim, cfg)

	waitFor(t, func() bool { return sim.DrawCount() > 0 }, "no initial draw")

	sim.Resize(20, 6)
	waitFor(t, func() bool { return resized.Load() == 1 }, "resize callback not invoked")
	waitFor(t, func() bool { return len(sim.LastUpdates()) == 20*6 }, "post-resize draw was not a full repaint")

	l.Quit()
	waitDone(t, done)
}
