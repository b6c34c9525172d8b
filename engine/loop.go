// Package engine runs the single-goroutine event loop: poll the
// backend, route the event, redraw when routing changed something.
// Cross-goroutine work enters through a lock-free queue drained once
// per iteration, so loop state is only ever touched from one
// goroutine.
package engine

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/loomtui/loom/events"
	"github.com/loomtui/loom/render"
	"github.com/loomtui/loom/terminal"
	"github.com/loomtui/loom/trace"
)

// ErrorAction tells the loop how to proceed after a draw error
type ErrorAction uint8

const (
	// Continue keeps the loop running; the draw baseline is intact so
	// the next pass retries with a correct diff
	Continue ErrorAction = iota
	// Quit stops the loop cleanly without surfacing the error
	Quit
	// Propagate stops the loop and returns the error from Run
	Propagate
)

// Config carries loop options; the zero value is usable
type Config struct {
	// TickInterval enables synthetic tick events; zero disables them
	TickInterval time.Duration

	// PollTimeout bounds each backend poll. Quit latency is at most
	// one timeout. Defaults to 50ms.
	PollTimeout time.Duration

	// Mouse selects the mouse reporting granularity
	Mouse terminal.MouseMode

	// OnError decides what to do when a draw fails. Nil means
	// Propagate.
	OnError func(error) ErrorAction

	// OnResize is invoked on the loop goroutine after a resize has
	// forced the next draw to repaint fully
	OnResize func(width, height int)

	// Trace receives routing and draw records; nil disables tracing
	Trace trace.Sink
}

// RenderFunc builds one frame. Implementations register the elements
// they drew with the router so routing matches what is on screen.
type RenderFunc func(f *render.Frame, r *events.Router)

// Loop owns the screen, router and queue for one UI session.
// Run, and everything it dispatches, happens on a single goroutine;
// Post, RunOnLoop and Quit are safe from any goroutine.
type Loop struct {
	backend terminal.Backend
	screen  *render.Screen
	router  *events.Router
	queue   *events.Queue
	render  RenderFunc
	cfg     Config
	sink    trace.Sink

	quit     atomic.Bool
	loopGID  atomic.Int64 // goroutine id while running, 0 otherwise
	debugGID bool

	lastTick time.Time
	dirty    bool
	drawSeq  uint64
}

// New creates a loop over backend. The render function runs once per
// draw on the loop goroutine.
func New(backend terminal.Backend, renderFn RenderFunc, cfg Config) *Loop {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 50 * time.Millisecond
	}
	sink := cfg.Trace
	if sink == nil {
		sink = trace.Nop{}
	}

	l := &Loop{
		backend:  backend,
		router:   events.NewRouter(),
		queue:    events.NewQueue(),
		render:   renderFn,
		cfg:      cfg,
		sink:     sink,
		debugGID: os.Getenv("LOOM_DEBUG_LOOP") != "",
	}
	l.router.SetTraceSink(sink)
	return l
}

// Router returns the event router for handler registration
func (l *Loop) Router() *events.Router {
	return l.router
}

// Post injects an event from any goroutine. It is observed during the
// next loop iteration; latency is bounded by one poll timeout.
func (l *Loop) Post(ev events.Event) {
	l.queue.Push(ev)
}

// RunOnLoop schedules fn to execute on the loop goroutine, ordered
// with other injected events
func (l *Loop) RunOnLoop(fn func()) {
	l.Post(events.Event{Kind: events.KindFunc, Fn: fn})
}

// Quit requests shutdown; checked once per iteration
func (l *Loop) Quit() {
	l.quit.Store(true)
}

// OnLoopThread reports whether the caller runs on the loop goroutine.
// Valid only while Run is active.
func (l *Loop) OnLoopThread() bool {
	gid := l.loopGID.Load()
	return gid != 0 && gid == goroutineID()
}

// assertLoopThread panics off-thread when LOOM_DEBUG_LOOP is set.
// A diagnostic aid, not a runtime guarantee.
func (l *Loop) assertLoopThread() {
	if l.debugGID && !l.OnLoopThread() {
		panic("loop state touched off the loop goroutine")
	}
}

// Run drives the loop until Quit, EOF, or a propagated error.
// It initializes the backend and restores it on exit.
func (l *Loop) Run() error {
	if err := l.backend.Init(); err != nil {
		return err
	}
	defer l.backend.Fini()

	if l.cfg.Mouse != terminal.MouseModeNone {
		if err := l.backend.SetMouseMode(l.cfg.Mouse); err != nil {
			return err
		}
	}

	// Resize signals arrive on arbitrary goroutines; marshal them
	// through the queue instead of touching loop state
	l.backend.OnResize(func(w, h int) {
		l.Post(events.Event{Kind: events.KindResize, Width: w, Height: h})
	})

	l.screen = render.NewScreen(l.backend)
	l.router.SetResizeHandler(func(w, h int) {
		l.screen.ForceFullRepaint()
		if l.cfg.OnResize != nil {
			l.cfg.OnResize(w, h)
		}
	})

	l.loopGID.Store(goroutineID())
	defer l.loopGID.Store(0)

	l.quit.Store(false)
	l.lastTick = time.Now()
	l.dirty = true

	for {
		if l.quit.Load() {
			return nil
		}

		// Injected events first, in FIFO order with live input
		for _, ev := range l.queue.Consume() {
			l.dispatch(ev)
		}
		if l.quit.Load() {
			return nil
		}

		if l.dirty {
			if err := l.draw(); err != nil {
				return err
			}
			if l.quit.Load() {
				return nil
			}
		}

		res := l.backend.Poll(l.pollWait())
		switch {
		case res.EOF:
			return nil
		case res.Timeout:
			l.maybeTick()
		default:
			if ev, ok := translate(res.Event); ok {
				l.dispatch(ev)
			} else if res.Event.Type == terminal.EventError {
				if err := l.handleError(res.Event.Err); err != nil {
					return err
				}
			}
			l.maybeTick()
		}
	}
}

// pollWait bounds the poll so ticks fire on time
func (l *Loop) pollWait() time.Duration {
	wait := l.cfg.PollTimeout
	if l.cfg.TickInterval > 0 {
		untilTick := l.cfg.TickInterval - time.Since(l.lastTick)
		if untilTick < wait {
			wait = untilTick
		}
		if wait < 0 {
			wait = 0
		}
	}
	return wait
}

// maybeTick synthesizes a tick when the interval elapsed
func (l *Loop) maybeTick() {
	if l.cfg.TickInterval <= 0 {
		return
	}
	now := time.Now()
	if delta := now.Sub(l.lastTick); delta >= l.cfg.TickInterval {
		l.lastTick = now
		l.dispatch(events.Event{Kind: events.KindTick, Time: now, Delta: delta})
	}
}

// dispatch routes one event and marks the screen dirty when routing
// changed something observable
func (l *Loop) dispatch(ev events.Event) {
	l.assertLoopThread()

	out := l.router.Route(ev)
	if out.Result == events.Handled || out.FocusBefore != out.FocusAfter ||
		ev.Kind == events.KindResize {
		l.dirty = true
	}
}

// draw runs one render pass; the error handler decides whether a
// backend failure is fatal
func (l *Loop) draw() error {
	l.assertLoopThread()
	l.dirty = false
	l.drawSeq++

	err := l.screen.Draw(func(f *render.Frame) {
		l.router.BeginPass()
		l.render(f, l.router)
	})

	if err == nil {
		l.sink.Emit(trace.Record{
			RouteID:   l.drawSeq,
			Kind:      trace.KindDraw,
			Timestamp: time.Now(),
		})
		return nil
	}

	l.sink.Emit(trace.Record{
		RouteID:    l.drawSeq,
		Kind:       trace.KindDrawError,
		Timestamp:  time.Now(),
		Attributes: map[string]string{"error": err.Error()},
	})
	// Retry with an intact baseline unless the handler says otherwise
	l.dirty = true
	return l.handleError(err)
}

func (l *Loop) handleError(err error) error {
	action := Propagate
	if l.cfg.OnError != nil {
		action = l.cfg.OnError(err)
	}
	switch action {
	case Continue:
		return nil
	case Quit:
		l.quit.Store(true)
		return nil
	default:
		return err
	}
}

// translate converts a terminal event into a routable event
func translate(tev terminal.Event) (events.Event, bool) {
	switch tev.Type {
	case terminal.EventKey:
		return events.KeyEvent(tev), true
	case terminal.EventMouse:
		return events.MouseEvent(tev), true
	case terminal.EventResize:
		return events.Event{Kind: events.KindResize, Width: tev.Width, Height: tev.Height}, true
	}
	return events.Event{}, false
}
