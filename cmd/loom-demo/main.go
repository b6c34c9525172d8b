// Command loom-demo exercises the toolkit end to end: focusable
// panels (Tab/Shift+Tab or click), a draggable box, tick-driven
// status line, and a gradient title bar.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/loomtui/loom/core"
	"github.com/loomtui/loom/engine"
	"github.com/loomtui/loom/events"
	"github.com/loomtui/loom/render"
	"github.com/loomtui/loom/terminal"
)

func main() {
	backendName := flag.String("backend", "ansi", "terminal backend: ansi or tcell")
	flag.Parse()

	backend, err := selectBackend(*backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loom-demo: %v\n", err)
		os.Exit(1)
	}

	// A panic unwinds past backend.Fini, leaving the terminal in raw
	// mode on the alternate screen; restore it before the stack trace
	// prints.
	defer func() {
		if rec := recover(); rec != nil {
			terminal.EmergencyReset(os.Stdout)
			panic(rec)
		}
	}()

	app := newApp()

	loop := engine.New(backend, app.render, engine.Config{
		TickInterval: 500 * time.Millisecond,
		Mouse:        terminal.MouseModeClick | terminal.MouseModeDrag,
	})
	app.loop = loop

	loop.Router().AddGlobal(func(ev events.Event) events.Result {
		switch ev.Kind {
		case events.KindKey:
			if ev.Key == terminal.KeyCtrlC || ev.Key == terminal.KeyEscape {
				loop.Quit()
				return events.Handled
			}
		case events.KindTick:
			app.clock = ev.Time
			return events.Handled
		}
		return events.Unhandled
	})

	if err := loop.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "loom-demo: %v\n", err)
		os.Exit(1)
	}
}

func selectBackend(name string) (terminal.Backend, error) {
	switch name {
	case "ansi":
		return terminal.NewANSIBackend(), nil
	case "tcell":
		return terminal.NewTcellBackend()
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// app holds demo state, touched only on the loop goroutine
type app struct {
	loop  *engine.Loop
	clock time.Time

	panels []*panel
	drag   *dragBox
}

func newApp() *app {
	return &app{
		panels: []*panel{
			newPanel("notes", 2, 3, 24, 6),
			newPanel("tasks", 28, 3, 24, 6),
		},
		drag: &dragBox{id: "drag", x: 10, y: 11},
	}
}

func (a *app) render(f *render.Frame, r *events.Router) {
	w, _ := f.Size()

	drawTitle(f, w)

	for _, p := range a.panels {
		area := core.NewRect(p.x, p.y, p.w, p.h)
		r.Register(p, area)
		p.Render(f, area)
	}

	dragArea := core.NewRect(a.drag.x, a.drag.y, 5, 3)
	r.Register(a.drag, dragArea)
	a.drag.Render(f, dragArea)

	a.drawStatus(f, r)
}

// drawTitle paints the title bar over an HSV sweep
func drawTitle(f *render.Frame, w int) {
	title := " loom demo - Tab cycles focus, drag the [+] box, Ctrl+C quits "
	for x := 0; x < w; x++ {
		hue := 360 * float64(x) / float64(w)
		cr, cg, cb := colorful.Hsv(hue, 0.6, 0.35).RGB255()
		bg := core.RGB{R: cr, G: cg, B: cb}
		f.Set(x, 0, core.NewCell(" ", core.Style{Bg: bg}))
	}
	f.SetString(1, 0, title, core.Style{
		Fg:    core.RGB{R: 235, G: 235, B: 235},
		Attrs: core.AttrBold,
	})
}

func (a *app) drawStatus(f *render.Frame, r *events.Router) {
	_, h := f.Size()
	focused := r.Focus().Focused()
	if focused == "" {
		focused = "none"
	}
	clock := "--:--:--"
	if !a.clock.IsZero() {
		clock = a.clock.Format("15:04:05")
	}
	line := fmt.Sprintf(" focus:%s  box:(%d,%d)  %s ", focused, a.drag.x, a.drag.y, clock)
	f.SetString(0, h-1, line, core.Style{
		Fg: core.RGB{R: 200, G: 200, B: 200},
		Bg: core.RGB{R: 40, G: 40, B: 60},
	})
}

// panel is a focusable box that shows typed text when focused
type panel struct {
	events.Base

	id         string
	x, y, w, h int
	text       string
}

func newPanel(id string, x, y, w, h int) *panel {
	return &panel{id: id, x: x, y: y, w: w, h: h}
}

func (p *panel) ID() string { return p.id }

func (p *panel) Focusable() bool { return true }

func (p *panel) Render(f *render.Frame, area core.Rect) {
	bg := core.RGB{R: 25, G: 25, B: 35}
	f.Fill(area, core.NewCell(" ", core.Style{Bg: bg}))

	style := core.Style{Fg: core.RGB{R: 170, G: 170, B: 170}, Bg: bg}
	f.SetString(area.X+1, area.Y, "["+p.id+"]", style)
	f.SetString(area.X+1, area.Y+2, p.text, style)
}

func (p *panel) HandleKey(ev events.Event, focused bool) events.Result {
	if !focused {
		return events.Unhandled
	}
	switch {
	case ev.Key == terminal.KeyRune:
		p.text += string(ev.Rune)
		return events.Handled
	case ev.Key == terminal.KeyBackspace && p.text != "":
		p.text = p.text[:len(p.text)-1]
		return events.Handled
	}
	return events.Unhandled
}

func (p *panel) HandleMouse(ev events.Event) events.Result {
	// Focus-follows-click is enough; nothing else to do
	return events.Handled
}

// dragBox follows the pointer while captured
type dragBox struct {
	events.Base

	id   string
	x, y int

	// Pointer offset within the box at press time, so the box does
	// not jump to the cursor
	grabDX, grabDY int
}

func (d *dragBox) ID() string { return d.id }

func (d *dragBox) Render(f *render.Frame, area core.Rect) {
	style := core.Style{
		Fg:    core.RGB{R: 240, G: 200, B: 80},
		Bg:    core.RGB{R: 60, G: 40, B: 10},
		Attrs: core.AttrBold,
	}
	f.Fill(area, core.NewCell(" ", style))
	f.SetString(area.X+2, area.Y+1, "+", style)
}

func (d *dragBox) HandleMouse(ev events.Event) events.Result {
	switch ev.MouseAction {
	case terminal.MouseActionPress:
		d.grabDX = ev.MouseX - d.x
		d.grabDY = ev.MouseY - d.y
		return events.Handled
	case terminal.MouseActionDrag:
		d.x = ev.MouseX - d.grabDX
		d.y = ev.MouseY - d.grabDY
		if d.x < 0 {
			d.x = 0
		}
		if d.y < 1 {
			d.y = 1
		}
		return events.Handled
	case terminal.MouseActionRelease:
		return events.Handled
	}
	return events.Unhandled
}
