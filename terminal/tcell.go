package terminal

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/loomtui/loom/core"
)

// TcellBackend adapts a tcell screen to the Backend interface.
// Useful where tcell's terminfo coverage beats the raw ANSI backend
// (unusual TERM values, Windows consoles).
type TcellBackend struct {
	screen tcell.Screen
	events chan Event

	mu            sync.Mutex
	resizeFn      func(width, height int)
	cursorX       int
	cursorY       int
	cursorVisible bool
	inited        bool

	// Previous button state, for synthesizing press/release/drag
	prevButtons tcell.ButtonMask

	pumpDone chan struct{}
}

// NewTcellBackend allocates a tcell screen without initializing it
func NewTcellBackend() (*TcellBackend, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, &IOError{Op: "init", Err: err}
	}
	return &TcellBackend{
		screen: s,
		events: make(chan Event, 256),
	}, nil
}

func (b *TcellBackend) Init() error {
	if err := b.screen.Init(); err != nil {
		return &IOError{Op: "init", Err: err}
	}
	b.screen.HideCursor()
	b.mu.Lock()
	b.inited = true
	b.mu.Unlock()

	b.pumpDone = make(chan struct{})
	go b.pump()
	return nil
}

func (b *TcellBackend) Fini() {
	b.mu.Lock()
	if !b.inited {
		b.mu.Unlock()
		return
	}
	b.inited = false
	b.mu.Unlock()

	b.screen.Fini()
	// Fini unblocks the pump's PollEvent with nil
	select {
	case <-b.pumpDone:
	case <-time.After(100 * time.Millisecond):
	}
}

// pump converts tcell events until the screen is finalized
func (b *TcellBackend) pump() {
	defer close(b.pumpDone)
	for {
		tev := b.screen.PollEvent()
		if tev == nil {
			b.enqueue(Event{Type: EventClosed})
			return
		}
		for _, ev := range b.translate(tev) {
			b.enqueue(ev)
		}
	}
}

func (b *TcellBackend) enqueue(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

// translate converts one tcell event into zero or more events.
// Mouse events carry full button state, so press/release/drag are
// synthesized by comparing against the previous mask.
func (b *TcellBackend) translate(tev tcell.Event) []Event {
	switch t := tev.(type) {
	case *tcell.EventKey:
		return []Event{translateKey(t)}

	case *tcell.EventMouse:
		return b.translateMouse(t)

	case *tcell.EventResize:
		w, h := t.Size()
		b.mu.Lock()
		fn := b.resizeFn
		b.mu.Unlock()
		if fn != nil {
			fn(w, h)
			return nil
		}
		return []Event{{Type: EventResize, Width: w, Height: h}}

	case *tcell.EventError:
		return []Event{{Type: EventError, Err: &IOError{Op: "poll", Err: t}}}
	}
	return nil
}

func translateKey(t *tcell.EventKey) Event {
	ev := Event{Type: EventKey}

	m := t.Modifiers()
	if m&tcell.ModShift != 0 {
		ev.Modifiers |= ModShift
	}
	if m&tcell.ModAlt != 0 {
		ev.Modifiers |= ModAlt
	}
	if m&tcell.ModCtrl != 0 {
		ev.Modifiers |= ModCtrl
	}

	switch k := t.Key(); k {
	case tcell.KeyRune:
		ev.Key = KeyRune
		ev.Rune = t.Rune()
	case tcell.KeyEnter:
		ev.Key = KeyEnter
	case tcell.KeyTab:
		ev.Key = KeyTab
	case tcell.KeyBacktab:
		ev.Key = KeyBacktab
		ev.Modifiers |= ModShift
	case tcell.KeyEsc:
		ev.Key = KeyEscape
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		ev.Key = KeyBackspace
	case tcell.KeyDelete:
		ev.Key = KeyDelete
	case tcell.KeyUp:
		ev.Key = KeyUp
	case tcell.KeyDown:
		ev.Key = KeyDown
	case tcell.KeyLeft:
		ev.Key = KeyLeft
	case tcell.KeyRight:
		ev.Key = KeyRight
	case tcell.KeyHome:
		ev.Key = KeyHome
	case tcell.KeyEnd:
		ev.Key = KeyEnd
	case tcell.KeyPgUp:
		ev.Key = KeyPageUp
	case tcell.KeyPgDn:
		ev.Key = KeyPageDown
	case tcell.KeyInsert:
		ev.Key = KeyInsert
	case tcell.KeyCtrlSpace:
		ev.Key = KeyCtrlSpace
	case tcell.KeyCtrlBackslash:
		ev.Key = KeyCtrlBackslash
	case tcell.KeyCtrlRightSq:
		ev.Key = KeyCtrlBracketRight
	case tcell.KeyCtrlCarat:
		ev.Key = KeyCtrlCaret
	case tcell.KeyCtrlUnderscore:
		ev.Key = KeyCtrlUnderscore
	default:
		switch {
		case k >= tcell.KeyF1 && k <= tcell.KeyF12:
			ev.Key = KeyF1 + Key(k-tcell.KeyF1)
		case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
			ev.Key = KeyCtrlA + Key(k-tcell.KeyCtrlA)
		default:
			ev.Key = KeyNone
		}
	}
	return ev
}

// buttonFlags pairs each reported tcell button with its identity
var buttonFlags = []struct {
	mask tcell.ButtonMask
	btn  MouseButton
}{
	{tcell.Button1, MouseBtnLeft},
	{tcell.Button2, MouseBtnRight},
	{tcell.Button3, MouseBtnMiddle},
}

func (b *TcellBackend) translateMouse(t *tcell.EventMouse) []Event {
	x, y := t.Position()
	buttons := t.Buttons()

	var mods Modifier
	m := t.Modifiers()
	if m&tcell.ModShift != 0 {
		mods |= ModShift
	}
	if m&tcell.ModAlt != 0 {
		mods |= ModAlt
	}
	if m&tcell.ModCtrl != 0 {
		mods |= ModCtrl
	}

	base := Event{Type: EventMouse, MouseX: x, MouseY: y, Modifiers: mods}
	var out []Event

	if buttons&tcell.WheelUp != 0 {
		ev := base
		ev.MouseBtn = MouseBtnWheelUp
		ev.MouseAction = MouseActionPress
		out = append(out, ev)
	}
	if buttons&tcell.WheelDown != 0 {
		ev := base
		ev.MouseBtn = MouseBtnWheelDown
		ev.MouseAction = MouseActionPress
		out = append(out, ev)
	}

	held := buttons & (tcell.Button1 | tcell.Button2 | tcell.Button3)
	prev := b.prevButtons
	b.prevButtons = held

	for _, bf := range buttonFlags {
		now := held&bf.mask != 0
		was := prev&bf.mask != 0
		if now == was {
			continue
		}
		ev := base
		ev.MouseBtn = bf.btn
		if now {
			ev.MouseAction = MouseActionPress
		} else {
			ev.MouseAction = MouseActionRelease
		}
		out = append(out, ev)
	}

	if len(out) == 0 {
		// Pure motion: drag if a button is held
		ev := base
		if held != 0 {
			ev.MouseAction = MouseActionDrag
			for _, bf := range buttonFlags {
				if held&bf.mask != 0 {
					ev.MouseBtn = bf.btn
					break
				}
			}
		} else {
			ev.MouseAction = MouseActionMove
			ev.MouseBtn = MouseBtnNone
		}
		out = append(out, ev)
	}
	return out
}

func (b *TcellBackend) Size() (int, int) {
	return b.screen.Size()
}

func (b *TcellBackend) Draw(updates []core.CellUpdate) error {
	for _, u := range updates {
		if u.Cell.IsContinuation() {
			continue
		}
		sym := u.Cell.Symbol
		if sym == "" {
			sym = " "
		}
		primary, size := utf8.DecodeRuneInString(sym)
		var combining []rune
		if size < len(sym) {
			combining = []rune(sym[size:])
		}
		b.screen.SetContent(u.X, u.Y, primary, combining, toTcellStyle(u.Cell.Style))
	}
	b.screen.Show()
	return nil
}

func toTcellStyle(s core.Style) tcell.Style {
	st := tcell.StyleDefault

	if s.Attrs&core.AttrFg256 != 0 {
		st = st.Foreground(tcell.PaletteColor(int(s.Fg.R)))
	} else {
		st = st.Foreground(tcell.NewRGBColor(int32(s.Fg.R), int32(s.Fg.G), int32(s.Fg.B)))
	}
	if s.Attrs&core.AttrBg256 != 0 {
		st = st.Background(tcell.PaletteColor(int(s.Bg.R)))
	} else {
		st = st.Background(tcell.NewRGBColor(int32(s.Bg.R), int32(s.Bg.G), int32(s.Bg.B)))
	}

	st = st.Bold(s.Attrs&core.AttrBold != 0).
		Dim(s.Attrs&core.AttrDim != 0).
		Italic(s.Attrs&core.AttrItalic != 0).
		Underline(s.Attrs&core.AttrUnderline != 0).
		Blink(s.Attrs&core.AttrBlink != 0).
		Reverse(s.Attrs&core.AttrReverse != 0)
	return st
}

func (b *TcellBackend) Poll(timeout time.Duration) PollResult {
	select {
	case ev := <-b.events:
		if ev.Type == EventClosed {
			return PollResult{EOF: true}
		}
		return PollResult{Event: ev}
	case <-time.After(timeout):
		return PollResult{Timeout: true}
	}
}

func (b *TcellBackend) Post(ev Event) {
	b.enqueue(ev)
}

func (b *TcellBackend) SetCursorVisible(visible bool) {
	b.mu.Lock()
	b.cursorVisible = visible
	x, y := b.cursorX, b.cursorY
	b.mu.Unlock()

	if visible {
		b.screen.ShowCursor(x, y)
	} else {
		b.screen.HideCursor()
	}
}

func (b *TcellBackend) MoveCursor(x, y int) {
	b.mu.Lock()
	b.cursorX, b.cursorY = x, y
	visible := b.cursorVisible
	b.mu.Unlock()

	if visible {
		b.screen.ShowCursor(x, y)
	}
}

func (b *TcellBackend) SetMouseMode(mode MouseMode) error {
	if mode == MouseModeNone {
		b.screen.DisableMouse()
		return nil
	}
	var flags tcell.MouseFlags
	if mode&MouseModeClick != 0 {
		flags |= tcell.MouseButtonEvents
	}
	if mode&MouseModeDrag != 0 {
		flags |= tcell.MouseDragEvents
	}
	if mode&MouseModeMotion != 0 {
		flags |= tcell.MouseMotionEvents
	}
	b.screen.EnableMouse(flags)
	return nil
}

func (b *TcellBackend) OnResize(fn func(width, height int)) {
	b.mu.Lock()
	b.resizeFn = fn
	b.mu.Unlock()
}
