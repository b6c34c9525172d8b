package terminal

import (
	"strings"
	"sync"
	"time"

	"github.com/loomtui/loom/core"
)

// Sim is an in-memory backend for headless tests. It records every
// Draw batch, keeps a cell grid for content assertions, and delivers
// events through Post/Close like a real backend would through input.
type Sim struct {
	mu sync.Mutex

	width  int
	height int
	cells  []core.Cell

	events chan Event
	closed bool

	resizeFn func(width, height int)

	drawErr    error
	drawCount  int
	lastUpdate []core.CellUpdate

	cursorX       int
	cursorY       int
	cursorVisible bool
	mouseMode     MouseMode
	inited        bool
}

// NewSim creates a simulated terminal of the given size
func NewSim(width, height int) *Sim {
	s := &Sim{
		width:  width,
		height: height,
		events: make(chan Event, 256),
	}
	s.cells = make([]core.Cell, width*height)
	for i := range s.cells {
		s.cells[i] = core.EmptyCell()
	}
	return s
}

func (s *Sim) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inited = true
	return nil
}

func (s *Sim) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inited = false
}

func (s *Sim) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *Sim) Draw(updates []core.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawErr != nil {
		err := s.drawErr
		s.drawErr = nil
		return &IOError{Op: "draw", Err: err}
	}

	s.drawCount++
	s.lastUpdate = append(s.lastUpdate[:0], updates...)

	for _, u := range updates {
		if u.X < 0 || u.Y < 0 || u.X >= s.width || u.Y >= s.height {
			continue
		}
		s.cells[u.Y*s.width+u.X] = u.Cell
	}
	return nil
}

func (s *Sim) Poll(timeout time.Duration) PollResult {
	select {
	case ev, ok := <-s.events:
		if !ok || ev.Type == EventClosed {
			return PollResult{EOF: true}
		}
		return PollResult{Event: ev}
	case <-time.After(timeout):
		return PollResult{Timeout: true}
	}
}

func (s *Sim) Post(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Close ends the event stream: pending events drain first, then Poll
// reports EOF
func (s *Sim) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

func (s *Sim) SetCursorVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorVisible = visible
}

func (s *Sim) MoveCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorX, s.cursorY = x, y
}

func (s *Sim) SetMouseMode(mode MouseMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mouseMode = mode
	return nil
}

func (s *Sim) OnResize(fn func(width, height int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizeFn = fn
}

// Resize changes the simulated dimensions and notifies like SIGWINCH
func (s *Sim) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.cells = make([]core.Cell, width*height)
	for i := range s.cells {
		s.cells[i] = core.EmptyCell()
	}
	fn := s.resizeFn
	s.mu.Unlock()

	if fn != nil {
		fn(width, height)
	} else {
		s.Post(Event{Type: EventResize, Width: width, Height: height})
	}
}

// FailNextDraw makes the next Draw call return err wrapped in IOError
func (s *Sim) FailNextDraw(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawErr = err
}

// DrawCount returns the number of successful Draw calls
func (s *Sim) DrawCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawCount
}

// LastUpdates returns a copy of the most recent Draw batch
func (s *Sim) LastUpdates() []core.CellUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CellUpdate, len(s.lastUpdate))
	copy(out, s.lastUpdate)
	return out
}

// CellAt returns the current cell at (x, y)
func (s *Sim) CellAt(x, y int) core.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return core.Cell{}
	}
	return s.cells[y*s.width+x]
}

// Cursor returns the cursor position and visibility
func (s *Sim) Cursor() (x, y int, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursorX, s.cursorY, s.cursorVisible
}

// MouseMode returns the last mode set via SetMouseMode
func (s *Sim) MouseMode() MouseMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mouseMode
}

// Content renders the grid as text, one line per row, for assertions
func (s *Sim) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			c := s.cells[y*s.width+x]
			if c.IsContinuation() {
				continue
			}
			sb.WriteString(c.Symbol)
		}
		if y < s.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
