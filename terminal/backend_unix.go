//go:build unix

package terminal

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/loomtui/loom/core"
)

// ansiBackend drives a real Unix terminal with raw escape sequences.
// A self-pipe wakes Poll when Post injects an event from another
// goroutine, so synthetic events are not delayed by the poll timeout.
type ansiBackend struct {
	in      *os.File
	out     *os.File
	inFd    int
	outFd   int
	oldTerm *term.State

	writer *ansiWriter
	parser *inputParser
	events chan Event

	wakeR, wakeW int

	mu        sync.Mutex
	resizeFn  func(width, height int)
	mouseMode MouseMode
	inited    bool

	resizeStopCh chan struct{}
	resizeDoneCh chan struct{}

	readBuf [256]byte
}

// NewANSIBackend creates a backend over stdin/stdout
func NewANSIBackend() Backend {
	b := &ansiBackend{
		in:     os.Stdin,
		out:    os.Stdout,
		inFd:   int(os.Stdin.Fd()),
		outFd:  int(os.Stdout.Fd()),
		events: make(chan Event, 256),
		wakeR:  -1,
		wakeW:  -1,
	}
	b.writer = newANSIWriter(b.out, DetectColorMode())
	b.parser = newInputParser(b.enqueue)
	return b
}

func (b *ansiBackend) enqueue(ev Event) {
	select {
	case b.events <- ev:
	default:
		// Queue full, drop
	}
}

func (b *ansiBackend) Init() error {
	if !term.IsTerminal(b.inFd) {
		return &IOError{Op: "init", Err: fmt.Errorf("stdin is not a terminal")}
	}

	old, err := term.MakeRaw(b.inFd)
	if err != nil {
		return &IOError{Op: "init", Err: err}
	}
	b.oldTerm = old

	var pipeFds [2]int
	if err := unix.Pipe(pipeFds[:]); err != nil {
		term.Restore(b.inFd, b.oldTerm)
		b.oldTerm = nil
		return &IOError{Op: "init", Err: err}
	}
	unix.SetNonblock(pipeFds[0], true)
	unix.SetNonblock(pipeFds[1], true)
	b.wakeR, b.wakeW = pipeFds[0], pipeFds[1]

	b.out.Write(csiAltScreenEnter)
	b.out.Write(csiCursorHide)
	b.out.Write(csiAutoWrapOff)
	b.out.Write(csiClear)
	b.writer.invalidate()

	b.startResizeWatcher()

	b.mu.Lock()
	b.inited = true
	b.mu.Unlock()
	return nil
}

func (b *ansiBackend) Fini() {
	b.mu.Lock()
	if !b.inited {
		b.mu.Unlock()
		return
	}
	b.inited = false
	b.mu.Unlock()

	if b.resizeStopCh != nil {
		close(b.resizeStopCh)
		<-b.resizeDoneCh
		b.resizeStopCh = nil
	}

	b.setMouseReporting(MouseModeNone)

	b.out.Write(csiSGR0)
	b.out.Write(csiCursorShow)
	b.out.Write(csiAutoWrapOn)
	b.out.Write(csiAltScreenExit)

	if b.oldTerm != nil {
		term.Restore(b.inFd, b.oldTerm)
		b.oldTerm = nil
	}

	if b.wakeR >= 0 {
		unix.Close(b.wakeR)
		unix.Close(b.wakeW)
		b.wakeR, b.wakeW = -1, -1
	}
}

func (b *ansiBackend) Size() (int, int) {
	ws, err := unix.IoctlGetWinsize(b.outFd, unix.TIOCGWINSZ)
	if err != nil {
		return 80, 24 // Fallback
	}
	return int(ws.Col), int(ws.Row)
}

func (b *ansiBackend) Draw(updates []core.CellUpdate) error {
	return b.writer.apply(updates)
}

func (b *ansiBackend) Poll(timeout time.Duration) PollResult {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case ev := <-b.events:
			if ev.Type == EventClosed {
				return PollResult{EOF: true}
			}
			return PollResult{Event: ev}
		default:
		}

		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		// A lone buffered ESC caps the wait so it resolves to a
		// standalone Escape key instead of sitting indefinitely
		escPending := b.parser.pendingEscape()
		wait := remaining
		if escPending && wait > escapeTimeout {
			wait = escapeTimeout
		}

		fds := []unix.PollFd{
			{Fd: int32(b.inFd), Events: unix.POLLIN},
			{Fd: int32(b.wakeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(fds, int(wait/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return PollResult{Event: Event{Type: EventError, Err: &IOError{Op: "poll", Err: err}}}
		}

		if n == 0 {
			if escPending {
				b.parser.flushPendingEscape()
				continue
			}
			if !time.Now().Before(deadline) {
				return PollResult{Timeout: true}
			}
			continue
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			var drain [16]byte
			unix.Read(b.wakeR, drain[:])
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			rn, err := unix.Read(b.inFd, b.readBuf[:])
			if err != nil {
				if err == unix.EINTR || err == unix.EAGAIN {
					continue
				}
				return PollResult{Event: Event{Type: EventError, Err: &IOError{Op: "read", Err: err}}}
			}
			if rn == 0 {
				return PollResult{EOF: true}
			}
			b.parser.feed(b.readBuf[:rn])
		}
	}
}

func (b *ansiBackend) Post(ev Event) {
	b.enqueue(ev)
	if b.wakeW >= 0 {
		unix.Write(b.wakeW, []byte{0})
	}
}

func (b *ansiBackend) SetCursorVisible(visible bool) {
	if visible {
		b.out.Write(csiCursorShow)
	} else {
		b.out.Write(csiCursorHide)
	}
}

func (b *ansiBackend) MoveCursor(x, y int) {
	var buf [16]byte
	seq := append(buf[:0], csi...)
	seq = appendInt(seq, y+1)
	seq = append(seq, ';')
	seq = appendInt(seq, x+1)
	seq = append(seq, 'H')
	b.out.Write(seq)
	b.writer.invalidate()
}

func (b *ansiBackend) SetMouseMode(mode MouseMode) error {
	b.mu.Lock()
	b.mouseMode = mode
	b.mu.Unlock()
	return b.setMouseReporting(mode)
}

// setMouseReporting writes the enable/disable sequences for mode
func (b *ansiBackend) setMouseReporting(mode MouseMode) error {
	var seq []byte
	if mode == MouseModeNone {
		seq = append(seq, csiMouseMotionOff...)
		seq = append(seq, csiMouseDragOff...)
		seq = append(seq, csiMouseClickOff...)
		seq = append(seq, csiMouseSGROff...)
	} else {
		seq = append(seq, csiMouseSGROn...)
		if mode&MouseModeClick != 0 {
			seq = append(seq, csiMouseClickOn...)
		}
		if mode&MouseModeDrag != 0 {
			seq = append(seq, csiMouseDragOn...)
		}
		if mode&MouseModeMotion != 0 {
			seq = append(seq, csiMouseMotionOn...)
		}
	}
	if _, err := b.out.Write(seq); err != nil {
		return &IOError{Op: "mouse", Err: err}
	}
	return nil
}

func (b *ansiBackend) OnResize(fn func(width, height int)) {
	b.mu.Lock()
	b.resizeFn = fn
	b.mu.Unlock()
}

func (b *ansiBackend) startResizeWatcher() {
	b.resizeStopCh = make(chan struct{})
	b.resizeDoneCh = make(chan struct{})
	stopCh := b.resizeStopCh

	go func() {
		defer close(b.resizeDoneCh)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGWINCH)
		defer signal.Stop(sigCh)

		for {
			select {
			case <-stopCh:
				return
			case <-sigCh:
				w, h := b.Size()
				b.mu.Lock()
				fn := b.resizeFn
				b.mu.Unlock()
				if fn != nil {
					fn(w, h)
				} else {
					b.Post(Event{Type: EventResize, Width: w, Height: h})
				}
			}
		}
	}()
}

// appendInt appends a decimal integer without fmt
func appendInt(dst []byte, n int) []byte {
	if n < 0 {
		n = 0
	}
	if n < 10 {
		return append(dst, byte(n)+'0')
	}
	var tmp [5]byte
	i := len(tmp)
	for n > 0 && i > 0 {
		i--
		tmp[i] = byte(n%10) + '0'
		n /= 10
	}
	return append(dst, tmp[i:]...)
}
