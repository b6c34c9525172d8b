package terminal

import (
	"time"
	"unicode/utf8"
)

// escapeTimeout is how long a bare ESC sits in the buffer before it is
// emitted as a standalone Escape key rather than a sequence prefix
const escapeTimeout = 50 * time.Millisecond

// inputParser assembles raw terminal bytes into events.
// Incomplete sequences stay buffered until more bytes arrive; a poll
// timeout resolves a pending bare ESC via flushPendingEscape.
type inputParser struct {
	emit func(Event)

	// Persistent buffer so partial UTF-8 and escape sequences survive
	// read boundaries
	buf []byte
}

func newInputParser(emit func(Event)) *inputParser {
	return &inputParser{
		emit: emit,
		buf:  make([]byte, 0, 256),
	}
}

// feed appends raw bytes and parses as many complete events as possible
func (p *inputParser) feed(data []byte) {
	p.buf = append(p.buf, data...)

	consumed := p.parse(p.buf)
	if consumed > 0 {
		if consumed >= len(p.buf) {
			p.buf = p.buf[:0]
		} else {
			copy(p.buf, p.buf[consumed:])
			p.buf = p.buf[:len(p.buf)-consumed]
		}
	}
}

// pendingEscape reports whether a lone ESC is waiting for more bytes
func (p *inputParser) pendingEscape() bool {
	return len(p.buf) == 1 && p.buf[0] == 0x1b
}

// flushPendingEscape emits a buffered lone ESC as KeyEscape.
// Call when a read timeout fires with no further bytes.
func (p *inputParser) flushPendingEscape() {
	if len(p.buf) == 1 && p.buf[0] == 0x1b {
		p.emit(Event{Type: EventKey, Key: KeyEscape})
		p.buf = p.buf[:0]
	}
}

// parse decodes events from data and returns bytes consumed,
// stopping at the first incomplete sequence
func (p *inputParser) parse(data []byte) int {
	i := 0
	n := len(data)

	for i < n {
		b := data[i]

		// Fast path: printable ASCII
		if b >= 0x20 && b < 0x7f {
			p.emit(Event{Type: EventKey, Key: KeyRune, Rune: rune(b)})
			i++
			continue
		}

		if b == 0x1b {
			if i+1 >= n {
				return i // wait for more data
			}
			consumed, ev := parseEscape(data[i:])
			if consumed == 0 {
				return i
			}
			// Swallow unknown-but-valid sequences
			if ev.Key != KeyNone || ev.Type != EventKey {
				p.emit(ev)
			}
			i += consumed
			continue
		}

		if b < 0x20 {
			p.emit(parseControl(b))
			i++
			continue
		}

		if b == 0x7f {
			p.emit(Event{Type: EventKey, Key: KeyBackspace})
			i++
			continue
		}

		// UTF-8 multibyte
		if !utf8.FullRune(data[i:]) {
			if n-i >= utf8.UTFMax {
				// Garbage that will never complete, skip a byte
				i++
				continue
			}
			return i
		}
		rn, size := utf8.DecodeRune(data[i:])
		if rn == utf8.RuneError && size == 1 {
			i++
			continue
		}
		p.emit(Event{Type: EventKey, Key: KeyRune, Rune: rn})
		i += size
	}
	return i
}

// parseEscape parses an escape sequence, returning 0 consumed on incomplete
func parseEscape(data []byte) (int, Event) {
	if len(data) < 2 {
		return 0, Event{}
	}

	// ESC ESC
	if data[1] == 0x1b {
		return 2, Event{Type: EventKey, Key: KeyEscape, Modifiers: ModAlt}
	}

	if data[1] == '[' {
		return parseCSI(data)
	}
	if data[1] == 'O' {
		return parseSS3(data)
	}

	// Alt+control character
	if data[1] < 0x20 {
		ev := parseControl(data[1])
		ev.Modifiers |= ModAlt
		return 2, ev
	}

	// Alt+printable
	if data[1] >= 0x20 && data[1] < 0x7f {
		return 2, Event{Type: EventKey, Key: KeyRune, Rune: rune(data[1]), Modifiers: ModAlt}
	}

	return 0, Event{}
}

// parseCSI parses a CSI sequence without allocation
func parseCSI(data []byte) (int, Event) {
	if len(data) < 3 {
		return 0, Event{}
	}

	// SGR mouse: ESC [ < Btn ; X ; Y M/m
	if data[2] == '<' {
		return parseSGRMouse(data)
	}

	const maxScan = 16
	limit := min(len(data), maxScan)

	for end := 2; end < limit; end++ {
		b := data[end]
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			if key, mod, ok := lookupCSI(data[2 : end+1]); ok {
				return end + 1, Event{Type: EventKey, Key: key, Modifiers: mod}
			}
			// Unknown but syntactically valid, consume it
			return end + 1, Event{Type: EventKey, Key: KeyNone}
		}
		if b < 0x20 || b > 0x7e {
			// Malformed byte inside the sequence. Drop the ESC so the
			// parser resynchronizes instead of wedging on it.
			return 1, Event{Type: EventKey, Key: KeyNone}
		}
	}
	if limit == maxScan {
		// No terminator within the scan cap: runaway sequence, skip
		// the ESC and resynchronize
		return 1, Event{Type: EventKey, Key: KeyNone}
	}
	return 0, Event{} // wait for more data
}

// parseSS3 parses an SS3 sequence, consuming unknown ones to avoid garbage
func parseSS3(data []byte) (int, Event) {
	if len(data) < 3 {
		return 0, Event{}
	}
	if key, mod, ok := lookupSS3(data[2:3]); ok {
		return 3, Event{Type: EventKey, Key: key, Modifiers: mod}
	}
	return 3, Event{Type: EventKey, Key: KeyNone}
}

// parseControl maps control characters to keys
func parseControl(b byte) Event {
	var key Key
	switch b {
	case 0x00:
		key = KeyCtrlSpace
	case 0x08: // Ctrl+H doubles as Backspace
		key = KeyBackspace
	case 0x09:
		key = KeyTab
	case 0x0a, 0x0d:
		key = KeyEnter
	case 0x1b:
		key = KeyEscape
	case 0x1c:
		key = KeyCtrlBackslash
	case 0x1d:
		key = KeyCtrlBracketRight
	case 0x1e:
		key = KeyCtrlCaret
	case 0x1f:
		key = KeyCtrlUnderscore
	default:
		if b >= 0x01 && b <= 0x1a {
			key = KeyCtrlA + Key(b-0x01)
		} else {
			key = KeyNone
		}
	}
	return Event{Type: EventKey, Key: key}
}

// parseSGRMouse parses SGR mouse sequences: ESC [ < Btn ; X ; Y M/m
func parseSGRMouse(data []byte) (int, Event) {
	// Minimum: ESC [ < 0 ; 1 ; 1 M = 9 bytes
	if len(data) < 9 {
		return 0, Event{}
	}

	const maxScan = 32
	end := 3
	limit := min(len(data), maxScan)
	for end < limit && data[end] != 'M' && data[end] != 'm' {
		end++
	}
	if end >= limit || (data[end] != 'M' && data[end] != 'm') {
		if limit == maxScan {
			// Runaway mouse report, skip the ESC and resynchronize
			return 1, Event{Type: EventKey, Key: KeyNone}
		}
		return 0, Event{}
	}

	btn, x, y, ok := parseSGRParams(data[3:end])
	if !ok {
		return end + 1, Event{Type: EventKey, Key: KeyNone}
	}

	ev := Event{Type: EventMouse, MouseX: x - 1, MouseY: y - 1} // 1-indexed on the wire

	// Bits 0-1: button (0=left, 1=middle, 2=right, 3=none)
	// Bit 5 (32): motion, bit 6 (64): scroll
	buttonID := btn & 0x03
	isMotion := btn&32 != 0
	isScroll := btn&64 != 0

	if isScroll {
		if buttonID == 0 {
			ev.MouseBtn = MouseBtnWheelUp
		} else {
			ev.MouseBtn = MouseBtnWheelDown
		}
		ev.MouseAction = MouseActionPress
	} else {
		switch buttonID {
		case 0:
			ev.MouseBtn = MouseBtnLeft
		case 1:
			ev.MouseBtn = MouseBtnMiddle
		case 2:
			ev.MouseBtn = MouseBtnRight
		case 3:
			ev.MouseBtn = MouseBtnNone
		}

		if data[end] == 'M' {
			if isMotion {
				if ev.MouseBtn != MouseBtnNone {
					ev.MouseAction = MouseActionDrag
				} else {
					ev.MouseAction = MouseActionMove
				}
			} else {
				ev.MouseAction = MouseActionPress
			}
		} else {
			ev.MouseAction = MouseActionRelease
		}
	}

	if btn&4 != 0 {
		ev.Modifiers |= ModShift
	}
	if btn&8 != 0 {
		ev.Modifiers |= ModAlt
	}
	if btn&16 != 0 {
		ev.Modifiers |= ModCtrl
	}

	return end + 1, ev
}

// parseSGRParams extracts btn, x, y from "Btn;X;Y"
func parseSGRParams(data []byte) (btn, x, y int, ok bool) {
	state := 0
	val := 0

	for _, b := range data {
		switch {
		case b == ';':
			switch state {
			case 0:
				btn = val
			case 1:
				x = val
			default:
				return 0, 0, 0, false
			}
			state++
			val = 0
		case b >= '0' && b <= '9':
			val = val*10 + int(b-'0')
			if val > 9999 {
				return 0, 0, 0, false
			}
		default:
			return 0, 0, 0, false
		}
	}

	if state != 2 {
		return 0, 0, 0, false
	}
	y = val
	return btn, x, y, true
}
