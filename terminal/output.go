package terminal

import (
	"bufio"
	"io"

	"github.com/mattn/go-runewidth"

	"github.com/loomtui/loom/core"
)

// ansiWriter serializes cell updates into escape sequences.
// Updates arrive in row-major order, which lets the writer coalesce
// cursor movement and style changes across adjacent cells.
type ansiWriter struct {
	writer    *bufio.Writer
	colorMode ColorMode

	cursorX     int
	cursorY     int
	cursorValid bool

	// Style state for coalescing
	lastStyle core.Style
	lastValid bool
}

// newANSIWriter creates a writer over w
func newANSIWriter(w io.Writer, colorMode ColorMode) *ansiWriter {
	return &ansiWriter{
		writer:    bufio.NewWriterSize(w, 131072), // 128KB buffer
		colorMode: colorMode,
	}
}

// apply writes a batch of cell updates and flushes.
// Continuation cells are skipped: the glyph at the origin column
// already advanced the cursor past them.
func (a *ansiWriter) apply(updates []core.CellUpdate) error {
	w := a.writer

	for _, u := range updates {
		if u.Cell.IsContinuation() {
			continue
		}

		if !a.cursorValid || u.X != a.cursorX || u.Y != a.cursorY {
			// Always use non-destructive cursor movement
			if a.cursorValid && u.Y == a.cursorY && u.X > a.cursorX {
				writeCursorForward(w, u.X-a.cursorX)
			} else {
				writeCursorPos(w, u.X, u.Y)
			}
			a.cursorX = u.X
			a.cursorY = u.Y
			a.cursorValid = true
		}

		a.writeStyleCoalesced(w, u.Cell.Style)

		sym := u.Cell.Symbol
		if sym == "" {
			sym = " "
		}
		w.WriteString(sym)

		a.cursorX += runewidth.StringWidth(sym)
	}

	w.Write(csiSGR0)
	a.lastValid = false

	if err := w.Flush(); err != nil {
		return &IOError{Op: "draw", Err: err}
	}
	return nil
}

// invalidate marks cursor and style state as unknown
// (call after any out-of-band write to the terminal)
func (a *ansiWriter) invalidate() {
	a.cursorValid = false
	a.lastValid = false
}

// writeStyleCoalesced emits a single combined SGR sequence when style changes
func (a *ansiWriter) writeStyleCoalesced(w *bufio.Writer, s core.Style) {
	fgChanged := !a.lastValid || s.Fg != a.lastStyle.Fg ||
		(s.Attrs&core.AttrFg256) != (a.lastStyle.Attrs&core.AttrFg256)
	bgChanged := !a.lastValid || s.Bg != a.lastStyle.Bg ||
		(s.Attrs&core.AttrBg256) != (a.lastStyle.Attrs&core.AttrBg256)
	styleAttr := s.Attrs & core.AttrStyle
	attrChanged := !a.lastValid || styleAttr != a.lastStyle.Attrs&core.AttrStyle

	if !fgChanged && !bgChanged && !attrChanged {
		return
	}

	if attrChanged {
		// Attribute changes require a reset first
		w.Write(csi)
		w.WriteByte('0')

		if styleAttr&core.AttrBold != 0 {
			w.Write([]byte(";1"))
		}
		if styleAttr&core.AttrDim != 0 {
			w.Write([]byte(";2"))
		}
		if styleAttr&core.AttrItalic != 0 {
			w.Write([]byte(";3"))
		}
		if styleAttr&core.AttrUnderline != 0 {
			w.Write([]byte(";4"))
		}
		if styleAttr&core.AttrBlink != 0 {
			w.Write([]byte(";5"))
		}
		if styleAttr&core.AttrReverse != 0 {
			w.Write([]byte(";7"))
		}

		a.writeFgInline(w, s.Fg, s.Attrs)
		a.writeBgInline(w, s.Bg, s.Attrs)
		w.WriteByte('m')
	} else if fgChanged && bgChanged {
		w.Write(csi)
		a.writeFgInline(w, s.Fg, s.Attrs)
		a.writeBgInline(w, s.Bg, s.Attrs)
		w.WriteByte('m')
	} else if fgChanged {
		a.writeFgFull(w, s.Fg, s.Attrs)
	} else if bgChanged {
		a.writeBgFull(w, s.Bg, s.Attrs)
	}

	a.lastStyle = s
	a.lastValid = true
}

// writeFgInline writes fg color parameters (no CSI prefix, no 'm' suffix)
func (a *ansiWriter) writeFgInline(w *bufio.Writer, fg core.RGB, attr core.Attr) {
	w.WriteByte(';')
	if attr&core.AttrFg256 != 0 {
		// Palette index carried in R
		w.Write([]byte("38;5;"))
		writeInt(w, int(fg.R))
	} else if a.colorMode == ColorModeTrueColor {
		w.Write([]byte("38;2;"))
		writeInt(w, int(fg.R))
		w.WriteByte(';')
		writeInt(w, int(fg.G))
		w.WriteByte(';')
		writeInt(w, int(fg.B))
	} else {
		w.Write([]byte("38;5;"))
		writeInt(w, int(RGBTo256(fg)))
	}
}

// writeBgInline writes bg color parameters (no CSI prefix, no 'm' suffix)
func (a *ansiWriter) writeBgInline(w *bufio.Writer, bg core.RGB, attr core.Attr) {
	w.WriteByte(';')
	if attr&core.AttrBg256 != 0 {
		w.Write([]byte("48;5;"))
		writeInt(w, int(bg.R))
	} else if a.colorMode == ColorModeTrueColor {
		w.Write([]byte("48;2;"))
		writeInt(w, int(bg.R))
		w.WriteByte(';')
		writeInt(w, int(bg.G))
		w.WriteByte(';')
		writeInt(w, int(bg.B))
	} else {
		w.Write([]byte("48;5;"))
		writeInt(w, int(RGBTo256(bg)))
	}
}

// writeFgFull writes complete fg color sequence
func (a *ansiWriter) writeFgFull(w *bufio.Writer, fg core.RGB, attr core.Attr) {
	if attr&core.AttrFg256 != 0 {
		w.Write(csiFg256)
		writeInt(w, int(fg.R))
	} else if a.colorMode == ColorModeTrueColor {
		w.Write(csiFgRGB)
		writeInt(w, int(fg.R))
		w.WriteByte(';')
		writeInt(w, int(fg.G))
		w.WriteByte(';')
		writeInt(w, int(fg.B))
	} else {
		w.Write(csiFg256)
		writeInt(w, int(RGBTo256(fg)))
	}
	w.WriteByte('m')
}

// writeBgFull writes complete bg color sequence
func (a *ansiWriter) writeBgFull(w *bufio.Writer, bg core.RGB, attr core.Attr) {
	if attr&core.AttrBg256 != 0 {
		w.Write(csiBg256)
		writeInt(w, int(bg.R))
	} else if a.colorMode == ColorModeTrueColor {
		w.Write(csiBgRGB)
		writeInt(w, int(bg.R))
		w.WriteByte(';')
		writeInt(w, int(bg.G))
		w.WriteByte(';')
		writeInt(w, int(bg.B))
	} else {
		w.Write(csiBg256)
		writeInt(w, int(RGBTo256(bg)))
	}
	w.WriteByte('m')
}
