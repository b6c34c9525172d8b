// Package render owns the draw pipeline: a Frame collects one pass of
// cell writes, a Screen diffs consecutive frames and sends the minimal
// update set to a terminal backend.
package render

import (
	"github.com/loomtui/loom/core"
)

// Frame is one render pass over the working buffer. Cursor requests
// reset each pass: a pass that does not call SetCursor leaves the
// cursor hidden.
type Frame struct {
	buf *core.Buffer

	cursorX      int
	cursorY      int
	cursorWanted bool
}

// Buffer returns the underlying working buffer
func (f *Frame) Buffer() *core.Buffer {
	return f.buf
}

// Size returns frame dimensions
func (f *Frame) Size() (width, height int) {
	return f.buf.Width(), f.buf.Height()
}

// Bounds returns the frame rectangle at origin
func (f *Frame) Bounds() core.Rect {
	return core.NewRect(0, 0, f.buf.Width(), f.buf.Height())
}

// Set writes a single cell
func (f *Frame) Set(x, y int, c core.Cell) error {
	return f.buf.Set(x, y, c)
}

// SetString writes a styled string starting at (x, y), returning the
// number of columns written
func (f *Frame) SetString(x, y int, s string, style core.Style) int {
	return f.buf.SetString(x, y, s, style)
}

// Fill fills the intersection of r with the frame
func (f *Frame) Fill(r core.Rect, c core.Cell) {
	f.buf.Fill(r, c)
}

// SetStyle restyles cells in r without touching their symbols
func (f *Frame) SetStyle(r core.Rect, style core.Style) {
	f.buf.SetStyle(r, style)
}

// SetCursor requests a visible cursor at (x, y) for this frame
func (f *Frame) SetCursor(x, y int) {
	f.cursorX, f.cursorY = x, y
	f.cursorWanted = true
}

// reset prepares the frame for a new pass
func (f *Frame) reset(buf *core.Buffer) {
	f.buf = buf
	f.cursorWanted = false
}
