package core

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// OutOfRangeError reports a buffer access outside its area.
// Deliberately an error rather than a clamp: silent clamping hides
// layout bugs.
type OutOfRangeError struct {
	X, Y          int
	Width, Height int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("buffer access (%d,%d) out of range %dx%d", e.X, e.Y, e.Width, e.Height)
}

// Buffer is a 2D grid of cells over a rectangular area.
// Cells are row-major: cells[y*width + x]. Dimensions are fixed for the
// buffer's lifetime; a size change means allocating a new buffer.
type Buffer struct {
	cells  []Cell
	width  int
	height int
}

// NewBuffer creates a buffer filled with empty cells
func NewBuffer(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	cells := make([]Cell, width*height)
	empty := EmptyCell()
	for i := range cells {
		cells[i] = empty
	}
	return &Buffer{
		cells:  cells,
		width:  width,
		height: height,
	}
}

// Width returns the buffer width
func (b *Buffer) Width() int {
	return b.width
}

// Height returns the buffer height
func (b *Buffer) Height() int {
	return b.height
}

// Area returns the buffer's rectangle at origin
func (b *Buffer) Area() Rect {
	return Rect{Width: b.width, Height: b.height}
}

// InBounds reports whether the coordinates lie within the buffer
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// index converts coordinates to a slice index
func (b *Buffer) index(x, y int) int {
	return y*b.width + x
}

// Get returns the cell at the given coordinates.
// Fails with *OutOfRangeError outside the buffer area.
func (b *Buffer) Get(x, y int) (Cell, error) {
	if !b.InBounds(x, y) {
		return Cell{}, &OutOfRangeError{X: x, Y: y, Width: b.width, Height: b.height}
	}
	return b.cells[b.index(x, y)], nil
}

// Set writes the cell at the given coordinates.
// Fails with *OutOfRangeError outside the buffer area.
func (b *Buffer) Set(x, y int, c Cell) error {
	if !b.InBounds(x, y) {
		return &OutOfRangeError{X: x, Y: y, Width: b.width, Height: b.height}
	}
	b.cells[b.index(x, y)] = c
	return nil
}

// SetString writes text grapheme-by-grapheme starting at (x, y), emitting
// continuation cells after wide glyphs. Writing stops at the right edge;
// a wide glyph that would straddle it is not written. Returns the number
// of columns written.
func (b *Buffer) SetString(x, y int, s string, style Style) int {
	if y < 0 || y >= b.height {
		return 0
	}
	written := 0
	state := -1
	var g string
	for len(s) > 0 {
		g, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w := runewidth.StringWidth(g)
		if w <= 0 {
			continue
		}
		if x < 0 {
			x += w
			continue
		}
		if x+w > b.width {
			break
		}
		b.cells[b.index(x, y)] = Cell{Symbol: g, Style: style}
		for i := 1; i < w; i++ {
			b.cells[b.index(x+i, y)] = ContinuationCell(style)
		}
		x += w
		written += w
	}
	return written
}

// SetStyle patches the style of every cell in the region without
// touching symbols. The region is clipped to the buffer area.
func (b *Buffer) SetStyle(r Rect, style Style) {
	r = r.Intersect(b.Area())
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			b.cells[b.index(x, y)].Style = style
		}
	}
}

// Fill writes the cell into every position of the region, clipped to
// the buffer area.
func (b *Buffer) Fill(r Rect, c Cell) {
	r = r.Intersect(b.Area())
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			b.cells[b.index(x, y)] = c
		}
	}
}

// Clear resets every cell to empty with default style
func (b *Buffer) Clear() {
	empty := EmptyCell()
	for i := range b.cells {
		b.cells[i] = empty
	}
}

// Clone returns a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return &Buffer{cells: cells, width: b.width, height: b.height}
}

// String returns the buffer contents one row per line, continuation
// cells elided. Intended for tests and debugging.
func (b *Buffer) String() string {
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			sb.WriteString(b.cells[b.index(x, y)].Symbol)
		}
		if y < b.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
