package core

import (
	"github.com/mattn/go-runewidth"
)

// Attr represents text attributes (bitmask)
type Attr uint8

const (
	AttrNone      Attr = 0
	AttrBold      Attr = 1 << 0
	AttrDim       Attr = 1 << 1
	AttrItalic    Attr = 1 << 2
	AttrUnderline Attr = 1 << 3
	AttrBlink     Attr = 1 << 4
	AttrReverse   Attr = 1 << 5
	AttrFg256     Attr = 1 << 6 // Fg.R is 256-color palette index
	AttrBg256     Attr = 1 << 7 // Bg.R is 256-color palette index
)

// AttrStyle masks only the style bits (excludes color mode flags)
const AttrStyle Attr = AttrBold | AttrDim | AttrItalic | AttrUnderline | AttrBlink | AttrReverse

// RGB is a 24-bit color value
type RGB struct {
	R, G, B uint8
}

// Style combines foreground, background and attributes.
// The buffer and diff only ever compare styles for equality; interpreting
// them (color depth, palette mapping) is backend territory.
type Style struct {
	Fg    RGB
	Bg    RGB
	Attrs Attr
}

// DefaultStyle is the zero style
var DefaultStyle = Style{}

// Cell is a single grid cell: one grapheme cluster plus its style.
// A wide glyph occupies its origin cell and one or more continuation
// cells (empty Symbol, same style) so column arithmetic stays O(1).
type Cell struct {
	Symbol string
	Style  Style
}

// EmptyCell returns a blank cell with default style
func EmptyCell() Cell {
	return Cell{Symbol: " "}
}

// NewCell creates a cell with the given symbol and style
func NewCell(symbol string, style Style) Cell {
	return Cell{Symbol: symbol, Style: style}
}

// ContinuationCell returns the placeholder written after a wide glyph's
// origin cell
func ContinuationCell(style Style) Cell {
	return Cell{Symbol: "", Style: style}
}

// IsContinuation reports whether the cell is a wide-glyph placeholder
func (c Cell) IsContinuation() bool {
	return c.Symbol == ""
}

// Width returns the display width of the cell's symbol in columns
func (c Cell) Width() int {
	return runewidth.StringWidth(c.Symbol)
}
