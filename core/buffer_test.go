package core

import (
	"errors"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	width, height := 80, 24
	buf := NewBuffer(width, height)

	if buf.Width() != width {
		t.Errorf("Expected width %d, got %d", width, buf.Width())
	}
	if buf.Height() != height {
		t.Errorf("Expected height %d, got %d", height, buf.Height())
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cell, err := buf.Get(x, y)
			if err != nil {
				t.Fatalf("Get(%d,%d): %v", x, y, err)
			}
			if cell != EmptyCell() {
				t.Errorf("Expected empty cell at (%d,%d), got %+v", x, y, cell)
			}
		}
	}
}

func TestGetSetCell(t *testing.T) {
	buf := NewBuffer(10, 10)

	cell := NewCell("A", Style{Fg: RGB{R: 255}, Attrs: AttrBold})
	if err := buf.Set(5, 5, cell); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := buf.Get(5, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != cell {
		t.Errorf("Expected %+v, got %+v", cell, got)
	}
}

func TestOutOfRangeAccess(t *testing.T) {
	buf := NewBuffer(4, 3)

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 0},
		{"negative y", 0, -1},
		{"x at width", 4, 0},
		{"y at height", 0, 3},
		{"far out", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buf.Get(tt.x, tt.y); err == nil {
				t.Errorf("Get(%d,%d): expected error", tt.x, tt.y)
			}
			err := buf.Set(tt.x, tt.y, EmptyCell())
			if err == nil {
				t.Fatalf("Set(%d,%d): expected error", tt.x, tt.y)
			}
			var oor *OutOfRangeError
			if !errors.As(err, &oor) {
				t.Errorf("Set(%d,%d): expected *OutOfRangeError, got %T", tt.x, tt.y, err)
			}
			if oor.X != tt.x || oor.Y != tt.y {
				t.Errorf("error coordinates (%d,%d), want (%d,%d)", oor.X, oor.Y, tt.x, tt.y)
			}
		})
	}
}

func TestSetString(t *testing.T) {
	buf := NewBuffer(10, 2)
	style := Style{Attrs: AttrBold}

	n := buf.SetString(1, 0, "abc", style)
	if n != 3 {
		t.Errorf("Expected 3 columns written, got %d", n)
	}
	for i, want := range []string{"a", "b", "c"} {
		cell, _ := buf.Get(1+i, 0)
		if cell.Symbol != want || cell.Style != style {
			t.Errorf("cell %d: got %+v", i, cell)
		}
	}

	// Clipped at the right edge
	n = buf.SetString(8, 1, "xyz", style)
	if n != 2 {
		t.Errorf("Expected 2 columns written at edge, got %d", n)
	}
}

func TestSetStringWideGlyph(t *testing.T) {
	buf := NewBuffer(6, 1)
	style := Style{Fg: RGB{G: 200}}

	n := buf.SetString(0, 0, "漢x", style)
	if n != 3 {
		t.Errorf("Expected 3 columns written, got %d", n)
	}

	origin, _ := buf.Get(0, 0)
	if origin.Symbol != "漢" {
		t.Errorf("Expected origin cell 漢, got %q", origin.Symbol)
	}
	cont, _ := buf.Get(1, 0)
	if !cont.IsContinuation() {
		t.Errorf("Expected continuation cell at (1,0), got %+v", cont)
	}
	if cont.Style != style {
		t.Errorf("Continuation cell must share the origin style")
	}
	next, _ := buf.Get(2, 0)
	if next.Symbol != "x" {
		t.Errorf("Expected x after continuation, got %q", next.Symbol)
	}
}

func TestSetStringWideGlyphAtEdge(t *testing.T) {
	buf := NewBuffer(3, 1)

	// "漢" needs 2 columns but only 1 remains; it must not be half-written
	n := buf.SetString(2, 0, "漢", Style{})
	if n != 0 {
		t.Errorf("Expected 0 columns written, got %d", n)
	}
	cell, _ := buf.Get(2, 0)
	if cell != EmptyCell() {
		t.Errorf("Edge cell must stay empty, got %+v", cell)
	}
}

func TestSetStyleRect(t *testing.T) {
	buf := NewBuffer(5, 5)
	buf.SetString(0, 1, "hello", Style{})

	patch := Style{Attrs: AttrReverse}
	buf.SetStyle(Rect{X: 1, Y: 1, Width: 2, Height: 1}, patch)

	for x := 0; x < 5; x++ {
		cell, _ := buf.Get(x, 1)
		wantStyle := Style{}
		if x == 1 || x == 2 {
			wantStyle = patch
		}
		if cell.Style != wantStyle {
			t.Errorf("cell (%d,1) style %+v, want %+v", x, cell.Style, wantStyle)
		}
		if cell.Symbol != string("hello"[x]) {
			t.Errorf("SetStyle must not touch symbols, got %q at %d", cell.Symbol, x)
		}
	}
}

func TestFillClipped(t *testing.T) {
	buf := NewBuffer(4, 4)
	c := NewCell("#", Style{})

	// Region extending beyond the buffer is clipped, not an error
	buf.Fill(Rect{X: 2, Y: 2, Width: 10, Height: 10}, c)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			cell, _ := buf.Get(x, y)
			want := EmptyCell()
			if x >= 2 && y >= 2 {
				want = c
			}
			if cell != want {
				t.Errorf("cell (%d,%d): got %+v, want %+v", x, y, cell, want)
			}
		}
	}
}

func TestClearAndClone(t *testing.T) {
	buf := NewBuffer(3, 3)
	buf.SetString(0, 0, "abc", Style{})

	clone := buf.Clone()
	buf.Clear()

	got, _ := clone.Get(0, 0)
	if got.Symbol != "a" {
		t.Errorf("Clone must be independent of the original, got %q", got.Symbol)
	}
	cleared, _ := buf.Get(0, 0)
	if cleared != EmptyCell() {
		t.Errorf("Clear left %+v", cleared)
	}
}

func TestBufferString(t *testing.T) {
	buf := NewBuffer(3, 2)
	buf.SetString(0, 0, "ab", Style{})
	buf.SetString(1, 1, "c", Style{})

	want := "ab \n c "
	if got := buf.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRectOps(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 10, 10)

	if !a.Contains(9, 9) || a.Contains(10, 10) {
		t.Error("Contains must include top-left edge, exclude bottom-right")
	}
	if !a.Intersects(b) {
		t.Error("Expected overlap")
	}
	got := a.Intersect(b)
	want := NewRect(5, 5, 5, 5)
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}
	if !a.Intersect(NewRect(20, 20, 5, 5)).Empty() {
		t.Error("Disjoint rectangles must intersect to empty")
	}
}
