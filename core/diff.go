package core

// CellUpdate is one unit of diff output: a cell that must be written at
// the given position.
type CellUpdate struct {
	X, Y int
	Cell Cell
}

// Diff computes the updates that turn prev into cur.
//
// Updates are emitted in row-major order (top-to-bottom, left-to-right).
// That ordering is a contract: backends assume cursor movement is
// cheapest along a scan line and coalesce adjacent updates into runs.
// Continuation cells diff independently like any other cell.
//
// Diffing buffers of unequal dimensions is undefined; Diff returns nil
// and the caller must enumerate every cell of cur via Repaint instead.
func Diff(prev, cur *Buffer) []CellUpdate {
	if prev == nil || prev.width != cur.width || prev.height != cur.height {
		return nil
	}
	var updates []CellUpdate
	for y := 0; y < cur.height; y++ {
		row := y * cur.width
		for x := 0; x < cur.width; x++ {
			idx := row + x
			if prev.cells[idx] != cur.cells[idx] {
				updates = append(updates, CellUpdate{X: x, Y: y, Cell: cur.cells[idx]})
			}
		}
	}
	return updates
}

// Repaint enumerates every cell of the buffer in row-major order.
// Used in place of Diff when no valid baseline exists (first frame,
// size change).
func Repaint(b *Buffer) []CellUpdate {
	updates := make([]CellUpdate, 0, len(b.cells))
	for y := 0; y < b.height; y++ {
		row := y * b.width
		for x := 0; x < b.width; x++ {
			updates = append(updates, CellUpdate{X: x, Y: y, Cell: b.cells[row+x]})
		}
	}
	return updates
}

// Apply writes a sequence of updates into the buffer.
// Fails with *OutOfRangeError on the first update outside the area.
func Apply(b *Buffer, updates []CellUpdate) error {
	for _, u := range updates {
		if err := b.Set(u.X, u.Y, u.Cell); err != nil {
			return err
		}
	}
	return nil
}
