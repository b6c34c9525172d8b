package events

// FocusManager tracks which element id holds keyboard focus and walks
// the focusable set cyclically.
//
// The focused id persists until explicitly changed: an id that drops
// out of the traversal order stays focused (key delivery to it simply
// finds no element), and the next traversal restarts from the first
// or last entry. This keeps focus stable across transient UI states
// like a panel briefly unmounting.
type FocusManager struct {
	order   []string
	focused string
}

func NewFocusManager() *FocusManager {
	return &FocusManager{}
}

// Clear empties the traversal order. The focused id is kept.
func (m *FocusManager) Clear() {
	m.order = m.order[:0]
}

// Register appends id to the traversal order if not already present
func (m *FocusManager) Register(id string) {
	for _, existing := range m.order {
		if existing == id {
			return
		}
	}
	m.order = append(m.order, id)
}

// SetFocus moves focus to id. Ids outside the current order are
// accepted; they make the focused phase a no-op until the element
// reappears.
func (m *FocusManager) SetFocus(id string) {
	m.focused = id
}

// Focused returns the currently focused id, empty if none
func (m *FocusManager) Focused() string {
	return m.focused
}

// indexOf returns the position of id in the order, -1 if absent
func (m *FocusManager) indexOf(id string) int {
	for i, existing := range m.order {
		if existing == id {
			return i
		}
	}
	return -1
}

// FocusNext advances focus to the next id, wrapping at the end.
// A stale or empty focus restarts from the first entry. Returns false
// when nothing is registered.
func (m *FocusManager) FocusNext() bool {
	if len(m.order) == 0 {
		return false
	}
	idx := m.indexOf(m.focused)
	if idx < 0 {
		m.focused = m.order[0]
		return true
	}
	m.focused = m.order[(idx+1)%len(m.order)]
	return true
}

// FocusPrevious moves focus to the previous id, wrapping at the
// start. A stale or empty focus restarts from the last entry.
func (m *FocusManager) FocusPrevious() bool {
	if len(m.order) == 0 {
		return false
	}
	idx := m.indexOf(m.focused)
	if idx < 0 {
		m.focused = m.order[len(m.order)-1]
		return true
	}
	m.focused = m.order[(idx-1+len(m.order))%len(m.order)]
	return true
}
