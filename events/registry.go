package events

import (
	"github.com/loomtui/loom/core"
)

// entry pairs an element with the area it occupied when registered
type entry struct {
	el   Element
	area core.Rect
}

// Registry tracks the elements present on screen and their areas.
// Registration order is significant: focus traversal walks it
// forward, mouse hit-testing walks it backward so later (topmost)
// registrations win.
//
// Callers typically Clear and re-register during each render pass so
// the registry mirrors what is actually on screen.
type Registry struct {
	entries []entry
	byID    map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]int),
	}
}

// Clear removes all registrations
func (r *Registry) Clear() {
	r.entries = r.entries[:0]
	clear(r.byID)
}

// Register adds an element with its screen area. Registering the same
// id again replaces the area and moves the element to the top.
func (r *Registry) Register(el Element, area core.Rect) {
	id := el.ID()
	if idx, ok := r.byID[id]; ok {
		r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
		for i := idx; i < len(r.entries); i++ {
			r.byID[r.entries[i].el.ID()] = i
		}
	}
	r.byID[id] = len(r.entries)
	r.entries = append(r.entries, entry{el: el, area: area})
}

// Lookup returns the element registered under id
func (r *Registry) Lookup(id string) (Element, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.entries[idx].el, true
}

// Area returns the registered area for id
func (r *Registry) Area(id string) (core.Rect, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return core.Rect{}, false
	}
	return r.entries[idx].area, true
}

// HitTest returns the topmost element whose area contains (x, y)
func (r *Registry) HitTest(x, y int) (Element, bool) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].area.Contains(x, y) {
			return r.entries[i].el, true
		}
	}
	return nil, false
}

// Focusables returns ids of focusable elements in registration order
func (r *Registry) Focusables() []string {
	var ids []string
	for _, e := range r.entries {
		if e.el.Focusable() {
			ids = append(ids, e.el.ID())
		}
	}
	return ids
}

// Len returns the number of registered elements
func (r *Registry) Len() int {
	return len(r.entries)
}
