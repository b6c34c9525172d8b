// Package trace records event-routing activity for debugging and
// tooling. Sinks receive one Record per notable routing step; the
// default sink discards everything, so tracing costs nothing unless
// wired up.
package trace

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Kind identifies what a record describes
type Kind string

const (
	KindRouteStart Kind = "route_start" // An event entered the router
	KindRouteEnd   Kind = "route_end"   // Routing finished, outcome known
	KindFocus      Kind = "focus"       // Focus moved between elements
	KindDraw       Kind = "draw"        // A render pass ran
	KindDrawError  Kind = "draw_error"  // A render pass failed
)

// Record is a single trace entry. RouteID groups the records of one
// routed event.
type Record struct {
	RouteID    uint64            `json:"route_id"`
	Kind       Kind              `json:"kind"`
	Name       string            `json:"name"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Sink receives trace records. Implementations must be safe to call
// from the event-loop goroutine without blocking it for long.
type Sink interface {
	Emit(Record)
}

// Nop discards all records
type Nop struct{}

func (Nop) Emit(Record) {}

// Collector buffers records in memory, mainly for tests
type Collector struct {
	mu      sync.Mutex
	records []Record
}

func (c *Collector) Emit(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
}

// Records returns a copy of everything emitted so far
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Writer streams records as JSON lines
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) Emit(r Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enc.Encode(r)
}
