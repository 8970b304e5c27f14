package trace

import (
	"io"
	"strings"
	"sync"
)

// Recorder receives entries from a traced call. Record must not fail and
// must not block for long; it runs inside the interpreter.
type Recorder interface {
	Record(Entry)
}

// Tracer is an append-only log of entries. A *Tracer is a shared handle:
// every holder of the pointer observes the same log.
//
// Appends are serialized by a mutex, so a Tracer may be fed from several
// goroutines, though the engine itself records from one.
type Tracer struct {
	entries []Entry
	mu      sync.Mutex
}

// New creates an empty tracer.
func New() *Tracer {
	return &Tracer{}
}

// Record appends e. The Values slice is copied.
func (t *Tracer) Record(e Entry) {
	if len(e.Values) > 0 {
		e.Values = append([]Value(nil), e.Values...)
	}
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
}

// Share returns a handle to the same log. Entries recorded through either
// handle are visible through both.
func (t *Tracer) Share() *Tracer {
	return t
}

// Len returns the number of recorded entries.
func (t *Tracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns a copy of the recorded entries in order.
func (t *Tracer) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		if len(e.Values) > 0 {
			e.Values = append([]Value(nil), e.Values...)
		}
		out[i] = e
	}
	return out
}

// Render returns the text form of the log, one entry per line. An empty
// tracer renders as "".
func (t *Tracer) Render() string {
	t.mu.Lock()
	entries := t.entries[:len(t.entries):len(t.entries)]
	t.mu.Unlock()
	return renderText(entries)
}

// String implements fmt.Stringer.
func (t *Tracer) String() string {
	return t.Render()
}

// WriteTo writes the text form of the log to w.
func (t *Tracer) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Render())
	return int64(n), err
}

// Lines returns the text form of entries, one string per entry and without
// newlines. Boundaries are numbered as in Render.
func Lines(entries []Entry) []string {
	lines := make([]string, len(entries))
	ordinal := 0
	for i, e := range entries {
		if e.Kind == KindBoundary {
			ordinal++
		}
		var b strings.Builder
		writeEntry(&b, e, ordinal)
		lines[i] = b.String()
	}
	return lines
}

func renderText(entries []Entry) string {
	var b strings.Builder
	ordinal := 0
	for _, e := range entries {
		if e.Kind == KindBoundary {
			ordinal++
		}
		writeEntry(&b, e, ordinal)
		b.WriteByte('\n')
	}
	return b.String()
}
