package trace

import (
	"fmt"
	"strings"
)

// Kind is the event variant of an Entry.
type Kind uint8

const (
	// KindBoundary opens one traced invocation.
	KindBoundary Kind = iota
	// KindCall is entry into a guest function. Values are its parameters.
	KindCall
	// KindReturn is a guest function returning. Values are its results.
	KindReturn
	// KindHostCall is entry into a host function.
	KindHostCall
	// KindHostReturn is a host function returning.
	KindHostReturn
	// KindTrap is the innermost frame of a faulting call. Detail holds the reason.
	KindTrap
)

var kindNames = [...]string{
	KindBoundary:   "boundary",
	KindCall:       "call",
	KindReturn:     "return",
	KindHostCall:   "host-call",
	KindHostReturn: "host-return",
	KindTrap:       "trap",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsHost reports whether k describes a host function boundary.
func (k Kind) IsHost() bool {
	return k == KindHostCall || k == KindHostReturn
}

// Entry is one recorded execution event. Step is the 1-based position of
// the entry within its traced invocation (zero for boundaries). Depth is the
// call nesting depth, 0 for the invoked function.
type Entry struct {
	Func   string
	Detail string
	Values []Value
	Step   int
	Depth  int
	Kind   Kind
}

// String renders the entry as a single line. Boundaries render without
// their ordinal; Tracer.Render numbers them.
func (e Entry) String() string {
	var b strings.Builder
	writeEntry(&b, e, 0)
	return b.String()
}

func writeEntry(b *strings.Builder, e Entry, ordinal int) {
	if e.Kind == KindBoundary {
		b.WriteString("=== trace")
		if ordinal > 0 {
			fmt.Fprintf(b, " %d", ordinal)
		}
		b.WriteString(": ")
		b.WriteString(e.Func)
		b.WriteString(" ===")
		return
	}

	fmt.Fprintf(b, "%4d ", e.Step)
	for i := 0; i < e.Depth; i++ {
		b.WriteString("  ")
	}
	b.WriteString(e.Kind.String())
	b.WriteByte(' ')
	b.WriteString(e.Func)

	switch e.Kind {
	case KindCall, KindHostCall:
		b.WriteByte('(')
		writeValues(b, e.Values)
		b.WriteByte(')')
	case KindReturn, KindHostReturn:
		b.WriteString(" -> (")
		writeValues(b, e.Values)
		b.WriteByte(')')
	case KindTrap:
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
}

func writeValues(b *strings.Builder, vs []Value) {
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
}
