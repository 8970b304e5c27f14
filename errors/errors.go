package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in the load/link/call sequence the error occurred
type Phase string

const (
	PhaseIO          Phase = "io"          // reading module bytes
	PhaseDecode      Phase = "decode"      // decoding and validation
	PhaseLinking     Phase = "linking"     // import resolution
	PhaseInstantiate Phase = "instantiate" // instantiation and start
	PhaseExport      Phase = "export"      // export lookup
	PhaseRuntime     Phase = "runtime"     // calls
	PhaseHost        Phase = "host"        // host function wrapping
)

// Kind categorizes the error
type Kind string

const (
	KindIO            Kind = "io"
	KindInvalidData   Kind = "invalid_data"
	KindDuplicate     Kind = "duplicate"
	KindMissingImport Kind = "missing_import"
	KindTypeMismatch  Kind = "type_mismatch"
	KindStoreMismatch Kind = "store_mismatch"
	KindUnsupported   Kind = "unsupported"
	KindInstantiation Kind = "instantiation"
	KindNotFound      Kind = "not_found"
	KindNotFunction   Kind = "not_function"
	KindInvalidInput  Kind = "invalid_input"
	KindTrap          Kind = "trap"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface. Only the first line of the cause is
// included; wazero traps carry a multi-line stack trace.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(FirstLine(e.Cause.Error()))
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Is reports whether any error in err's chain matches target. It is
// errors.Is from the standard library, re-exported so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target
func As(err error, target any) bool { return errors.As(err, target) }

// FirstLine returns s up to the first newline.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the item path, e.g. module and field of an import
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors, one per driver phase

// IO creates an error for a file that could not be opened or read
func IO(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseIO,
		Kind:   KindIO,
		Detail: fmt.Sprintf("read %s", path),
		Cause:  cause,
	}
}

// Decode creates an error for bytes that are not a valid module
func Decode(cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Detail: "decode module",
		Cause:  cause,
	}
}

// Duplicate creates a link error for a name defined twice
func Duplicate(module, name string) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindDuplicate,
		Path:   []string{module, name},
		Detail: fmt.Sprintf("%q already defined in module %q", name, module),
	}
}

// ImportMismatch creates a link error for an import whose definition has the wrong type
func ImportMismatch(module, name, want, got string) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindTypeMismatch,
		Path:   []string{module, name},
		Detail: fmt.Sprintf("import expects %s, definition is %s", want, got),
	}
}

// StoreMismatch creates an error for an item used with a store it does not belong to
func StoreMismatch(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStoreMismatch,
		Detail: fmt.Sprintf("%s belongs to a different store", what),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Instantiation creates an instantiation or start failure
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// ExportNotFound creates an error for an export name that is not present
func ExportNotFound(name string) *Error {
	return &Error{
		Phase:  PhaseExport,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("could not find function %q", name),
		Value:  name,
	}
}

// NotAFunction creates an error for an export that exists but is not a function
func NotAFunction(name, kind string) *Error {
	return &Error{
		Phase:  PhaseExport,
		Kind:   KindNotFunction,
		Detail: fmt.Sprintf("export %q is a %s, not a function", name, kind),
		Value:  name,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Trap creates an error for a guest execution fault in fn
func Trap(fn string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Detail: fmt.Sprintf("call %s", fn),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module string // e.g., "host"
	Name   string // e.g., "main"
}

// MissingImportsError is returned when linking fails because the linker has
// no definition for one or more imports
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from the unresolved imports
func NewMissingImportsError(imports []MissingImport) *MissingImportsError {
	return &MissingImportsError{Imports: imports}
}

// demangleRust attempts to extract readable function name from mangled Rust symbol
func demangleRust(name string) string {
	// Rust mangled names start with _ZN
	if !strings.HasPrefix(name, "_ZN") {
		return name
	}

	// Format: _ZN<len><name><len><name>...E
	s := name[3:]
	var parts []string

	for len(s) > 0 && s[0] != 'E' {
		lenEnd := 0
		for lenEnd < len(s) && s[lenEnd] >= '0' && s[lenEnd] <= '9' {
			lenEnd++
		}
		if lenEnd == 0 {
			break
		}

		length := 0
		for i := 0; i < lenEnd; i++ {
			length = length*10 + int(s[i]-'0')
		}
		s = s[lenEnd:]

		if length > len(s) {
			break
		}

		part := s[:length]
		s = s[length:]

		// 17 char hash segments: 'h' + 16 hex digits
		if len(part) == 17 && part[0] == 'h' && isHex(part[1:]) {
			continue
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return name
	}

	return strings.Join(parts, "::")
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Error renders the missing imports on one line grouped by module:
// "[linking] missing_import: host: main, print; env: abort"
func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[linking] missing_import: no imports specified"
	}

	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], demangleRust(imp.Name))
	}

	var b strings.Builder
	b.WriteString("[linking] missing_import: ")
	for i, mod := range order {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(mod)
		b.WriteString(": ")
		b.WriteString(strings.Join(byModule[mod], ", "))
	}
	return b.String()
}

// Is reports whether target matches this error type. A structured
// linking/missing_import target matches too.
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Phase == PhaseLinking && t.Kind == KindMissingImport
	}
	return false
}
