// Package errors provides structured error types for the tracer and its
// engine façade.
//
// Errors are categorized by Phase (which step of load, link, instantiate,
// lookup or call failed) and Kind (error category). Error() always renders a
// single line; the complete cause chain stays reachable through Unwrap.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLinking, errors.KindTypeMismatch).
//		Path("host", "main").
//		Detail("import expects %s", want).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ExportNotFound("main")
//	err := errors.Trap("main", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
