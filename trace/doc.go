// Package trace records the events of a traced WebAssembly call.
//
// A Tracer is a passive, append-only log. The engine appends one Entry per
// function-call boundary while a traced call runs; the caller renders the log
// once the call has returned:
//
//	tr := trace.New()
//	err := fn.CallWithTrace(ctx, store, nil, nil, tr)
//	fmt.Print(tr.Render())
//
// Rendered form, one entry per line:
//
//	=== trace 1: main ===
//	   1 call main()
//	   2   host-call host.main(i32:3)
//	   3   host-return host.main -> ()
//	   4 return main -> ()
//
// Boundaries are numbered in order of appearance. Steps are numbered from 1
// within each traced invocation and indented two spaces per call depth.
// A faulting call ends with a single trap line for the innermost frame:
//
//	   2   trap host.main: wasm error: unreachable
//
// The Tracer applies no policy. Sampling, filtering and fan-out are done by
// wrapping Recorders (Filter, Tee, LogRecorder).
package trace
