// Package engine is a small embedding API over wazero shaped around stores,
// linkers and traced calls.
//
// # Architecture
//
//	Engine      - runtime configuration shared by every store
//	Module      - validated module bytes with import/export metadata
//	Store[T]    - instance namespace plus the host datum of type T
//	Linker[T]   - host definitions keyed by (module, name)
//	InstancePre - instantiated module that has not run its start phase
//	Instance    - running instance with exports
//	Func        - host or guest function tied to one store
//
// # Instantiation Flow
//
//  1. NewModule decodes and validates the binary
//  2. Linker.Define registers host functions built with NewFunc or Wrap
//  3. Linker.Instantiate resolves every import and instantiates the module
//  4. InstancePre.Start runs the start phase and yields the Instance
//  5. Instance.GetFunc looks up an export to call
//
// # Tracing
//
// Every module compiled by an engine carries a wazero function listener.
// Func.CallWithTrace attaches a trace session to the call context and the
// listener records one entry per function-call boundary into the supplied
// trace.Recorder:
//
//	fn, err := inst.GetFunc("main")
//	if err != nil {
//		return err
//	}
//	tr := trace.New()
//	if err := fn.CallWithTrace(ctx, store, nil, nil, tr.Share()); err != nil {
//		return err
//	}
//	fmt.Print(tr)
//
// Calls made with Func.Call carry no session and record nothing.
//
// # Logging
//
// The package logs compile, link, instantiate and call events at debug level
// through a zap logger. It is a no-op until SetLogger is called.
package engine
