// Command example loads src/v1/tests/test_rust.wasm, links a host function
// that prints its argument and the store's host datum, calls the exported
// main function under a tracer and prints the trace.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Forpee/poc-wasmi-v1-tracer/engine"
	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

const wasmPath = "src/v1/tests/test_rust.wasm"

// HostState is the host datum of the example store
type HostState = uint32

func main() {
	if err := run(context.Background(), os.Stdout, wasmPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer, path string) error {
	eng, err := engine.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	tracer := trace.New()
	shared := tracer.Share()

	wasm, err := os.ReadFile(path)
	if err != nil {
		return errors.IO(path, err)
	}
	module, err := engine.NewModule(ctx, eng, wasm)
	if err != nil {
		return err
	}

	store := engine.NewStore[HostState](ctx, eng, 42)
	defer store.Close(ctx)

	hostMain, err := engine.Wrap(store, func(caller *engine.Caller[HostState], param int32) {
		fmt.Fprintf(stdout, "Got %d from WebAssembly\n", param)
		fmt.Fprintf(stdout, "My host state is: %d\n", caller.Data())
	})
	if err != nil {
		return err
	}

	linker := engine.NewLinker[HostState](eng)
	if err := linker.Define("host", "main", hostMain); err != nil {
		return err
	}
	pre, err := linker.Instantiate(ctx, store, module)
	if err != nil {
		return err
	}
	instance, err := pre.Start(ctx)
	if err != nil {
		return err
	}

	entry, err := instance.GetFunc("main")
	if err != nil {
		return err
	}
	if err := entry.CallWithTrace(ctx, store, nil, nil, shared); err != nil {
		return err
	}

	_, err = tracer.WriteTo(stdout)
	return err
}
