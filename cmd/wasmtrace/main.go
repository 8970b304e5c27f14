// Command wasmtrace calls an exported function of a core WebAssembly module
// under a tracer and prints the trace. Every function import is satisfied
// by a stub that prints its arguments and returns zero values.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Forpee/poc-wasmi-v1-tracer/engine"
	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/trace"
)

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	format, err := trace.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	params, err := parseArgs(opts.Args)
	if err != nil {
		return errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, "parse -args")
	}

	logger := zap.NewNop()
	if opts.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return errors.Wrap(errors.PhaseIO, errors.KindIO, err, "create logger")
		}
		defer logger.Sync()
	}
	engine.SetLogger(logger)

	data, err := os.ReadFile(opts.Wasm)
	if err != nil {
		return errors.IO(opts.Wasm, err)
	}

	eng, err := engine.NewEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close(ctx)

	module, err := engine.NewModule(ctx, eng, data)
	if err != nil {
		return err
	}

	store := engine.NewStore(ctx, eng, opts.Data)
	defer store.Close(ctx)

	linker := engine.NewLinker[uint32](eng)
	if err := defineStubs(linker, store, module, stderr); err != nil {
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
	defer instance.Close(ctx)

	fn, err := instance.GetFunc(opts.Func)
	if err != nil {
		return err
	}

	tracer := trace.New()
	var rec trace.Recorder = tracer.Share()
	if opts.HostOnly {
		rec = trace.Filter(rec, trace.HostOnly)
	}
	if opts.Verbose {
		rec = trace.Tee(rec, trace.NewLogRecorder(logger.Named("trace")))
	}

	results := make([]engine.Value, len(fn.Type().Results))
	var callErr error
	for i := 0; i < opts.Repeat && callErr == nil; i++ {
		if callErr = fn.CallWithTrace(ctx, store, params, results, rec); callErr == nil {
			fmt.Fprintf(stderr, "%s -> (%s)\n", fn.Name(), joinValues(results, (*trace.Value).String))
		}
	}

	// the trace is printed on failure too; it shows the steps up to the trap
	if opts.Interactive {
		if err := runInteractive(opts.Wasm, tracer); err != nil {
			return err
		}
	} else if err := writeTrace(stdout, tracer, format); err != nil {
		return err
	}
	return callErr
}

// defineStubs defines every function import of m as a host function that
// prints "Got <params> from WebAssembly" and returns zero values.
func defineStubs(l *engine.Linker[uint32], store *engine.Store[uint32], m *engine.Module, w io.Writer) error {
	for _, imp := range m.Imports() {
		if imp.Kind != engine.KindFunc {
			continue
		}
		ty := imp.Type
		stub := engine.NewFunc(store, ty, func(_ *engine.Caller[uint32], params []engine.Value) ([]engine.Value, error) {
			fmt.Fprintf(w, "Got %s from WebAssembly\n", joinValues(params, plainValue))
			results := make([]engine.Value, len(ty.Results))
			for i, t := range ty.Results {
				results[i] = trace.Zero(t)
			}
			return results, nil
		})
		if err := l.Define(imp.Module, imp.Name, stub); err != nil {
			return err
		}
	}
	return nil
}

// parseArgs parses "i32:3,i64:7" into values
func parseArgs(s string) ([]engine.Value, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var vals []engine.Value
	for _, part := range strings.Split(s, ",") {
		v, err := trace.ParseValue(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// plainValue renders v without its type prefix: "3" rather than "i32:3"
func plainValue(v *engine.Value) string {
	_, plain, _ := strings.Cut(v.String(), ":")
	return plain
}

func joinValues(vals []engine.Value, render func(*engine.Value) string) string {
	parts := make([]string, len(vals))
	for i := range vals {
		parts[i] = render(&vals[i])
	}
	return strings.Join(parts, ", ")
}

// writeTrace prints the trace in format. Text output to a terminal is
// coloured per entry kind.
func writeTrace(w io.Writer, tracer *trace.Tracer, format trace.Format) error {
	if format == trace.FormatText && isTerminal(w) {
		_, err := io.WriteString(w, renderStyled(tracer))
		return err
	}
	return trace.Encode(w, tracer.Entries(), format)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
