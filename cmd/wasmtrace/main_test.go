package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"gopkg.in/yaml.v2"

	"github.com/Forpee/poc-wasmi-v1-tracer/engine"
	"github.com/Forpee/poc-wasmi-v1-tracer/errors"
	"github.com/Forpee/poc-wasmi-v1-tracer/internal/wasmbin"
)

var i32 = api.ValueTypeI32

// writeModule writes a module exporting main() = host.main(3), add(a, b)
// and broken(), which calls host.main(3) and traps.
func writeModule(t *testing.T) string {
	t.Helper()
	m := wasmbin.New()
	hostMain := m.ImportFunc("host", "main", wasmbin.FuncType{Params: []api.ValueType{i32}})
	main := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().I32Const(3).Call(hostMain))
	add := m.Func(wasmbin.FuncType{Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}},
		wasmbin.NewCode().LocalGet(0).LocalGet(1).I32Add())
	broken := m.Func(wasmbin.FuncType{}, wasmbin.NewCode().I32Const(3).Call(hostMain).Unreachable())
	m.ExportFunc("main", main).ExportFunc("add", add).ExportFunc("broken", broken)

	path := filepath.Join(t.TempDir(), "module.wasm")
	if err := os.WriteFile(path, m.Encode(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runWith(t *testing.T, opts options) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), opts, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func testOptions(path string) options {
	opts := defaultOptions()
	opts.Wasm = path
	return opts
}

func TestRun_Text(t *testing.T) {
	stdout, stderr, err := runWith(t, testOptions(writeModule(t)))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := `=== trace 1: main ===
   1 call main()
   2   host-call host.main(i32:3)
   3   host-return host.main -> ()
   4 return main -> ()
`
	if stdout != want {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout, want)
	}
	if !strings.Contains(stderr, "Got 3 from WebAssembly") {
		t.Errorf("stderr %q missing stub output", stderr)
	}
	if !strings.Contains(stderr, "main -> ()") {
		t.Errorf("stderr %q missing call result", stderr)
	}
}

func TestRun_Args(t *testing.T) {
	opts := testOptions(writeModule(t))
	opts.Func = "add"
	opts.Args = "i32:2, i32:40"

	stdout, stderr, err := runWith(t, opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout, "   1 call add(i32:2, i32:40)") {
		t.Errorf("stdout %q missing call entry", stdout)
	}
	if !strings.Contains(stdout, "   2 return add -> (i32:42)") {
		t.Errorf("stdout %q missing return entry", stdout)
	}
	if !strings.Contains(stderr, "add -> (i32:42)") {
		t.Errorf("stderr %q missing call result", stderr)
	}
}

func TestRun_Repeat(t *testing.T) {
	opts := testOptions(writeModule(t))
	opts.Repeat = 3

	stdout, _, err := runWith(t, opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, header := range []string{"=== trace 1: main ===", "=== trace 2: main ===", "=== trace 3: main ==="} {
		if !strings.Contains(stdout, header) {
			t.Errorf("stdout missing %q", header)
		}
	}
	if strings.Contains(stdout, "=== trace 4") {
		t.Error("stdout has a fourth trace")
	}
}

func TestRun_HostOnly(t *testing.T) {
	opts := testOptions(writeModule(t))
	opts.HostOnly = true

	stdout, _, err := runWith(t, opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := `=== trace 1: main ===
   2   host-call host.main(i32:3)
   3   host-return host.main -> ()
`
	if stdout != want {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout, want)
	}
}

func TestRun_JSON(t *testing.T) {
	opts := testOptions(writeModule(t))
	opts.Format = "json"

	stdout, _, err := runWith(t, opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d JSON lines, want 5:\n%s", len(lines), stdout)
	}
	var hostCall struct {
		Kind   string   `json:"kind"`
		Func   string   `json:"func"`
		Values []string `json:"values"`
		Step   int      `json:"step"`
		Depth  int      `json:"depth"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &hostCall); err != nil {
		t.Fatalf("unmarshal %q: %v", lines[2], err)
	}
	if hostCall.Kind != "host-call" || hostCall.Func != "host.main" || hostCall.Step != 2 || hostCall.Depth != 1 {
		t.Errorf("host call record = %+v", hostCall)
	}
	if len(hostCall.Values) != 1 || hostCall.Values[0] != "i32:3" {
		t.Errorf("host call values = %v, want [i32:3]", hostCall.Values)
	}
}

func TestRun_YAML(t *testing.T) {
	opts := testOptions(writeModule(t))
	opts.Format = "yaml"

	stdout, _, err := runWith(t, opts)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var records []map[string]any
	if err := yaml.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if records[0]["kind"] != "boundary" || records[4]["kind"] != "return" {
		t.Errorf("records = %v", records)
	}
}

func TestRun_TrapStillPrintsTrace(t *testing.T) {
	opts := testOptions(writeModule(t))
	opts.Func = "broken"

	stdout, stderr, err := runWith(t, opts)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindTrap}) {
		t.Fatalf("err = %v, want runtime trap", err)
	}

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), stdout)
	}
	if !strings.HasPrefix(lines[4], "   4 trap broken: ") {
		t.Errorf("last line = %q, want a trap in broken", lines[4])
	}
	if !strings.Contains(stderr, "Got 3 from WebAssembly") {
		t.Errorf("stderr %q missing stub output", stderr)
	}
	if strings.Contains(stderr, "broken -> ") {
		t.Errorf("stderr %q reports a result for a trapped call", stderr)
	}
}

func TestRun_Errors(t *testing.T) {
	path := writeModule(t)
	notWasm := filepath.Join(t.TempDir(), "not.wasm")
	if err := os.WriteFile(notWasm, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*options)
		target error
	}{
		{"missing file", func(o *options) { o.Wasm = filepath.Join(t.TempDir(), "none.wasm") },
			&errors.Error{Phase: errors.PhaseIO, Kind: errors.KindIO}},
		{"not wasm", func(o *options) { o.Wasm = notWasm },
			&errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindInvalidData}},
		{"missing export", func(o *options) { o.Func = "nope" },
			&errors.Error{Phase: errors.PhaseExport, Kind: errors.KindNotFound}},
		{"bad args", func(o *options) { o.Args = "i32" },
			&errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindInvalidInput}},
		{"wrong arity", func(o *options) { o.Args = "i32:1" },
			&errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindInvalidInput}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(path)
			tt.mutate(&opts)
			_, _, err := runWith(t, opts)
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}

	t.Run("bad args keep their cause", func(t *testing.T) {
		opts := testOptions(path)
		opts.Args = "i32:x"
		_, _, err := runWith(t, opts)
		var e *errors.Error
		if !errors.As(err, &e) || e.Cause == nil {
			t.Fatalf("err = %v, want a wrapped parse error", err)
		}
		if !strings.Contains(err.Error(), "parse -args") || !strings.Contains(err.Error(), `value "i32:x"`) {
			t.Errorf("err = %q, want the parse detail and its cause", err)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		opts := testOptions(path)
		opts.Format = "xml"
		if _, _, err := runWith(t, opts); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRun_GlobalImportIsLinkError(t *testing.T) {
	m := wasmbin.New()
	hostMain := m.ImportFunc("host", "main", wasmbin.FuncType{Params: []api.ValueType{i32}})
	g := m.ImportGlobal("env", "g", i32, false)
	m.ExportFunc("main", m.Func(wasmbin.FuncType{}, wasmbin.NewCode().GlobalGet(g).Call(hostMain)))

	path := filepath.Join(t.TempDir(), "global.wasm")
	if err := os.WriteFile(path, m.Encode(), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runWith(t, testOptions(path))
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseLinking, Kind: errors.KindUnsupported}) {
		t.Fatalf("err = %v, want linking/unsupported", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want no trace", stdout)
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"  ", "", false},
		{"i32:3", "i32:3", false},
		{"i32:-1, i64:7", "i32:-1, i64:7", false},
		{"i32", "", true},
		{"x32:1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			vals, err := parseArgs(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArgs(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := joinValues(vals, (*engine.Value).String); got != tt.want {
				t.Errorf("parseArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
