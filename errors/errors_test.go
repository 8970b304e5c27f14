package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLinking,
				Kind:   KindTypeMismatch,
				Path:   []string{"host", "main"},
				Detail: "import expects (i32) -> (), definition is () -> ()",
			},
			contains: []string{"[linking]", "type_mismatch", "host.main", "(i32) -> ()"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindInvalidData,
			},
			contains: []string{"[decode]", "invalid_data"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseIO,
				Kind:   KindIO,
				Detail: "read module.wasm",
				Cause:  errors.New("no such file or directory"),
			},
			contains: []string{"[io]", "io", "read module.wasm", "caused by", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_SingleLine(t *testing.T) {
	cause := errors.New("wasm error: unreachable\nwasm stack trace:\n\t.main()")
	err := Trap("main", cause)

	msg := err.Error()
	if strings.Contains(msg, "\n") {
		t.Fatalf("message spans lines: %q", msg)
	}
	if !strings.Contains(msg, "wasm error: unreachable") {
		t.Errorf("message %q lost the trap reason", msg)
	}
	if !errors.Is(err, cause) {
		t.Error("full cause should stay reachable through Unwrap")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseExport,
		Kind:  KindNotFound,
		Path:  []string{"main"},
	}

	if !err.Is(&Error{Phase: PhaseExport, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseLinking, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseExport, Kind: KindNotFunction}) {
		t.Error("Is should not match different kind")
	}

	var wrapped error = Wrap(PhaseRuntime, KindTrap, err, "outer")
	if !errors.Is(wrapped, &Error{Phase: PhaseExport, Kind: KindNotFound}) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLinking, KindDuplicate).
		Path("host", "main").
		Value(42).
		Cause(cause).
		Detail("defined %d times", 2).
		Build()

	if err.Phase != PhaseLinking {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLinking)
	}
	if err.Kind != KindDuplicate {
		t.Errorf("Kind = %v, want %v", err.Kind, KindDuplicate)
	}
	if len(err.Path) != 2 || err.Path[0] != "host" || err.Path[1] != "main" {
		t.Errorf("Path = %v, want [host main]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "defined 2 times" {
		t.Errorf("Detail = %v, want 'defined 2 times'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err      *Error
		name     string
		phase    Phase
		kind     Kind
		contains string
	}{
		{IO("src/v1/tests/test_rust.wasm", errors.New("missing")), "IO", PhaseIO, KindIO, "src/v1/tests/test_rust.wasm"},
		{Decode(errors.New("bad magic")), "Decode", PhaseDecode, KindInvalidData, "bad magic"},
		{Duplicate("host", "main"), "Duplicate", PhaseLinking, KindDuplicate, `"main" already defined in module "host"`},
		{ImportMismatch("host", "main", "(i32) -> ()", "() -> ()"), "ImportMismatch", PhaseLinking, KindTypeMismatch, "import expects (i32) -> ()"},
		{StoreMismatch(PhaseLinking, "func host.main"), "StoreMismatch", PhaseLinking, KindStoreMismatch, "different store"},
		{Unsupported(PhaseLinking, "memory imports"), "Unsupported", PhaseLinking, KindUnsupported, "memory imports"},
		{Instantiation("start", errors.New("boom")), "Instantiation", PhaseInstantiate, KindInstantiation, "start"},
		{ExportNotFound("main"), "ExportNotFound", PhaseExport, KindNotFound, `could not find function "main"`},
		{NotAFunction("memory", "memory"), "NotAFunction", PhaseExport, KindNotFunction, "not a function"},
		{InvalidInput(PhaseRuntime, "expected 1 params"), "InvalidInput", PhaseRuntime, KindInvalidInput, "expected 1 params"},
		{Trap("main", errors.New("wasm error: unreachable")), "Trap", PhaseRuntime, KindTrap, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]MissingImport{{Module: "host", Name: "main"}})
		if got, want := err.Error(), "[linking] missing_import: host: main"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("multiple modules grouped", func(t *testing.T) {
		err := NewMissingImportsError([]MissingImport{
			{Module: "host", Name: "main"},
			{Module: "env", Name: "abort"},
			{Module: "host", Name: "print"},
		})
		want := "[linking] missing_import: host: main, print; env: abort"
		if got := err.Error(); got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError(nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]MissingImport{{Module: "ns", Name: "fn"}})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
		if !errors.Is(err, &Error{Phase: PhaseLinking, Kind: KindMissingImport}) {
			t.Error("errors.Is should match linking/missing_import")
		}
	})
}

func TestDemangleRust(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    "main",
			expected: "main",
		},
		{
			input:    "_ZN4core3ptr8write_fn17ha1b2c3d4e5f67890E",
			expected: "core::ptr::write_fn",
		},
		{
			input:    "_ZN9test_rust4host4main17h0123456789abcdefE",
			expected: "test_rust::host::main",
		},
	}

	for _, tt := range tests {
		name := tt.input
		if len(name) > 30 {
			name = name[:30]
		}
		t.Run(name, func(t *testing.T) {
			result := demangleRust(tt.input)
			if result != tt.expected {
				t.Errorf("demangleRust(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("a\nb"); got != "a" {
		t.Errorf("FirstLine = %q, want a", got)
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("FirstLine = %q, want single", got)
	}
}

func TestIsAs(t *testing.T) {
	err := Wrap(PhaseRuntime, KindTrap, ExportNotFound("main"), "outer")

	if !Is(err, &Error{Phase: PhaseExport, Kind: KindNotFound}) {
		t.Error("Is should see through Wrap")
	}

	var target *Error
	if !As(err, &target) {
		t.Fatal("As should find *Error")
	}
	if target.Kind != KindTrap {
		t.Errorf("As found kind %v, want outermost %v", target.Kind, KindTrap)
	}
}
