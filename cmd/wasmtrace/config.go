package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// options mirror the command-line flags. A -config file supplies defaults
// that explicitly set flags override.
type options struct {
	Wasm        string `yaml:"wasm"`
	Func        string `yaml:"func"`
	Args        string `yaml:"args"`
	Format      string `yaml:"format"`
	Data        uint32 `yaml:"data"`
	Repeat      int    `yaml:"repeat"`
	HostOnly    bool   `yaml:"host_only"`
	Verbose     bool   `yaml:"verbose"`
	Interactive bool   `yaml:"interactive"`
}

func defaultOptions() options {
	return options{
		Func:   "main",
		Format: "text",
		Data:   42,
		Repeat: 1,
	}
}

// decodeFile reads a YAML options file into opts, keeping fields the file
// does not mention.
func decodeFile(name string, opts *options) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(opts); err != nil && err != io.EOF {
		return fmt.Errorf("config %s: %w", name, err)
	}
	return nil
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	opts := defaultOptions()

	fs := flag.NewFlagSet("wasmtrace", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		wasmFile    = fs.String("wasm", opts.Wasm, "Path to core wasm module")
		funcName    = fs.String("func", opts.Func, "Exported function to call")
		callArgs    = fs.String("args", opts.Args, "Arguments (i32:3,i64:7,f64:1.5)")
		data        = fs.Uint("data", uint(opts.Data), "Host datum of the store")
		repeat      = fs.Int("repeat", opts.Repeat, "Number of traced calls into one tracer")
		format      = fs.String("format", opts.Format, "Trace output format: text, json or yaml")
		hostOnly    = fs.Bool("host-only", opts.HostOnly, "Record host-function boundaries only")
		verbose     = fs.Bool("v", opts.Verbose, "Debug logging to stderr, trace entries included")
		interactive = fs.Bool("i", opts.Interactive, "Interactive trace viewer with TUI")
		configFile  = fs.String("config", "", "YAML file with defaults for these flags")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: wasmtrace -wasm <file.wasm> [-func name] [-args i32:1,...] [-format text|json|yaml]")
		fmt.Fprintln(stderr, "       wasmtrace -wasm <file.wasm> -i  (interactive mode)")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if *configFile != "" {
		if err := decodeFile(*configFile, &opts); err != nil {
			return opts, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "wasm":
			opts.Wasm = *wasmFile
		case "func":
			opts.Func = *funcName
		case "args":
			opts.Args = *callArgs
		case "data":
			opts.Data = uint32(*data)
		case "repeat":
			opts.Repeat = *repeat
		case "format":
			opts.Format = *format
		case "host-only":
			opts.HostOnly = *hostOnly
		case "v":
			opts.Verbose = *verbose
		case "i":
			opts.Interactive = *interactive
		}
	})

	if opts.Wasm == "" {
		fs.Usage()
		return opts, fmt.Errorf("missing -wasm")
	}
	if opts.Repeat < 1 {
		return opts, fmt.Errorf("-repeat must be at least 1, got %d", opts.Repeat)
	}
	return opts, nil
}
