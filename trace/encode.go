package trace

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// Format selects an export encoding for entries.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json" // one object per line
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown trace format %q (want text, json or yaml)", s)
}

// record is the structured export form of an Entry.
type record struct {
	Kind   string   `json:"kind" yaml:"kind"`
	Func   string   `json:"func" yaml:"func"`
	Detail string   `json:"detail,omitempty" yaml:"detail,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	Trace  int      `json:"trace" yaml:"trace"`
	Step   int      `json:"step,omitempty" yaml:"step,omitempty"`
	Depth  int      `json:"depth" yaml:"depth"`
}

func records(entries []Entry) []record {
	out := make([]record, 0, len(entries))
	ordinal := 0
	for _, e := range entries {
		if e.Kind == KindBoundary {
			ordinal++
		}
		out = append(out, record{
			Trace:  ordinal,
			Step:   e.Step,
			Depth:  e.Depth,
			Kind:   e.Kind.String(),
			Func:   e.Func,
			Values: valueStrings(e.Values),
			Detail: e.Detail,
		})
	}
	return out
}

// Encode writes entries to w in format f.
func Encode(w io.Writer, entries []Entry, f Format) error {
	switch f {
	case FormatText, "":
		_, err := io.WriteString(w, renderText(entries))
		return err

	case FormatJSON:
		enc := json.NewEncoder(w)
		for _, r := range records(entries) {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("encode trace: %w", err)
			}
		}
		return nil

	case FormatYAML:
		out, err := yaml.Marshal(records(entries))
		if err != nil {
			return fmt.Errorf("encode trace: %w", err)
		}
		_, err = w.Write(out)
		return err
	}
	return fmt.Errorf("unknown trace format %q", f)
}
