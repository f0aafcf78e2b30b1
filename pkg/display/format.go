// Package display presents build plans and deploy results.
package display

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects how results are printed.
type Format int

const (
	// FormatText prints progress lines and a summary table.
	FormatText Format = iota
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		panic(fmt.Sprintf("unrecognized format %d", int(f)))
	}
}

// ParseFormat converts the command line representation of a format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatText, fmt.Errorf("unrecognized output format %q, expected text, json or yaml", s)
	}
}

// Encode writes v in a structured format. Text is printed as indented JSON.
func Encode(w io.Writer, format Format, v interface{}) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
