// Package cli provides output formatting and terminal rendering for the
// voicegate command-line tool.
//
// Results are written as YAML (the default), JSON, or a styled table, and
// may be narrowed with a jq expression before formatting:
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    JQ:     ".detailed_scores",
//	})
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatYAML outputs as YAML (default)
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
	// FormatTable outputs a styled report
	FormatTable OutputFormat = "table"
)

// ParseFormat parses an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatJSON, FormatTable:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want yaml, json or table)", s)
}

// OutputOptions configures output behavior
type OutputOptions struct {
	// Format is the output format (yaml, json, table)
	Format OutputFormat

	// File is the output file path (empty for stdout)
	File string

	// Writer is an optional custom writer (overrides File)
	Writer io.Writer

	// JQ filters the result before formatting. Table output is not
	// available for filtered results and falls back to YAML.
	JQ string

	// Table renders the result for FormatTable. Without it, table output
	// falls back to YAML.
	Table func() string
}

// Output writes the result to the configured destination
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout

	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.JQ != "" {
		values, err := Filter(result, opts.JQ)
		if err != nil {
			return err
		}
		return outputValues(w, values, opts.Format)
	}

	switch opts.Format {
	case FormatJSON:
		return outputJSON(w, result)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatTable:
		if opts.Table == nil {
			return outputYAML(w, result)
		}
		_, err := io.WriteString(w, opts.Table()+"\n")
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// outputValues writes jq results one per document. Strings are written
// raw, like jq -r.
func outputValues(w io.Writer, values []any, format OutputFormat) error {
	for _, v := range values {
		var err error
		switch s, ok := v.(string); {
		case ok:
			_, err = fmt.Fprintln(w, s)
		case format == FormatJSON:
			err = outputJSON(w, v)
		default:
			err = outputYAML(w, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func outputJSON(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	// Round-trip through JSON so YAML keys follow the json tags the
	// result types declare.
	generic, err := toGeneric(result)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// toGeneric converts v to the plain maps, slices and scalars that
// encoding/json produces when decoding into any.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	return out, nil
}

// Print helpers for terminal output

// PrintSuccess prints a success message with checkmark
func PrintSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "⚠ "+format+"\n", args...)
}
