package formatter

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatList formats a list of records as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, title string, records []map[string]any, opts FormatOptions) error {
	data := project(records, opts.Columns)
	if data == nil {
		data = []map[string]any{}
	}

	output := map[string]any{
		"kind":  title,
		"count": len(data),
		"data":  data,
	}

	return f.encode(w, output, opts.Compact)
}

// FormatCall formats bound arguments as JSON.
func (f *JSONFormatter) FormatCall(w io.Writer, call Call, opts FormatOptions) error {
	if call.Args == nil {
		call.Args = []Arg{}
	}
	return f.encode(w, call, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, ErrorFields(err), false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
