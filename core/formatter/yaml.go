package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatList formats a list of records as YAML.
func (f *YAMLFormatter) FormatList(w io.Writer, title string, records []map[string]any, opts FormatOptions) error {
	data := project(records, opts.Columns)
	if data == nil {
		data = []map[string]any{}
	}

	output := map[string]any{
		"kind":  title,
		"count": len(data),
		"data":  data,
	}

	return f.encode(w, output)
}

// FormatCall formats bound arguments as YAML.
func (f *YAMLFormatter) FormatCall(w io.Writer, call Call, opts FormatOptions) error {
	if call.Args == nil {
		call.Args = []Arg{}
	}
	return f.encode(w, call)
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, ErrorFields(err))
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
