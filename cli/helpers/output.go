package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/pretty"
)

// Table is tabular output: a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// OutputWriter handles different output formats
type OutputWriter struct {
	writer io.Writer
	format OutputFormat
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(writer io.Writer, format OutputFormat) *OutputWriter {
	return &OutputWriter{
		writer: writer,
		format: format,
	}
}

// WriteData writes data in the writer's format. Table output needs a *Table;
// other data falls back to YAML.
func (ow *OutputWriter) WriteData(data any) error {
	switch ow.format {
	case OutputFormatJSON:
		return ow.writeJSON(data)
	case OutputFormatTable:
		if table, ok := data.(*Table); ok {
			return ow.writeTable(table)
		}
		return ow.writeYAML(data)
	case OutputFormatYAML:
		return ow.writeYAML(data)
	default:
		return fmt.Errorf("unsupported output format: %s", ow.format)
	}
}

// WriteRaw writes pre-rendered output, ensuring a trailing newline.
func (ow *OutputWriter) WriteRaw(out []byte) error {
	if _, err := ow.writer.Write(out); err != nil {
		return err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		_, err := io.WriteString(ow.writer, "\n")
		return err
	}
	return nil
}

func (ow *OutputWriter) writeJSON(data any) error {
	if table, ok := data.(*Table); ok {
		data = table.Records()
	}
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal json output: %w", err)
	}
	return ow.WriteRaw(pretty.Pretty(out))
}

func (ow *OutputWriter) writeYAML(data any) error {
	if table, ok := data.(*Table); ok {
		data = table.Records()
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml output: %w", err)
	}
	return ow.WriteRaw(out)
}

func (ow *OutputWriter) writeTable(table *Table) error {
	w := tabwriter.NewWriter(ow.writer, 0, 0, 2, ' ', 0)
	headers := make([]string, len(table.Headers))
	rules := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		headers[i] = strings.ToUpper(h)
		rules[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	fmt.Fprintln(w, strings.Join(rules, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// Records turns the rows into maps keyed by header, for JSON and YAML output.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				record[h] = row[i]
			}
		}
		out = append(out, record)
	}
	return out
}
