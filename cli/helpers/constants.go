package helpers

import "fmt"

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
	OutputFormatTable OutputFormat = "table"
)

// ParseOutputFormat validates a format name taken from settings or flags.
func ParseOutputFormat(value string) (OutputFormat, error) {
	switch OutputFormat(value) {
	case OutputFormatJSON, OutputFormatYAML, OutputFormatTable:
		return OutputFormat(value), nil
	case "":
		return OutputFormatYAML, nil
	default:
		return "", NewCliError("INVALID_FORMAT", fmt.Sprintf("unsupported output format: %s", value))
	}
}
