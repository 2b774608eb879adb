package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/compozy/trainconf/engine/core"
)

// CliError represents a CLI-specific error with enhanced context
type CliError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	cause     error
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.cause
}

// NewCliError creates a new CLI error with context
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]any),
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WithContext adds context to the error
func (e *CliError) WithContext(key string, value any) *CliError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WrapError turns err into a CliError. Coded registry errors keep their code
// and details; anything else is reported under fallbackCode.
func WrapError(err error, fallbackCode string) *CliError {
	if err == nil {
		return nil
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	if coreErr, ok := core.AsError(err); ok {
		out := NewCliError(coreErr.Code, coreErr.Message, formatDetails(coreErr.Details))
		for k, v := range coreErr.Details {
			out.WithContext(k, v)
		}
		out.cause = err
		return out
	}
	out := NewCliError(fallbackCode, err.Error())
	out.cause = err
	return out
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, ", ")
}

// FormatError formats errors for the output format
func FormatError(err error, format OutputFormat, color bool) string {
	if err == nil {
		return ""
	}
	if format == OutputFormatJSON {
		return formatErrorJSON(err)
	}
	return formatErrorText(err, color)
}

// formatErrorJSON formats errors as a JSON object with code, error and details
func formatErrorJSON(err error) string {
	errorResponse := map[string]any{
		"error":   err.Error(),
		"details": "",
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		errorResponse = map[string]any{
			"code":    cliErr.Code,
			"error":   cliErr.Message,
			"details": cliErr.Details,
		}
	}
	jsonBytes, marshalErr := json.MarshalIndent(errorResponse, "", "  ")
	if marshalErr != nil {
		return `{"error": "JSON marshaling failed", "details": ""}`
	}
	return string(jsonBytes)
}

// formatErrorText formats errors for terminals, colored when color is set
func formatErrorText(err error, color bool) string {
	message, details := extractErrorInfo(err)
	if !color {
		if details != "" {
			return fmt.Sprintf("Error: %s\nDetails: %s", message, details)
		}
		return "Error: " + message
	}
	result := formatErrorMessage(message)
	if details != "" {
		result += formatErrorDetails(details)
	}
	return result
}

// extractErrorInfo extracts message and details from error
func extractErrorInfo(err error) (message, details string) {
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return fmt.Sprintf("%s: %s", cliErr.Code, cliErr.Message), cliErr.Details
	}
	return err.Error(), ""
}

// formatErrorMessage formats the main error message
func formatErrorMessage(message string) string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true)
	return fmt.Sprintf("✗ %s", style.Render(message))
}

// formatErrorDetails formats error details
func formatErrorDetails(details string) string {
	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true)
	return "\n" + detailStyle.Render(fmt.Sprintf("Details: %s", details))
}

// OutputError writes err to w in the requested format. Colors are used only
// when w is a terminal.
func OutputError(w io.Writer, err error, format OutputFormat) {
	_, _ = fmt.Fprintln(w, FormatError(err, format, IsTerminal(w)))
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
