package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error codes shared by the registry, schema and compose packages.
const (
	ErrCodeMissingValue      = "MISSING_VALUE"
	ErrCodeTargetNotResolved = "TARGET_NOT_RESOLVED"
	ErrCodeEntryNotFound     = "ENTRY_NOT_FOUND"
	ErrCodeInvalidNode       = "INVALID_NODE"
	ErrCodeInvalidOverride   = "INVALID_OVERRIDE"
	ErrCodeUnknownKey        = "UNKNOWN_KEY"
	ErrCodeDecodeFailed      = "DECODE_FAILED"
	ErrCodeConstraint        = "CONSTRAINT_VIOLATION"
	ErrCodeDiscoveryFailed   = "DISCOVERY_FAILED"
	ErrCodeFileLoadFailed    = "FILE_LOAD_FAILED"
	ErrCodePathEscape        = "PATH_ESCAPE_ATTEMPT"
)

// Error is a coded error carrying structured details for callers and tests.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// NewError wraps err under code. Details may be nil.
func NewError(err error, code string, details map[string]any) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Message: msg, Details: details, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Details[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from the chain.
func AsError(err error) (*Error, bool) {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr, true
	}
	return nil, false
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		coreErr, ok := AsError(err)
		if !ok {
			return false
		}
		if coreErr.Code == code {
			return true
		}
		err = coreErr.Err
	}
	return false
}
