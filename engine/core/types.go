package core

import (
	"regexp"
	"strings"
)

// Missing marks a value that must be supplied at composition time.
const Missing = "???"

// TargetKey is the record key holding the implementation identifier.
const TargetKey = "_target_"

// Node is the untyped form of a configuration record.
type Node = map[string]any

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	s, ok := v.(string)
	return ok && s == Missing
}

// -----------------------------------------------------------------------------
// Target
// -----------------------------------------------------------------------------

var targetPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)

// Target is a dotted identifier naming the implementation a record configures,
// e.g. "torch.optim.AdamW".
type Target string

func (t Target) String() string {
	return string(t)
}

// Valid reports whether t is a well-formed dotted identifier.
func (t Target) Valid() bool {
	return targetPattern.MatchString(string(t))
}

// Module returns everything before the final segment.
func (t Target) Module() string {
	s := string(t)
	if i := strings.LastIndex(s, "."); i > 0 {
		return s[:i]
	}
	return ""
}

// Name returns the final segment.
func (t Target) Name() string {
	s := string(t)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// TargetOf returns the _target_ value of a node, if any.
func TargetOf(node Node) (Target, bool) {
	if node == nil {
		return "", false
	}
	switch v := node[TargetKey].(type) {
	case string:
		return Target(v), v != ""
	case Target:
		return v, v != ""
	default:
		return "", false
	}
}

// -----------------------------------------------------------------------------
// Source
// -----------------------------------------------------------------------------

// SourceType records where a registry entry came from.
type SourceType string

const (
	SourceBuiltin SourceType = "builtin"
	SourceFile    SourceType = "file"
)
