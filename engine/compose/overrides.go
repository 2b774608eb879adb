package compose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/compozy/trainconf/engine/core"
)

// OverrideKind is the operation an override performs.
type OverrideKind string

const (
	OverrideSet         OverrideKind = "set"          // key=value, key must exist
	OverrideAdd         OverrideKind = "add"          // +key=value, key must not exist
	OverrideForceAdd    OverrideKind = "force_add"    // ++key=value, set or add
	OverrideDelete      OverrideKind = "delete"       // ~key or ~key=value
	OverrideSelect      OverrideKind = "select"       // group=name, group already selected
	OverrideAddSelect   OverrideKind = "add_select"   // +group=name
	OverrideUnselect    OverrideKind = "unselect"     // ~group or ~group=name
	OverrideForceSelect OverrideKind = "force_select" // ++group=name
)

var overrideKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+([./][A-Za-z0-9_\-]+)*$`)

// Override is one parsed command-line override.
type Override struct {
	Kind     OverrideKind
	Key      string
	Value    any
	HasValue bool
	// RawValue is the unparsed text after "=".
	RawValue string
	Raw      string
}

// IsSelection reports whether the override changes the defaults list.
func (o Override) IsSelection() bool {
	switch o.Kind {
	case OverrideSelect, OverrideAddSelect, OverrideUnselect, OverrideForceSelect:
		return true
	default:
		return false
	}
}

// ParseOverride parses raw without knowing which keys are groups; the
// composer turns value overrides on group keys into selections.
func ParseOverride(raw string) (Override, error) {
	o := Override{Raw: raw}
	s := strings.TrimSpace(raw)
	prefix := ""
	switch {
	case strings.HasPrefix(s, "++"):
		prefix, s = "++", s[2:]
	case strings.HasPrefix(s, "+"):
		prefix, s = "+", s[1:]
	case strings.HasPrefix(s, "~"):
		prefix, s = "~", s[1:]
	}
	key, rawValue, hasValue := strings.Cut(s, "=")
	o.Key = strings.TrimSpace(key)
	o.HasValue = hasValue
	o.RawValue = strings.TrimSpace(rawValue)
	if !overrideKeyPattern.MatchString(o.Key) {
		return o, invalidOverride(raw, "malformed key")
	}
	if !hasValue && prefix != "~" {
		return o, invalidOverride(raw, "expected key=value")
	}
	if hasValue {
		value, err := core.ParseValue(rawValue)
		if err != nil {
			return o, core.NewError(err, core.ErrCodeInvalidOverride, map[string]any{"override": raw})
		}
		o.Value = value
	}
	switch prefix {
	case "++":
		o.Kind = OverrideForceAdd
	case "+":
		o.Kind = OverrideAdd
	case "~":
		o.Kind = OverrideDelete
	default:
		o.Kind = OverrideSet
	}
	if strings.Contains(o.Key, "/") && strings.Contains(o.Key, ".") {
		return o, invalidOverride(raw, "a key is either a group path (a/b) or a config path (a.b)")
	}
	return o, nil
}

// asSelection turns a value override on a group key into a selection override.
// The entry name is the text after "=", so names such as 123 or true stay names.
func (o Override) asSelection() (Override, error) {
	if o.HasValue {
		name, ok := o.Value.(string)
		if !ok {
			name = o.RawValue
		}
		if name == "" {
			return o, invalidOverride(o.Raw, "a group selection needs an entry name")
		}
		o.Value = name
	}
	switch o.Kind {
	case OverrideSet:
		o.Kind = OverrideSelect
	case OverrideAdd:
		o.Kind = OverrideAddSelect
	case OverrideForceAdd:
		o.Kind = OverrideForceSelect
	case OverrideDelete:
		o.Kind = OverrideUnselect
	}
	return o, nil
}

func invalidOverride(raw, reason string) error {
	return core.NewError(
		fmt.Errorf("invalid override %q: %s", raw, reason),
		core.ErrCodeInvalidOverride,
		map[string]any{"override": raw},
	)
}
