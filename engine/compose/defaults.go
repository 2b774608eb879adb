package compose

import (
	"fmt"
	"strings"

	"github.com/compozy/trainconf/engine/core"
)

// DefaultsKey holds a record's defaults list.
const DefaultsKey = "defaults"

// Selection picks entry Name of Group.
type Selection struct {
	Group string `json:"group" yaml:"group"`
	Name  string `json:"name"  yaml:"name"`
}

func (s Selection) String() string {
	return s.Group + ": " + s.Name
}

// KeyPath is the dotted config path the group node is merged at:
// "task/transform" becomes "task.transform".
func (s Selection) KeyPath() string {
	return GroupKeyPath(s.Group)
}

// GroupKeyPath maps a group to the config path its selections fill.
func GroupKeyPath(group string) string {
	return strings.ReplaceAll(strings.Trim(group, "/"), "/", ".")
}

// DefaultsList is an ordered list of group selections.
type DefaultsList []Selection

// ParseDefaults reads a defaults list in its document form: a list of
// single-key maps such as [{data: sst2}, {model: xlmr_base}].
func ParseDefaults(raw any) (DefaultsList, error) {
	if raw == nil {
		return DefaultsList{}, nil
	}
	items, ok := core.Plain(raw).([]any)
	if !ok {
		return nil, core.NewError(
			fmt.Errorf("defaults must be a list, got %T", raw),
			core.ErrCodeInvalidNode,
			map[string]any{"key": DefaultsKey},
		)
	}
	out := make(DefaultsList, 0, len(items))
	for i, item := range items {
		entry, ok := item.(core.Node)
		if !ok || len(entry) != 1 {
			return nil, core.NewError(
				fmt.Errorf("defaults[%d] must be a single group: name pair", i),
				core.ErrCodeInvalidNode,
				map[string]any{"index": i},
			)
		}
		for group, name := range entry {
			nameStr, ok := name.(string)
			if !ok || nameStr == "" {
				return nil, core.NewError(
					fmt.Errorf("defaults[%d] selects a non-string name for %s", i, group),
					core.ErrCodeInvalidNode,
					map[string]any{"index": i, "group": group},
				)
			}
			if _, exists := out.Get(group); exists {
				return nil, core.NewError(
					fmt.Errorf("group %s is selected twice", group),
					core.ErrCodeInvalidNode,
					map[string]any{"group": group},
				)
			}
			out = append(out, Selection{Group: strings.Trim(group, "/"), Name: nameStr})
		}
	}
	return out, nil
}

// Get returns the name selected for group.
func (d DefaultsList) Get(group string) (string, bool) {
	for _, s := range d {
		if s.Group == group {
			return s.Name, true
		}
	}
	return "", false
}

// Set replaces the selection for group, or appends it when absent.
func (d DefaultsList) Set(group, name string) DefaultsList {
	for i, s := range d {
		if s.Group == group {
			out := append(DefaultsList{}, d...)
			out[i].Name = name
			return out
		}
	}
	return append(append(DefaultsList{}, d...), Selection{Group: group, Name: name})
}

// Remove drops the selection for group.
func (d DefaultsList) Remove(group string) DefaultsList {
	out := make(DefaultsList, 0, len(d))
	for _, s := range d {
		if s.Group != group {
			out = append(out, s)
		}
	}
	return out
}

// Map returns the selections keyed by group.
func (d DefaultsList) Map() map[string]string {
	out := make(map[string]string, len(d))
	for _, s := range d {
		out[s.Group] = s.Name
	}
	return out
}

// Nodes renders the list back into its document form.
func (d DefaultsList) Nodes() []any {
	out := make([]any, 0, len(d))
	for _, s := range d {
		out = append(out, core.Node{s.Group: s.Name})
	}
	return out
}
