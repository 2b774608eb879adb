package schema

import (
	"reflect"
	"sort"
	"strings"

	"github.com/compozy/trainconf/engine/core"
)

// MissingFields returns the dotted paths of a record that still need a value:
// fields holding the Missing sentinel and required fields left empty.
func MissingFields(record any) []string {
	rv := reflect.ValueOf(record)
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	paths := newPathSet()
	if rv.Kind() == reflect.Map {
		if node, ok := rv.Interface().(core.Node); ok {
			collectMissingNode(node, "", paths)
		}
		return paths.sorted()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	collectMissing(rv, "", paths)
	return paths.sorted()
}

func collectMissing(rv reflect.Value, prefix string, paths pathSet) {
	for _, f := range recordFields(rv.Type()) {
		fv := rv.FieldByIndex(f.Index)
		path := joinPath(prefix, f.Name)
		if fv.Kind() == reflect.String && fv.String() == core.Missing {
			paths.add(path)
			continue
		}
		if f.Required && isEmptyValue(fv) {
			paths.add(path)
			continue
		}
		switch {
		case f.IsNodeSlot():
			if node, ok := fv.Interface().(core.Node); ok {
				collectMissingNode(node, path, paths)
			}
		case fv.Kind() == reflect.Struct:
			collectMissing(fv, path, paths)
		case fv.Kind() == reflect.Ptr && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct:
			collectMissing(fv.Elem(), path, paths)
		}
	}
}

func collectMissingNode(node core.Node, prefix string, paths pathSet) {
	for k, v := range node {
		path := joinPath(prefix, k)
		if core.IsMissing(v) {
			paths.add(path)
			continue
		}
		if child, ok := v.(core.Node); ok {
			collectMissingNode(child, path, paths)
		}
	}
}

func isEmptyValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// MarkMissing returns a copy of node in which every path MissingFields reports
// for t is set to the Missing sentinel, so rendered records show what is unset.
func MarkMissing(node core.Node, t reflect.Type) (core.Node, error) {
	out, err := core.CopyNode(node)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(indirectType(t))
	if err := core.FromMap(stripMissing(out, "", newPathSet()), ptr.Interface()); err != nil {
		return nil, err
	}
	for _, path := range MissingFields(ptr.Elem().Interface()) {
		setPath(out, path, core.Missing)
	}
	return out, nil
}

// stripMissing returns a deep copy of node without Missing values, recording
// their paths.
func stripMissing(node core.Node, prefix string, paths pathSet) core.Node {
	out := make(core.Node, len(node))
	for k, v := range node {
		path := joinPath(prefix, k)
		if core.IsMissing(v) {
			paths.add(path)
			continue
		}
		if child, ok := v.(core.Node); ok {
			out[k] = stripMissing(child, path, paths)
			continue
		}
		out[k] = v
	}
	return out
}

func setPath(node core.Node, path string, value any) {
	parts := strings.Split(path, ".")
	cur := node
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(core.Node)
		if !ok {
			next = core.Node{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

type pathSet map[string]struct{}

func newPathSet() pathSet {
	return make(pathSet)
}

func (p pathSet) add(paths ...string) {
	for _, path := range paths {
		p[path] = struct{}{}
	}
}

func (p pathSet) sorted() []string {
	out := make([]string, 0, len(p))
	for path := range p {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
