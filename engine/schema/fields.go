package schema

import (
	"reflect"
	"sort"
	"strings"

	"github.com/compozy/trainconf/engine/core"
)

var nodeType = reflect.TypeOf(core.Node{})

// recordField is a koanf-named field of a record, with embedded records squashed.
type recordField struct {
	Name     string
	Index    []int
	Type     reflect.Type
	Required bool
}

// IsNodeSlot reports whether the field holds an untyped, polymorphic node.
func (f recordField) IsNodeSlot() bool {
	return f.Type == nodeType
}

func recordFields(t reflect.Type) []recordField {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	out := make([]recordField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := tagName(sf)
		if name == "-" {
			continue
		}
		if sf.Anonymous && name == "" && indirectType(sf.Type).Kind() == reflect.Struct {
			for _, inner := range recordFields(sf.Type) {
				inner.Index = append([]int{i}, inner.Index...)
				out = append(out, inner)
			}
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, recordField{
			Name:     name,
			Index:    []int{i},
			Type:     sf.Type,
			Required: hasValidateTag(sf, "required"),
		})
	}
	return out
}

// Fields returns the sorted top-level keys of a record type.
func Fields(t reflect.Type) []string {
	fields := recordFields(t)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// NodeFields returns the sorted keys of an untyped node.
func NodeFields(node core.Node) []string {
	names := make([]string, 0, len(node))
	for k := range node {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func tagName(sf reflect.StructField) string {
	return strings.TrimSpace(strings.SplitN(sf.Tag.Get(core.FieldTag), ",", 2)[0])
}

func hasValidateTag(sf reflect.StructField, name string) bool {
	for _, part := range strings.Split(sf.Tag.Get("validate"), ",") {
		if strings.TrimSpace(part) == name {
			return true
		}
	}
	return false
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
