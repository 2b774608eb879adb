package core

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/structs"
	"gopkg.in/yaml.v3"
)

// FieldTag is the struct tag naming record fields.
const FieldTag = "koanf"

// AsMap converts a record (struct, pointer to struct or Node) into a plain Node.
// Embedded base records tagged ",flatten,squash" are folded into the parent;
// empty base records must be tagged "-".
func AsMap(record any) (Node, error) {
	if record == nil {
		return nil, fmt.Errorf("record is nil")
	}
	if n, ok := record.(Node); ok {
		plain, _ := Plain(n).(Node)
		if plain == nil {
			plain = Node{}
		}
		return plain, nil
	}
	rv := reflect.ValueOf(record)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("record is a nil %T", record)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, NewError(nil, ErrCodeInvalidNode, map[string]any{"type": fmt.Sprintf("%T", record)})
	}
	if field := emptyFlattenedField(rv.Type(), map[reflect.Type]bool{}); field != "" {
		return nil, NewError(
			fmt.Errorf("embedded record %s has no fields to flatten, tag it `koanf:\"-\"`", field),
			ErrCodeInvalidNode,
			map[string]any{"type": fmt.Sprintf("%T", record), "field": field},
		)
	}
	raw, err := structs.Provider(rv.Interface(), FieldTag).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read record %T: %w", record, err)
	}
	plain, _ := Plain(raw).(Node)
	if plain == nil {
		plain = Node{}
	}
	return plain, nil
}

// emptyFlattenedField finds a flattened struct field without exported fields
// anywhere in t. The structs provider cannot flatten those.
func emptyFlattenedField(t reflect.Type, seen map[reflect.Type]bool) string {
	if seen[t] {
		return ""
	}
	seen[t] = true
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		opts := strings.Split(sf.Tag.Get(FieldTag), ",")
		if strings.TrimSpace(opts[0]) == "-" {
			continue
		}
		ft := sf.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		if slices.Contains(opts[1:], "flatten") && !hasExportedField(ft) {
			return t.Name() + "." + sf.Name
		}
		if inner := emptyFlattenedField(ft, seen); inner != "" {
			return inner
		}
	}
	return ""
}

func hasExportedField(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// Plain rewrites v into the value space produced by YAML/JSON decoders:
// nil, bool, int, float64, string, []any and Node. Pointers are dereferenced
// and named scalar types (such as Target) are reduced to their kind.
func Plain(v any) any {
	return plainValue(reflect.ValueOf(v))
}

func plainValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return plainValue(rv.Elem())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(Node, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = plainValue(iter.Value())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		return plainList(rv)
	case reflect.Array:
		return plainList(rv)
	case reflect.Struct:
		m, err := AsMap(rv.Interface())
		if err != nil {
			return rv.Interface()
		}
		return m
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return rv.Interface()
	}
}

func plainList(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = plainValue(rv.Index(i))
	}
	return out
}

// FromMap decodes node into out, ignoring keys the record does not declare.
func FromMap(node Node, out any) error {
	_, err := decode(node, out)
	return err
}

// DecodeStrict decodes node into out and returns the dotted paths of keys
// the record does not declare.
func DecodeStrict(node Node, out any) ([]string, error) {
	return decode(node, out)
}

func decode(node Node, out any) ([]string, error) {
	md := &mapstructure.Metadata{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       integralFloatHook,
		Squash:           true,
		TagName:          FieldTag,
		Metadata:         md,
		Result:           out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(node); err != nil {
		return nil, NewError(err, ErrCodeDecodeFailed, map[string]any{"type": fmt.Sprintf("%T", out)})
	}
	return md.Unused, nil
}

// integralFloatHook rejects floats with a fractional part for integer fields,
// which weak decoding would otherwise truncate.
func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("cannot use %v as %s: value is not a whole number", data, to.Kind())
		}
	}
	return data, nil
}

// ParseValue interprets an override value the way a YAML document would:
// "8" is an int, "1e-3" a float, "[a, b]" a list and "null" nil.
func ParseValue(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == Missing {
		return Missing, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, fmt.Errorf("failed to parse value %q: %w", raw, err)
	}
	return Plain(v), nil
}
