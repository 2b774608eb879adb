package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	invopop "github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonschema"

	"github.com/compozy/trainconf/engine/core"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

type Schema map[string]any
type Result = jsonschema.EvaluationResult

var compiledSchemaCache sync.Map // reflect.Type -> *jsonschema.Schema

func (s *Schema) String() string {
	bytes, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bytes)
}

func (s *Schema) Compile() (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks value against the schema. Null and Missing values are
// dropped first: unset values are reported by Validator, not by type checks.
func (s *Schema) Validate(ctx context.Context, value any) (*Result, error) {
	schema, err := s.Compile()
	if err != nil {
		return nil, err
	}
	recordSchemaCompile(ctx, false)
	return validateCompiled(ctx, schema, value)
}

func validateCompiled(ctx context.Context, schema *jsonschema.Schema, value any) (*Result, error) {
	if schema == nil {
		return nil, nil
	}
	start := time.Now()
	result := schema.Validate(pruneUnset(core.Plain(value)))
	recordSchemaValidation(ctx, time.Since(start), result.Valid)
	if result.Valid {
		return result, nil
	}
	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, result.Errors[key]))
	}
	return result, core.NewError(
		fmt.Errorf("schema validation failed: %s", strings.Join(parts, "; ")),
		core.ErrCodeConstraint,
		map[string]any{"keywords": keys},
	)
}

// -----------------------------------------------------------------------------
// Reflection
// -----------------------------------------------------------------------------

func newReflector() *invopop.Reflector {
	return &invopop.Reflector{
		FieldNameTag:               core.FieldTag,
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		ExpandedStruct:             true,
	}
}

// JSONSchema builds a draft-07 JSON Schema for record type t.
func JSONSchema(t reflect.Type) (Schema, error) {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, core.NewError(nil, core.ErrCodeInvalidNode, map[string]any{"type": fmt.Sprint(t)})
	}
	reflected := newReflector().ReflectFromType(t)
	reflected.Version = draft07
	reflected.ID = invopop.ID(t.Name() + ".json")
	reflected.Title = t.Name()
	bytes, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var out Schema
	if err := json.Unmarshal(bytes, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema map: %w", err)
	}
	return out, nil
}

// ValidateDocument checks an untyped document against the JSON Schema of t.
// Compiled schemas are cached per type.
func ValidateDocument(ctx context.Context, doc core.Node, t reflect.Type) error {
	t = indirectType(t)
	cached, ok := compiledSchemaCache.Load(t)
	recordSchemaCompile(ctx, ok)
	if !ok {
		s, err := JSONSchema(t)
		if err != nil {
			return err
		}
		compiled, err := s.Compile()
		if err != nil {
			return err
		}
		cached, _ = compiledSchemaCache.LoadOrStore(t, compiled)
	}
	_, err := validateCompiled(ctx, cached.(*jsonschema.Schema), doc)
	return err
}

func pruneUnset(v any) any {
	switch val := v.(type) {
	case core.Node:
		out := make(core.Node, len(val))
		for k, child := range val {
			if child == nil || core.IsMissing(child) {
				continue
			}
			out[k] = pruneUnset(child)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, child := range val {
			out = append(out, pruneUnset(child))
		}
		return out
	default:
		return v
	}
}
