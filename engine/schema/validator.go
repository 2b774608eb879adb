package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/compozy/trainconf/engine/core"
)

// -----------------------------------------------------------------------------
// TypeResolver
// -----------------------------------------------------------------------------

// TypeResolver maps a default _target_ to the record type that declares it.
// *store.Store satisfies it.
type TypeResolver interface {
	TypeForTarget(target core.Target) (reflect.Type, bool)
}

// -----------------------------------------------------------------------------
// Report
// -----------------------------------------------------------------------------

// Report collects every problem found in a document.
type Report struct {
	Missing    []string
	Unknown    []string
	Violations []Violation
}

// Violation is a failed field constraint other than "required".
type Violation struct {
	Path  string
	Tag   string
	Param string
	Value any
}

func (v Violation) String() string {
	if v.Param == "" {
		return fmt.Sprintf("%s (%s)", v.Path, v.Tag)
	}
	return fmt.Sprintf("%s (%s=%s)", v.Path, v.Tag, v.Param)
}

// Valid reports whether the document passed every check.
func (r *Report) Valid() bool {
	return len(r.Missing) == 0 && len(r.Unknown) == 0 && len(r.Violations) == 0
}

// Err converts the report into a coded error. Unknown keys are reported first
// because a misspelt key usually also leaves a required value unset.
func (r *Report) Err() error {
	switch {
	case len(r.Unknown) > 0:
		return core.NewError(
			fmt.Errorf("unknown keys: %s", strings.Join(r.Unknown, ", ")),
			core.ErrCodeUnknownKey,
			map[string]any{"paths": r.Unknown},
		)
	case len(r.Missing) > 0:
		return core.NewError(
			fmt.Errorf("missing mandatory values: %s", strings.Join(r.Missing, ", ")),
			core.ErrCodeMissingValue,
			map[string]any{"paths": r.Missing},
		)
	case len(r.Violations) > 0:
		parts := make([]string, 0, len(r.Violations))
		paths := make([]string, 0, len(r.Violations))
		for _, v := range r.Violations {
			parts = append(parts, v.String())
			paths = append(paths, v.Path)
		}
		return core.NewError(
			fmt.Errorf("constraint violations: %s", strings.Join(parts, ", ")),
			core.ErrCodeConstraint,
			map[string]any{"paths": paths},
		)
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// Validator checks untyped documents against record types.
type Validator struct {
	validate *validator.Validate
	types    TypeResolver
}

// NewValidator creates a validator. types may be nil, in which case polymorphic
// node slots are only scanned for Missing values.
func NewValidator(types TypeResolver) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := tagName(fld)
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("target", validateTarget)
	return &Validator{validate: validate, types: types}
}

func validateTarget(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || s == core.Missing || core.Target(s).Valid()
}

// Check validates doc against record type t and returns a coded error
// (UNKNOWN_KEY, MISSING_VALUE or CONSTRAINT_VIOLATION) when it fails.
func (v *Validator) Check(doc core.Node, t reflect.Type) error {
	report, err := v.Inspect(doc, t)
	if err != nil {
		return err
	}
	return report.Err()
}

// Inspect validates doc against t and returns every problem found. The error
// is reserved for documents that cannot be decoded at all.
func (v *Validator) Inspect(doc core.Node, t reflect.Type) (*Report, error) {
	t = indirectType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, core.NewError(nil, core.ErrCodeInvalidNode, map[string]any{"type": fmt.Sprint(t)})
	}
	missing, unknown := newPathSet(), newPathSet()
	report := &Report{}
	if err := v.inspect(doc, t, "", missing, unknown, report); err != nil {
		return nil, err
	}
	report.Missing = missing.sorted()
	report.Unknown = unknown.sorted()
	sort.Slice(report.Violations, func(i, j int) bool {
		return report.Violations[i].Path < report.Violations[j].Path
	})
	return report, nil
}

func (v *Validator) inspect(doc core.Node, t reflect.Type, prefix string, missing, unknown pathSet, report *Report) error {
	cleaned := stripMissing(doc, prefix, missing)
	ptr := reflect.New(t)
	unused, err := core.DecodeStrict(cleaned, ptr.Interface())
	if err != nil {
		return core.NewError(err, core.ErrCodeDecodeFailed, map[string]any{"path": prefix, "type": t.String()})
	}
	for _, key := range unused {
		unknown.add(joinPath(prefix, key))
	}
	record := ptr.Elem()
	for _, path := range MissingFields(record.Interface()) {
		missing.add(joinPath(prefix, path))
	}
	if err := v.validate.Struct(record.Interface()); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate %s: %w", t, err)
		}
		for _, fe := range verrs {
			if strings.HasPrefix(fe.Tag(), "required") {
				continue
			}
			report.Violations = append(report.Violations, Violation{
				Path:  joinPath(prefix, namespacePath(fe.Namespace())),
				Tag:   fe.Tag(),
				Param: fe.Param(),
				Value: fe.Value(),
			})
		}
	}
	return v.inspectSlots(record, prefix, missing, unknown, report)
}

// inspectSlots recurses into polymorphic node slots whose _target_ resolves
// to a known record type.
func (v *Validator) inspectSlots(rv reflect.Value, prefix string, missing, unknown pathSet, report *Report) error {
	for _, f := range recordFields(rv.Type()) {
		fv := rv.FieldByIndex(f.Index)
		path := joinPath(prefix, f.Name)
		switch {
		case f.IsNodeSlot():
			node, _ := fv.Interface().(core.Node)
			if len(node) == 0 || v.types == nil {
				continue
			}
			target, ok := core.TargetOf(node)
			if !ok {
				continue
			}
			slotType, ok := v.types.TypeForTarget(target)
			if !ok {
				continue
			}
			if err := v.inspect(node, slotType, path, missing, unknown, report); err != nil {
				return err
			}
		case fv.Kind() == reflect.Struct:
			if err := v.inspectSlots(fv, path, missing, unknown, report); err != nil {
				return err
			}
		case fv.Kind() == reflect.Ptr && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct:
			if err := v.inspectSlots(fv.Elem(), path, missing, unknown, report); err != nil {
				return err
			}
		}
	}
	return nil
}

// namespacePath turns a validator namespace such as
// "DocModelConf.BaseModel.dropout" into "dropout": the root type and embedded
// record names are dropped. Record keys are lowercase, Go names are not.
func namespacePath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if r := []rune(part)[0]; unicode.IsUpper(r) {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ".")
}
