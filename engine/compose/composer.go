package compose

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/engine/schema"
	"github.com/compozy/trainconf/engine/store"
	"github.com/compozy/trainconf/pkg/logger"
)

// -----------------------------------------------------------------------------
// Target resolution
// -----------------------------------------------------------------------------

// TargetResolver decides whether a _target_ names a known implementation.
type TargetResolver interface {
	Resolve(target core.Target) bool
}

// ResolverFunc adapts a function to TargetResolver.
type ResolverFunc func(target core.Target) bool

func (f ResolverFunc) Resolve(target core.Target) bool {
	return f(target)
}

// StoreResolver accepts the default targets of records registered in s.
func StoreResolver(s *store.Store) TargetResolver {
	return ResolverFunc(func(target core.Target) bool {
		_, ok := s.TypeForTarget(target)
		return ok
	})
}

// -----------------------------------------------------------------------------
// Composer
// -----------------------------------------------------------------------------

// Composer assembles run configs from a store.
type Composer struct {
	store       *store.Store
	validator   *schema.Validator
	resolver    TargetResolver
	checkTarget bool
}

type Option func(*Composer)

// WithTargetResolver replaces the store-backed target resolver.
func WithTargetResolver(r TargetResolver) Option {
	return func(c *Composer) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithTargetCheck enables or disables _target_ resolution.
func WithTargetCheck(enabled bool) Option {
	return func(c *Composer) {
		c.checkTarget = enabled
	}
}

// New creates a composer over s.
func New(s *store.Store, opts ...Option) *Composer {
	c := &Composer{
		store:       s,
		validator:   schema.NewValidator(s),
		resolver:    StoreResolver(s),
		checkTarget: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the config named primary, applies its defaults list and the
// overrides, then validates the result.
func (c *Composer) Compose(ctx context.Context, primary string, overrides ...string) (*Result, error) {
	start := time.Now()
	result, err := c.compose(ctx, primary, overrides)
	recordComposition(ctx, primary, time.Since(start), err)
	log := logger.FromContext(ctx)
	if err != nil {
		log.Debug("Composition failed", "primary", primary, "error", err)
		return nil, err
	}
	log.Debug("Composed config", "primary", primary, "selections", len(result.Selections))
	return result, nil
}

func (c *Composer) compose(ctx context.Context, primary string, rawOverrides []string) (*Result, error) {
	entry, err := c.store.Get("", primary)
	if err != nil {
		return nil, err
	}
	base, err := c.store.Load("", primary)
	if err != nil {
		return nil, err
	}
	defaults, err := ParseDefaults(base[DefaultsKey])
	if err != nil {
		return nil, err
	}
	delete(base, DefaultsKey)

	selections, values, err := c.classify(rawOverrides)
	if err != nil {
		return nil, err
	}
	defaults, err = applySelections(defaults, selections)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(nodeProvider(base), nil); err != nil {
		return nil, fmt.Errorf("failed to load primary config %s: %w", primary, err)
	}
	for _, sel := range defaults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.mergeSelection(k, sel); err != nil {
			return nil, err
		}
	}
	for _, o := range values {
		if err := applyValue(k, o); err != nil {
			return nil, err
		}
	}

	cfg := core.Node(k.Raw())
	delete(cfg, DefaultsKey)
	if err := c.validate(ctx, cfg, entry, defaults); err != nil {
		return nil, err
	}
	if c.checkTarget {
		if err := c.checkTargets(cfg); err != nil {
			return nil, err
		}
	}
	return &Result{Config: cfg, Selections: defaults, Primary: primary, Type: entry.Type}, nil
}

func (c *Composer) classify(raw []string) ([]Override, []Override, error) {
	selections := make([]Override, 0)
	values := make([]Override, 0)
	for _, r := range raw {
		o, err := ParseOverride(r)
		if err != nil {
			return nil, nil, err
		}
		if c.isSelection(o) {
			sel, err := o.asSelection()
			if err != nil {
				return nil, nil, err
			}
			selections = append(selections, sel)
			continue
		}
		if strings.Contains(o.Key, "/") {
			return nil, nil, core.NewError(
				fmt.Errorf("unknown config group %q", o.Key),
				core.ErrCodeInvalidOverride,
				map[string]any{"override": o.Raw, "group": o.Key},
			)
		}
		values = append(values, o)
	}
	return selections, values, nil
}

func (c *Composer) isSelection(o Override) bool {
	if !c.store.HasGroup(o.Key) || store.IsSchemaGroup(o.Key) {
		return false
	}
	if !o.HasValue {
		return o.Kind == OverrideDelete
	}
	switch o.Value.(type) {
	case core.Node, []any:
		return false
	default:
		return true
	}
}

func applySelections(defaults DefaultsList, overrides []Override) (DefaultsList, error) {
	for _, o := range overrides {
		group := strings.Trim(o.Key, "/")
		current, selected := defaults.Get(group)
		name, _ := o.Value.(string)
		switch o.Kind {
		case OverrideSelect:
			if !selected {
				return nil, core.NewError(
					fmt.Errorf("group %s is not in the defaults list, use +%s", group, o.Raw),
					core.ErrCodeInvalidOverride,
					map[string]any{"override": o.Raw, "group": group},
				)
			}
			defaults = defaults.Set(group, name)
		case OverrideAddSelect:
			if selected {
				return nil, core.NewError(
					fmt.Errorf("group %s is already selected (%s), use %s=%s", group, current, group, name),
					core.ErrCodeInvalidOverride,
					map[string]any{"override": o.Raw, "group": group},
				)
			}
			defaults = defaults.Set(group, name)
		case OverrideForceSelect:
			defaults = defaults.Set(group, name)
		case OverrideUnselect:
			if !selected || (o.HasValue && name != current) {
				return nil, core.NewError(
					fmt.Errorf("cannot remove %s: not selected", o.Raw),
					core.ErrCodeInvalidOverride,
					map[string]any{"override": o.Raw, "group": group},
				)
			}
			defaults = defaults.Remove(group)
		}
	}
	return defaults, nil
}

func (c *Composer) mergeSelection(k *koanf.Koanf, sel Selection) error {
	node, err := c.store.Load(sel.Group, sel.Name)
	if err != nil {
		return err
	}
	delete(node, DefaultsKey)
	sub := koanf.New(".")
	if err := sub.Load(nodeProvider(node), nil); err != nil {
		return fmt.Errorf("failed to load %s/%s: %w", sel.Group, sel.Name, err)
	}
	path := sel.KeyPath()
	if path == "" {
		return k.Merge(sub)
	}
	// The selected record replaces whatever the primary held at path, so
	// variants with different fields do not leak keys into each other.
	k.Delete(path)
	if len(node) == 0 {
		return k.Set(path, core.Node{})
	}
	return k.MergeAt(sub, path)
}

func applyValue(k *koanf.Koanf, o Override) error {
	exists := k.Exists(o.Key)
	switch o.Kind {
	case OverrideSet:
		if !exists {
			return core.NewError(
				fmt.Errorf("key %s is not in the config, use +%s to add it", o.Key, o.Raw),
				core.ErrCodeInvalidOverride,
				map[string]any{"override": o.Raw, "key": o.Key},
			)
		}
		return setValue(k, o.Key, o.Value)
	case OverrideAdd:
		if exists {
			return core.NewError(
				fmt.Errorf("key %s already exists, use %s=... to override it", o.Key, o.Key),
				core.ErrCodeInvalidOverride,
				map[string]any{"override": o.Raw, "key": o.Key},
			)
		}
		return setValue(k, o.Key, o.Value)
	case OverrideForceAdd:
		return setValue(k, o.Key, o.Value)
	case OverrideDelete:
		if !exists {
			return core.NewError(
				fmt.Errorf("cannot delete %s: key not found", o.Key),
				core.ErrCodeInvalidOverride,
				map[string]any{"override": o.Raw, "key": o.Key},
			)
		}
		if o.HasValue && !reflect.DeepEqual(core.Plain(k.Get(o.Key)), o.Value) {
			return core.NewError(
				fmt.Errorf("cannot delete %s: value does not match", o.Key),
				core.ErrCodeInvalidOverride,
				map[string]any{"override": o.Raw, "key": o.Key},
			)
		}
		k.Delete(o.Key)
		return nil
	default:
		return invalidOverride(o.Raw, "unsupported operation")
	}
}

// setValue replaces the value at key; maps are replaced, not merged.
func setValue(k *koanf.Koanf, key string, value any) error {
	if _, isMap := value.(core.Node); isMap {
		k.Delete(key)
	}
	if err := k.Set(key, value); err != nil {
		return core.NewError(err, core.ErrCodeInvalidOverride, map[string]any{"key": key})
	}
	return nil
}

// validate checks typed primaries against their record type. Untyped
// primaries are checked for unset values and each selected typed record is
// checked against its JSON Schema.
func (c *Composer) validate(ctx context.Context, cfg core.Node, entry *store.Entry, selections DefaultsList) error {
	if entry.Typed() {
		return c.validator.Check(cfg, entry.Type)
	}
	if missing := schema.MissingFields(cfg); len(missing) > 0 {
		return core.NewError(
			fmt.Errorf("missing mandatory values: %s", strings.Join(missing, ", ")),
			core.ErrCodeMissingValue,
			map[string]any{"paths": missing},
		)
	}
	for _, sel := range selections {
		selected, err := c.store.Get(sel.Group, sel.Name)
		if err != nil || !selected.Typed() {
			continue
		}
		node, ok := nodeAt(cfg, sel.KeyPath())
		if !ok {
			continue
		}
		if err := schema.ValidateDocument(ctx, node, selected.Type); err != nil {
			if coreErr, isCore := core.AsError(err); isCore {
				if coreErr.Details == nil {
					coreErr.Details = make(map[string]any)
				}
				coreErr.Details["path"] = sel.KeyPath()
			}
			return err
		}
	}
	return nil
}

func nodeAt(cfg core.Node, path string) (core.Node, bool) {
	cur := cfg
	for _, part := range strings.Split(path, ".") {
		next, ok := cur[part].(core.Node)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func (c *Composer) checkTargets(cfg core.Node) error {
	unresolved := make(map[string]string)
	collectTargets(cfg, "", func(path string, target core.Target) {
		if !target.Valid() || !c.resolver.Resolve(target) {
			unresolved[path] = target.String()
		}
	})
	if len(unresolved) == 0 {
		return nil
	}
	paths := make([]string, 0, len(unresolved))
	for p := range unresolved {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, fmt.Sprintf("%s=%s", p, unresolved[p]))
	}
	return core.NewError(
		fmt.Errorf("unresolved targets: %s", strings.Join(parts, ", ")),
		core.ErrCodeTargetNotResolved,
		map[string]any{"paths": paths},
	)
}

func collectTargets(node core.Node, prefix string, visit func(path string, target core.Target)) {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := value.(type) {
		case core.Node:
			collectTargets(v, path, visit)
		case string:
			if key == core.TargetKey && !core.IsMissing(v) {
				visit(path, core.Target(v))
			}
		}
	}
}

// nodeProvider is a koanf.Provider adapter for core.Node data.
type nodeProvider core.Node

func (n nodeProvider) Read() (map[string]any, error) {
	return map[string]any(n), nil
}

func (n nodeProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
