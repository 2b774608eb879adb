package store

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"dario.cat/mergo"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/pkg/logger"
)

const schemaPrefix = "schema"

// Entry is a registered configuration record.
type Entry struct {
	Group  string
	Name   string
	Type   reflect.Type // nil for untyped (file) entries
	Node   any          // struct value for typed entries, core.Node otherwise
	Source core.SourceType
	Path   string // file path for entries discovered on disk
}

// Key returns "group/name", or just the name for top-level configs.
func (e *Entry) Key() string {
	return entryKey(e.Group, e.Name)
}

// Typed reports whether the entry was registered from a record type.
func (e *Entry) Typed() bool {
	return e.Type != nil
}

// Store maps (group, name) pairs to configuration records.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	overlays map[string]core.Node
	targets  map[core.Target]reflect.Type
	log      logger.Logger
}

type Option func(*Store)

func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*Entry),
		overlays: make(map[string]core.Node),
		targets:  make(map[core.Target]reflect.Type),
		log:      logger.FromContext(context.Background()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	instance     *Store
	instanceOnce sync.Once
)

// Instance returns the process-wide store populated by record packages at init.
func Instance() *Store {
	instanceOnce.Do(func() {
		instance = New()
	})
	return instance
}

// Register stores node under (group, name). An existing pair is overwritten.
func (s *Store) Register(group, name string, node any) error {
	return s.register(group, name, node, core.SourceBuiltin, "")
}

func (s *Store) register(group, name string, node any, source core.SourceType, path string) error {
	group, name = normalizeGroup(group), strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return core.NewError(nil, core.ErrCodeInvalidNode, map[string]any{
			"group":  group,
			"name":   name,
			"reason": "name must be a non-empty path segment",
		})
	}
	entry := &Entry{Group: group, Name: name, Source: source, Path: path}
	switch v := node.(type) {
	case core.Node:
		copied, err := core.CopyNode(v)
		if err != nil {
			return fmt.Errorf("failed to copy node %s: %w", entry.Key(), err)
		}
		entry.Node = copied
	default:
		rv := reflect.ValueOf(node)
		for rv.IsValid() && rv.Kind() == reflect.Ptr && !rv.IsNil() {
			rv = rv.Elem()
		}
		if !rv.IsValid() || rv.Kind() != reflect.Struct {
			return core.NewError(nil, core.ErrCodeInvalidNode, map[string]any{
				"key":  entry.Key(),
				"type": fmt.Sprintf("%T", node),
			})
		}
		copied, err := core.DeepCopy(rv.Interface())
		if err != nil {
			return fmt.Errorf("failed to copy record %s: %w", entry.Key(), err)
		}
		entry.Node = copied
		entry.Type = rv.Type()
	}
	target, hasTarget, err := targetOf(entry.Node)
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", entry.Key(), err)
	}

	s.mu.Lock()
	key := entry.Key()
	prev, overwritten := s.entries[key]
	s.entries[key] = entry
	if entry.Typed() && hasTarget {
		s.targets[target] = entry.Type
	}
	s.mu.Unlock()

	if overwritten {
		s.log.Debug("Overwriting registered config",
			"key", key,
			"previous_source", prev.Source,
			"source", source)
	}
	recordRegistration(context.Background(), group, overwritten)
	return nil
}

// IndexTarget makes a record type resolvable by its default _target_ without
// registering a selectable entry.
func (s *Store) IndexTarget(record any) error {
	rv := reflect.ValueOf(record)
	for rv.IsValid() && rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return core.NewError(nil, core.ErrCodeInvalidNode, map[string]any{"type": fmt.Sprintf("%T", record)})
	}
	target, ok, err := targetOf(rv.Interface())
	if err != nil {
		return err
	}
	if !ok {
		return core.NewError(nil, core.ErrCodeTargetNotResolved, map[string]any{
			"type":   rv.Type().String(),
			"reason": "record has no default target",
		})
	}
	s.mu.Lock()
	s.targets[target] = rv.Type()
	s.mu.Unlock()
	return nil
}

// Overlay merges values over the record registered at (group, name) whenever
// it is loaded. Later overlays replace earlier ones.
func (s *Store) Overlay(group, name string, values core.Node) error {
	key := entryKey(normalizeGroup(group), strings.TrimSpace(name))
	copied, err := core.CopyNode(values)
	if err != nil {
		return fmt.Errorf("failed to copy overlay %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return notFound(key)
	}
	s.overlays[key] = copied
	return nil
}

// Get returns a copy of the entry at (group, name).
func (s *Store) Get(group, name string) (*Entry, error) {
	key := entryKey(normalizeGroup(group), strings.TrimSpace(name))
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(key)
	}
	out := *entry
	if n, isNode := entry.Node.(core.Node); isNode {
		copied, err := core.CopyNode(n)
		if err != nil {
			return nil, err
		}
		out.Node = copied
	}
	return &out, nil
}

// Lookup resolves "group/name" (or a bare top-level name).
func (s *Store) Lookup(key string) (*Entry, error) {
	group, name := SplitKey(key)
	return s.Get(group, name)
}

// Has reports whether (group, name) is registered.
func (s *Store) Has(group, name string) bool {
	key := entryKey(normalizeGroup(group), strings.TrimSpace(name))
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Load returns a fresh map of the record at (group, name) with any overlay applied.
func (s *Store) Load(group, name string) (core.Node, error) {
	entry, overlay, err := s.entryWithOverlay(group, name)
	if err != nil {
		return nil, err
	}
	node, err := core.AsMap(entry.Node)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", entry.Key(), err)
	}
	if overlay != nil {
		if err := mergo.Merge(&node, overlay, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to apply overlay to %s: %w", entry.Key(), err)
		}
	}
	return node, nil
}

// Instantiate returns a fresh value of the registered record type. Untyped
// entries come back as core.Node.
func (s *Store) Instantiate(group, name string) (any, error) {
	entry, overlay, err := s.entryWithOverlay(group, name)
	if err != nil {
		return nil, err
	}
	if !entry.Typed() {
		return s.Load(group, name)
	}
	if overlay == nil {
		return core.DeepCopy(entry.Node)
	}
	node, err := s.Load(group, name)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(entry.Type)
	if err := core.FromMap(node, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", entry.Key(), err)
	}
	return ptr.Elem().Interface(), nil
}

func (s *Store) entryWithOverlay(group, name string) (*Entry, core.Node, error) {
	key := entryKey(normalizeGroup(group), strings.TrimSpace(name))
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil, notFound(key)
	}
	overlay := s.overlays[key]
	if overlay != nil {
		copied, err := core.CopyNode(overlay)
		if err != nil {
			return nil, nil, err
		}
		overlay = copied
	}
	return entry, overlay, nil
}

// Groups returns every non-empty group, sorted.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range s.entries {
		if e.Group != "" {
			seen[e.Group] = struct{}{}
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// HasGroup reports whether any entry is registered under group.
func (s *Store) HasGroup(group string) bool {
	return slices.Contains(s.Groups(), normalizeGroup(group))
}

// Names returns the sorted entry names registered under group.
func (s *Store) Names(group string) []string {
	group = normalizeGroup(group)
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0)
	for _, e := range s.entries {
		if e.Group == group {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Entries returns copies of all entries sorted by key.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Count returns the number of registered entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TypeForTarget returns the record type whose default _target_ is target.
func (s *Store) TypeForTarget(target core.Target) (reflect.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[target]
	return t, ok
}

// Targets returns every indexed target, sorted.
func (s *Store) Targets() []core.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Target, 0, len(s.targets))
	for t := range s.targets {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// -----------------------------------------------------------------------------
// Keys and namespaces
// -----------------------------------------------------------------------------

// SchemaGroup returns the schema namespace for a concrete group.
func SchemaGroup(group string) string {
	group = normalizeGroup(group)
	if IsSchemaGroup(group) {
		return group
	}
	return schemaPrefix + "/" + group
}

// ConcreteGroup strips the schema namespace from group.
func ConcreteGroup(group string) string {
	group = normalizeGroup(group)
	if group == schemaPrefix {
		return ""
	}
	return strings.TrimPrefix(group, schemaPrefix+"/")
}

// IsSchemaGroup reports whether group lives in the schema namespace.
func IsSchemaGroup(group string) bool {
	group = normalizeGroup(group)
	return group == schemaPrefix || strings.HasPrefix(group, schemaPrefix+"/")
}

// SplitKey splits "a/b/name" into ("a/b", "name").
func SplitKey(key string) (string, string) {
	key = normalizeGroup(key)
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}

func entryKey(group, name string) string {
	if group == "" {
		return name
	}
	return group + "/" + name
}

func normalizeGroup(group string) string {
	return strings.Trim(strings.TrimSpace(group), "/")
}

func notFound(key string) error {
	return core.NewError(nil, core.ErrCodeEntryNotFound, map[string]any{"key": key})
}

func targetOf(record any) (core.Target, bool, error) {
	node, err := core.AsMap(record)
	if err != nil {
		return "", false, err
	}
	target, ok := core.TargetOf(node)
	return target, ok, nil
}
