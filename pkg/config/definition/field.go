package definition

import (
	"reflect"
	"sort"
)

// FieldDef defines a setting with its defaults and the names it is exposed under.
type FieldDef struct {
	Path      string       // Config path like "store.search_path"
	Default   any          // Default value
	CLIFlag   string       // CLI flag name like "search-path"
	Shorthand string       // Single character shorthand like "s"
	EnvVar    string       // Environment variable name like "TRAINCONF_SEARCH_PATH"
	Type      reflect.Type // Field type for flag binding
	Help      string       // Help text for CLI
}

// Registry holds all setting definitions
type Registry struct {
	fields map[string]FieldDef
}

// NewRegistry creates a new field registry
func NewRegistry() *Registry {
	return &Registry{
		fields: make(map[string]FieldDef),
	}
}

// Register adds a field definition to the registry
func (r *Registry) Register(field *FieldDef) {
	r.fields[field.Path] = *field
}

// GetField returns a field definition by path
func (r *Registry) GetField(path string) (FieldDef, bool) {
	field, exists := r.fields[path]
	return field, exists
}

// GetDefault returns the default value for a field path
func (r *Registry) GetDefault(path string) any {
	if field, exists := r.fields[path]; exists {
		return field.Default
	}
	return nil
}

// GetAllFields returns all registered fields
func (r *Registry) GetAllFields() map[string]FieldDef {
	result := make(map[string]FieldDef)
	for k, v := range r.fields {
		result[k] = v
	}
	return result
}

// Paths returns the registered config paths in sorted order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.fields))
	for path := range r.fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// GetCLIFlagMapping returns a map of CLI flag names to config paths
func (r *Registry) GetCLIFlagMapping() map[string]string {
	mapping := make(map[string]string)
	for path, field := range r.fields {
		if field.CLIFlag != "" {
			mapping[field.CLIFlag] = path
		}
	}
	return mapping
}
