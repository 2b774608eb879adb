package config

import (
	"context"
	"time"

	"github.com/compozy/trainconf/pkg/config/definition"
)

// Config holds the settings of the trainconf tool itself.
type Config struct {
	Store   StoreConfig   `koanf:"store"   validate:"required"`
	Compose ComposeConfig `koanf:"compose" validate:"required"`
	Runtime RuntimeConfig `koanf:"runtime" validate:"required"`
	CLI     CLIConfig     `koanf:"cli"`
}

// StoreConfig controls discovery of YAML config files.
type StoreConfig struct {
	SearchPath string   `koanf:"search_path"                              env:"TRAINCONF_SEARCH_PATH"`
	Include    []string `koanf:"include"     validate:"min=1,dive,glob"   env:"TRAINCONF_STORE_INCLUDE"`
	Exclude    []string `koanf:"exclude"     validate:"dive,glob"         env:"TRAINCONF_STORE_EXCLUDE"`
	Strict     bool     `koanf:"strict"                                   env:"TRAINCONF_STORE_STRICT"`
}

// ComposeConfig controls composition defaults.
type ComposeConfig struct {
	Primary        string `koanf:"primary"         validate:"required" env:"TRAINCONF_PRIMARY"`
	ResolveTargets bool   `koanf:"resolve_targets"                     env:"TRAINCONF_RESOLVE_TARGETS"`
}

// RuntimeConfig contains logging configuration.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error" env:"TRAINCONF_LOG_LEVEL"`
	LogJSON  bool   `koanf:"log_json"                                          env:"TRAINCONF_LOG_JSON"`
}

// CLIConfig contains CLI-specific configuration.
type CLIConfig struct {
	Format     string `koanf:"format"      validate:"oneof=yaml json table" env:"TRAINCONF_FORMAT"`
	ConfigFile string `koanf:"config_file"                                  env:"TRAINCONF_CONFIG_FILE"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Watch registers a callback invoked on configuration updates.
	Watch(ctx context.Context, callback func(*Config)) error
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Watch monitors the source for changes.
	Watch(ctx context.Context, callback func()) error
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with the registry defaults.
func Default() *Config {
	return defaultFromRegistry()
}

func defaultFromRegistry() *Config {
	registry := definition.CreateRegistry()
	return &Config{
		Store: StoreConfig{
			SearchPath: getString(registry, "store.search_path"),
			Include:    getStringSlice(registry, "store.include"),
			Exclude:    getStringSlice(registry, "store.exclude"),
			Strict:     getBool(registry, "store.strict"),
		},
		Compose: ComposeConfig{
			Primary:        getString(registry, "compose.primary"),
			ResolveTargets: getBool(registry, "compose.resolve_targets"),
		},
		Runtime: RuntimeConfig{
			LogLevel: getString(registry, "runtime.log_level"),
			LogJSON:  getBool(registry, "runtime.log_json"),
		},
		CLI: CLIConfig{
			Format:     getString(registry, "cli.format"),
			ConfigFile: getString(registry, "cli.config_file"),
		},
	}
}

// Helper functions for type-safe registry access
func getString(registry *definition.Registry, path string) string {
	if val := registry.GetDefault(path); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(registry *definition.Registry, path string) bool {
	if val := registry.GetDefault(path); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func getStringSlice(registry *definition.Registry, path string) []string {
	if val := registry.GetDefault(path); val != nil {
		if slice, ok := val.([]string); ok {
			return append([]string{}, slice...)
		}
		if interfaceSlice, ok := val.([]any); ok {
			result := make([]string, len(interfaceSlice))
			for i, v := range interfaceSlice {
				if s, ok := v.(string); ok {
					result[i] = s
				}
			}
			return result
		}
	}
	return []string{}
}
