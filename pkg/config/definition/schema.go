package definition

import "reflect"

var (
	stringType      = reflect.TypeOf("")
	boolType        = reflect.TypeOf(false)
	stringSliceType = reflect.TypeOf([]string{})
)

// CreateRegistry creates and populates the settings registry.
// Every default of the tool's own settings lives here.
func CreateRegistry() *Registry {
	registry := NewRegistry()
	registerStoreFields(registry)
	registerComposeFields(registry)
	registerRuntimeFields(registry)
	registerCLIFields(registry)
	return registry
}

func registerStoreFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:      "store.search_path",
		Default:   "",
		CLIFlag:   "search-path",
		Shorthand: "s",
		EnvVar:    "TRAINCONF_SEARCH_PATH",
		Type:      stringType,
		Help:      "Directory of YAML config files registered on top of the built-in records",
	})
	registry.Register(&FieldDef{
		Path:    "store.include",
		Default: []string{"**/*.yaml", "**/*.yml"},
		CLIFlag: "include",
		EnvVar:  "TRAINCONF_STORE_INCLUDE",
		Type:    stringSliceType,
		Help:    "Glob patterns of files to register from the search path",
	})
	registry.Register(&FieldDef{
		Path:    "store.exclude",
		Default: []string{},
		CLIFlag: "exclude",
		EnvVar:  "TRAINCONF_STORE_EXCLUDE",
		Type:    stringSliceType,
		Help:    "Glob patterns of files to skip in the search path",
	})
	registry.Register(&FieldDef{
		Path:    "store.strict",
		Default: false,
		CLIFlag: "strict",
		EnvVar:  "TRAINCONF_STORE_STRICT",
		Type:    boolType,
		Help:    "Fail on the first search path file that cannot be loaded",
	})
}

func registerComposeFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:      "compose.primary",
		Default:   "config",
		CLIFlag:   "primary",
		Shorthand: "p",
		EnvVar:    "TRAINCONF_PRIMARY",
		Type:      stringType,
		Help:      "Top-level config composed when none is named",
	})
	registry.Register(&FieldDef{
		Path:    "compose.resolve_targets",
		Default: true,
		CLIFlag: "resolve-targets",
		EnvVar:  "TRAINCONF_RESOLVE_TARGETS",
		Type:    boolType,
		Help:    "Fail composition when a _target_ names no registered record",
	})
}

func registerRuntimeFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "runtime.log_level",
		Default: "info",
		CLIFlag: "log-level",
		EnvVar:  "TRAINCONF_LOG_LEVEL",
		Type:    stringType,
		Help:    "Log level (debug, info, warn, error)",
	})
	registry.Register(&FieldDef{
		Path:    "runtime.log_json",
		Default: false,
		CLIFlag: "log-json",
		EnvVar:  "TRAINCONF_LOG_JSON",
		Type:    boolType,
		Help:    "Output logs in JSON format",
	})
}

func registerCLIFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:      "cli.format",
		Default:   "yaml",
		CLIFlag:   "format",
		Shorthand: "f",
		EnvVar:    "TRAINCONF_FORMAT",
		Type:      stringType,
		Help:      "Output format (yaml, json, table); composed configs render tables as yaml",
	})
	registry.Register(&FieldDef{
		Path:    "cli.config_file",
		Default: "trainconf.yaml",
		CLIFlag: "config",
		EnvVar:  "TRAINCONF_CONFIG_FILE",
		Type:    stringType,
		Help:    "Settings file for the tool itself",
	})
}
