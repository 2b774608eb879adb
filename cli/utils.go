package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/compozy/trainconf/pkg/config/definition"
)

var stringSliceType = reflect.TypeOf([]string{})

// bindRegistryFlags declares one persistent flag per registry field that has a CLI name.
func bindRegistryFlags(flags *pflag.FlagSet, registry *definition.Registry) {
	for _, path := range registry.Paths() {
		field, _ := registry.GetField(path)
		if field.CLIFlag == "" {
			continue
		}
		switch field.Type {
		case reflect.TypeOf(true):
			def, _ := field.Default.(bool)
			flags.BoolP(field.CLIFlag, field.Shorthand, def, field.Help)
		case stringSliceType:
			def, _ := field.Default.([]string)
			flags.StringSliceP(field.CLIFlag, field.Shorthand, def, field.Help)
		default:
			def, _ := field.Default.(string)
			flags.StringP(field.CLIFlag, field.Shorthand, def, field.Help)
		}
	}
}

// extractCLIFlags collects the registry flags explicitly changed by the user,
// keyed by flag name.
func extractCLIFlags(cmd *cobra.Command, registry *definition.Registry) map[string]any {
	flags := make(map[string]any)
	for flagName := range registry.GetCLIFlagMapping() {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		switch flag.Value.Type() {
		case "bool":
			if value, err := cmd.Flags().GetBool(flagName); err == nil {
				flags[flagName] = value
			}
		case "stringSlice":
			if value, err := cmd.Flags().GetStringSlice(flagName); err == nil {
				flags[flagName] = value
			}
		default:
			flags[flagName] = flag.Value.String()
		}
	}
	return flags
}

// loadEnvFile loads environment variables from a file inside the working directory.
// A missing file is not an error.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the project directory", envFile)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// isPathWithinDirectory checks if a given path is within the specified directory
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
