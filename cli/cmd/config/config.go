package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/trainconf/cli/cmd"
	"github.com/compozy/trainconf/cli/helpers"
	"github.com/compozy/trainconf/pkg/config"
	"github.com/compozy/trainconf/pkg/logger"
)

// NewConfigCommand creates the config command using the unified command pattern
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and validate the tool settings",
		Long:  `Show and validate trainconf's own settings: defaults, trainconf.yaml, environment and flags.`,
	}

	cmd.AddCommand(
		NewConfigShowCommand(),
		NewConfigValidateCommand(),
	)

	return cmd
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Long: `Display the active settings in the selected format.
With --sources each key also reports where its value came from.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, handleConfigShow, args)
		},
	}

	cmd.Flags().Bool("sources", false, "Show the source of each setting")

	return cmd
}

func handleConfigShow(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	log := logger.FromContext(ctx)
	log.Debug("executing config show command")

	showSources, err := cobraCmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	flat, err := flattenConfig(executor.Config())
	if err != nil {
		return err
	}
	var sources map[string]config.SourceType
	if showSources {
		sources = collectSources(config.ManagerFromContext(ctx).Service, flat)
	}
	return formatConfigOutput(executor.Output(), executor.Format(), flat, sources)
}

// NewConfigValidateCommand creates the config validate subcommand
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the settings and the search path",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, handleConfigValidate, args)
		},
	}
}

func handleConfigValidate(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	cfg := executor.Config()
	service := config.ManagerFromContext(ctx).Service
	if err := service.Validate(cfg); err != nil {
		return helpers.NewCliError("INVALID_CONFIG", "Configuration is invalid", err.Error())
	}
	if root := cfg.Store.SearchPath; root != "" {
		ok, err := afero.DirExists(executor.Fs(), root)
		if err != nil {
			return fmt.Errorf("failed to check search path: %w", err)
		}
		if !ok {
			return helpers.NewCliError("INVALID_CONFIG", fmt.Sprintf("search path %s is not a directory", root))
		}
	}
	_, err := fmt.Fprintln(cobraCmd.OutOrStdout(), "Configuration is valid")
	return err
}

// flattenConfig converts the nested settings to dotted keys.
func flattenConfig(cfg *config.Config) (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}
	return k.All(), nil
}

func collectSources(service config.Service, flat map[string]any) map[string]config.SourceType {
	sources := make(map[string]config.SourceType, len(flat))
	for key := range flat {
		source := service.GetSource(key)
		if source == "" {
			source = config.SourceDefault
		}
		sources[key] = source
	}
	return sources
}

func formatConfigOutput(
	out *helpers.OutputWriter,
	format helpers.OutputFormat,
	flat map[string]any,
	sources map[string]config.SourceType,
) error {
	if format != helpers.OutputFormatTable {
		output := map[string]any{"config": flat}
		if sources != nil {
			output["sources"] = sources
		}
		return out.WriteData(output)
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	table := &helpers.Table{Headers: []string{"key", "value"}}
	if sources != nil {
		table.Headers = append(table.Headers, "source")
	}
	for _, key := range keys {
		row := []string{key, fmt.Sprint(flat[key])}
		if sources != nil {
			row = append(row, string(sources[key]))
		}
		table.Rows = append(table.Rows, row)
	}
	return out.WriteData(table)
}
