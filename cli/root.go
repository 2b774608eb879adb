package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	composecmd "github.com/compozy/trainconf/cli/cmd/compose"
	configcmd "github.com/compozy/trainconf/cli/cmd/config"
	schemacmd "github.com/compozy/trainconf/cli/cmd/schema"
	storecmd "github.com/compozy/trainconf/cli/cmd/store"
	"github.com/compozy/trainconf/pkg/config"
	"github.com/compozy/trainconf/pkg/config/definition"
	"github.com/compozy/trainconf/pkg/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trainconf",
		Short: "Compose and validate training pipeline configs",
		Long: `trainconf composes text classification run configs from registered records,
config files found on a search path and command line overrides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return closeGlobalConfig(cmd.Context())
		},
	}

	bindRegistryFlags(root.PersistentFlags(), definition.CreateRegistry())
	root.PersistentFlags().String("env-file", ".env", "Path to an environment variables file")

	root.AddCommand(
		storecmd.NewStoreCommand(),
		composecmd.NewComposeCommand(),
		schemacmd.NewSchemaCommand(),
		configcmd.NewConfigCommand(),
		versionCmd(),
	)

	return root
}

// SetupGlobalConfig loads the tool settings from defaults, the config file,
// the environment and changed flags, then attaches the settings manager and a
// logger built from them to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}

	registry := definition.CreateRegistry()
	cliFlags := extractCLIFlags(cmd, registry)
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	sources := []config.Source{config.NewDefaultProvider()}
	if configFile != "" {
		absPath, err := filepath.Abs(configFile)
		if err != nil {
			return fmt.Errorf("failed to resolve config file path: %w", err)
		}
		sources = append(sources, config.NewYAMLProvider(absPath))
	}
	sources = append(sources, config.NewEnvProvider(), config.NewCLIProvider(cliFlags))

	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, false)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithManager(ctx, manager)
	cmd.SetContext(ctx)
	log.Debug("Loaded configuration", "config_file", configFile, "search_path", cfg.Store.SearchPath)
	return nil
}

func closeGlobalConfig(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	manager, ok := ctx.Value(config.ManagerCtxKey).(*config.Manager)
	if !ok || manager == nil {
		return nil
	}
	return manager.Close(ctx)
}
