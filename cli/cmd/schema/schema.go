package schema

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/trainconf/cli/cmd"
	"github.com/compozy/trainconf/cli/helpers"
	engineschema "github.com/compozy/trainconf/engine/schema"
	"github.com/compozy/trainconf/pkg/logger"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export JSON Schemas of the record types",
	}
	cmd.AddCommand(NewSchemaExportCommand())
	return cmd
}

// NewSchemaExportCommand creates the schema export subcommand
func NewSchemaExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one JSON Schema per registered record type",
		Long: `Write <TypeName>.json for every record type registered in the store, so editors
can validate config files on the search path.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, handleExport, args)
		},
	}
	cmd.Flags().StringP("out", "o", "schemas", "Output directory")
	return cmd
}

func handleExport(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	outDir, err := cobraCmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	if outDir == "" {
		return helpers.NewCliError("EMPTY_FLAG", "required flag 'out' cannot be empty")
	}
	types := engineschema.RecordTypes(executor.Store())
	written, err := engineschema.Export(ctx, executor.Fs(), outDir, types)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Exported schemas", "dir", outDir, "count", len(written))
	table := &helpers.Table{Headers: []string{"file"}}
	for _, path := range written {
		table.Rows = append(table.Rows, []string{path})
	}
	return executor.Output().WriteData(table)
}
