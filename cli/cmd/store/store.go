package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/trainconf/cli/cmd"
	"github.com/compozy/trainconf/cli/helpers"
	"github.com/compozy/trainconf/engine/schema"
	enginestore "github.com/compozy/trainconf/engine/store"
	"github.com/compozy/trainconf/pkg/logger"
)

// NewStoreCommand creates the store command
func NewStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect registered config records",
		Long: `Inspect the records registered in the config store: built-in records plus the
files found on the search path.`,
	}

	cmd.AddCommand(
		NewStoreListCommand(),
		NewStoreShowCommand(),
		NewStoreParityCommand(),
	)

	return cmd
}

// NewStoreListCommand creates the store list subcommand
func NewStoreListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [group]",
		Short: "List registered records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireStore: true}, handleList, args)
		},
	}
}

func handleList(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	group := ""
	if len(args) == 1 {
		group = strings.Trim(args[0], "/")
		if !executor.Store().HasGroup(group) {
			return helpers.NewCliError("GROUP_NOT_FOUND", fmt.Sprintf("no records in group %q", group))
		}
	}
	table := &helpers.Table{Headers: []string{"group", "name", "type", "source"}}
	for _, entry := range executor.Store().Entries() {
		if group != "" && entry.Group != group {
			continue
		}
		table.Rows = append(table.Rows, []string{
			displayGroup(entry.Group),
			entry.Name,
			displayType(&entry),
			string(entry.Source),
		})
	}
	logger.FromContext(ctx).Debug("Listing records", "group", group, "count", len(table.Rows))
	return executor.Output().WriteData(table)
}

// NewStoreShowCommand creates the store show subcommand
func NewStoreShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <group/name>",
		Short: "Show a record with its defaults",
		Long: `Show a registered record as a document, with any search path overlay applied.
Required fields without a value are shown as "???".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireStore: true}, handleShow, args)
		},
	}
}

// handleShow renders the record with unset required fields shown as "???".
func handleShow(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	group, name := enginestore.SplitKey(args[0])
	entry, err := executor.Store().Get(group, name)
	if err != nil {
		return err
	}
	node, err := executor.Store().Load(group, name)
	if err != nil {
		return err
	}
	if entry.Typed() {
		if node, err = schema.MarkMissing(node, entry.Type); err != nil {
			return err
		}
	}
	return executor.Output().WriteData(node)
}

// NewStoreParityCommand creates the store parity subcommand
func NewStoreParityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parity",
		Short: "Check schema records against their selectable variants",
		Long: `Compare every schema/<group> record with the records of <group> and report
schema records whose fields match no selectable variant.`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireStore: true}, handleParity, args)
		},
	}
}

func handleParity(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	issues := schema.CheckParity(executor.Store())
	if len(issues) == 0 {
		logger.FromContext(ctx).Info("Schema records match their variants")
		return nil
	}
	table := &helpers.Table{Headers: []string{"schema", "compared", "missing", "extra", "reason"}}
	for _, issue := range issues {
		table.Rows = append(table.Rows, []string{
			issue.SchemaKey,
			issue.Compared,
			strings.Join(issue.Missing, ","),
			strings.Join(issue.Extra, ","),
			issue.Reason,
		})
	}
	if err := executor.Output().WriteData(table); err != nil {
		return err
	}
	return helpers.NewCliError(
		"PARITY_MISMATCH",
		fmt.Sprintf("%d schema %s without a matching variant", len(issues), helpers.Pluralize(len(issues), "record", "records")),
	)
}

func displayGroup(group string) string {
	if group == "" {
		return "-"
	}
	return group
}

func displayType(entry *enginestore.Entry) string {
	if !entry.Typed() {
		return "untyped"
	}
	return entry.Type.String()
}
