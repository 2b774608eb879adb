package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/trainconf/cli/helpers"
	"github.com/compozy/trainconf/engine/compose"
	"github.com/compozy/trainconf/engine/schema"
	"github.com/compozy/trainconf/engine/store"
	"github.com/compozy/trainconf/pkg/config"
	"github.com/compozy/trainconf/pkg/logger"
)

// CommandExecutor handles common setup and execution patterns for CLI commands:
// settings lookup, output format, store discovery and error reporting.
type CommandExecutor struct {
	config *config.Config
	format helpers.OutputFormat
	store  *store.Store
	fs     afero.Fs
	out    io.Writer
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ExecutorOptions allows customization of the command executor
type ExecutorOptions struct {
	// RequireStore loads the search path into the store before the handler runs.
	RequireStore bool
	// Store replaces the process-wide store.
	Store *store.Store
	// Fs replaces the OS filesystem used for discovery and file output.
	Fs afero.Fs
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command, opts ExecutorOptions) (*CommandExecutor, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	format, err := helpers.ParseOutputFormat(cfg.CLI.Format)
	if err != nil {
		return nil, err
	}
	executor := &CommandExecutor{
		config: cfg,
		format: format,
		store:  opts.Store,
		fs:     opts.Fs,
		out:    cmd.OutOrStdout(),
	}
	if executor.store == nil {
		executor.store = store.Instance()
	}
	if executor.fs == nil {
		executor.fs = afero.NewOsFs()
	}
	if opts.RequireStore {
		if _, err := executor.Discover(ctx); err != nil {
			return nil, err
		}
	}
	return executor, nil
}

// Execute runs handler with a cancelable context.
func (e *CommandExecutor) Execute(ctx context.Context, cmd *cobra.Command, handler HandlerFunc, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return handler(ctx, cmd, e, args)
}

// Discover registers the files of the configured search path. Without a
// search path it is a no-op and returns a nil result.
func (e *CommandExecutor) Discover(ctx context.Context) (*store.DiscoverResult, error) {
	root := e.config.Store.SearchPath
	if root == "" {
		return nil, nil
	}
	log := logger.FromContext(ctx)
	result, err := e.store.Discover(ctx, e.fs, store.DiscoverConfig{
		Root:    root,
		Include: e.config.Store.Include,
		Exclude: e.config.Store.Exclude,
		Strict:  e.config.Store.Strict,
		Check:   schema.ValidateDocument,
	})
	if err != nil {
		return result, err
	}
	log.Debug("Loaded search path",
		"root", root,
		"files", result.FilesProcessed,
		"registered", len(result.Registered),
		"overlaid", len(result.Overlaid),
		"errors", len(result.Errors),
	)
	return result, nil
}

// Composer returns a composer over the executor's store honoring the
// target resolution setting.
func (e *CommandExecutor) Composer() *compose.Composer {
	return compose.New(e.store, compose.WithTargetCheck(e.config.Compose.ResolveTargets))
}

// Store returns the store commands read from.
func (e *CommandExecutor) Store() *store.Store {
	return e.store
}

// Config returns the active tool settings.
func (e *CommandExecutor) Config() *config.Config {
	return e.config
}

// Fs returns the filesystem used for discovery and file output.
func (e *CommandExecutor) Fs() afero.Fs {
	return e.fs
}

// Format returns the selected output format.
func (e *CommandExecutor) Format() helpers.OutputFormat {
	return e.format
}

// Output returns a writer for the selected format on the command's stdout.
func (e *CommandExecutor) Output() *helpers.OutputWriter {
	return helpers.NewOutputWriter(e.out, e.format)
}

// ExecuteCommand is a convenience function that combines executor creation and execution.
func ExecuteCommand(cmd *cobra.Command, opts ExecutorOptions, handler HandlerFunc, args []string) error {
	executor, err := NewCommandExecutor(cmd, opts)
	if err != nil {
		return HandleCommonErrors(cmd, err, formatOf(cmd))
	}
	return HandleCommonErrors(cmd, executor.Execute(cmd.Context(), cmd, handler, args), executor.Format())
}

// HandleCommonErrors reports err on the command's stderr and returns it as a CliError.
func HandleCommonErrors(cmd *cobra.Command, err error, format helpers.OutputFormat) error {
	if err == nil {
		return nil
	}
	cliErr := categorizeError(err)
	helpers.OutputError(cmd.ErrOrStderr(), cliErr, format)
	return cliErr
}

// categorizeError converts errors to structured CLI errors
func categorizeError(err error) *helpers.CliError {
	switch {
	case errors.Is(err, context.Canceled):
		return helpers.NewCliError("OPERATION_CANCELED", "Operation was canceled by user")
	case errors.Is(err, context.DeadlineExceeded):
		return helpers.NewCliError("OPERATION_TIMEOUT", "Operation timed out")
	default:
		return helpers.WrapError(err, "COMMAND_FAILED")
	}
}

func formatOf(cmd *cobra.Command) helpers.OutputFormat {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return helpers.OutputFormatYAML
	}
	format, err := helpers.ParseOutputFormat(cfg.CLI.Format)
	if err != nil {
		return helpers.OutputFormatYAML
	}
	return format
}
