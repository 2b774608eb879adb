package compose

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/compozy/trainconf/cli/cmd"
	"github.com/compozy/trainconf/cli/helpers"
	enginecompose "github.com/compozy/trainconf/engine/compose"
	"github.com/compozy/trainconf/engine/store"
	"github.com/compozy/trainconf/pkg/logger"
)

// NewComposeCommand creates the compose command
func NewComposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose [primary] [overrides...]",
		Short: "Compose a run config",
		Long: `Compose a top-level config from its defaults list, apply overrides and print
the validated result.

Overrides:
  key=value        replace an existing value
  +key=value       add a key that does not exist yet
  ++key=value      add or replace
  ~key[=value]     delete a key
  group=name       select another record for a group of the defaults list
  +group=name      add a group to the defaults list
  ~group[=name]    drop a group from the defaults list

The primary config defaults to compose.primary when the first argument is an override.`,
		Example: `  trainconf compose config data.train_path=/data/sst2/train.tsv
  trainconf compose config trainer=gpu optim.lr=0.0001 --format json
  trainconf compose pytext_config +task/transform=roberta_transform ... --select task.optim`,
		RunE: executeComposeCommand,
	}

	cmd.Flags().String("select", "", "Print only the value at this path (e.g. trainer.max_epochs)")
	cmd.Flags().Bool("hash", false, "Print only the fingerprint of the composed config")
	cmd.Flags().Bool("watch", false, "Recompose whenever a file under the search path changes")

	return cmd
}

func executeComposeCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{RequireStore: true}, handleCompose, args)
}

func handleCompose(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	selectPath, err := cobraCmd.Flags().GetString("select")
	if err != nil {
		return fmt.Errorf("failed to get select flag: %w", err)
	}
	watch, err := cobraCmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	hashOnly, err := cobraCmd.Flags().GetBool("hash")
	if err != nil {
		return fmt.Errorf("failed to get hash flag: %w", err)
	}
	primary, overrides := splitArgs(args, executor.Config().Compose.Primary)
	run := func(ctx context.Context) error {
		result, err := executor.Composer().Compose(ctx, primary, overrides...)
		if err != nil {
			return err
		}
		if hashOnly {
			hash, err := result.Hash()
			if err != nil {
				return err
			}
			return executor.Output().WriteRaw([]byte(hash))
		}
		return writeResult(executor, result, selectPath)
	}
	if !watch {
		return run(ctx)
	}
	return watchAndCompose(ctx, executor, run)
}

// splitArgs separates the primary config name from the overrides.
func splitArgs(args []string, defaultPrimary string) (string, []string) {
	if len(args) == 0 {
		return defaultPrimary, nil
	}
	first := args[0]
	if strings.Contains(first, "=") || strings.HasPrefix(first, "~") || strings.HasPrefix(first, "+") {
		return defaultPrimary, args
	}
	return first, args[1:]
}

func writeResult(executor *cmd.CommandExecutor, result *enginecompose.Result, selectPath string) error {
	out := executor.Output()
	if selectPath != "" {
		value, ok, err := result.Select(selectPath)
		if err != nil {
			return err
		}
		if !ok {
			return helpers.NewCliError("PATH_NOT_FOUND", fmt.Sprintf("no value at %s in %s", selectPath, result.Primary))
		}
		if scalar, ok := formatScalar(value); ok {
			return out.WriteRaw([]byte(scalar))
		}
		return out.WriteData(value)
	}
	var rendered []byte
	var err error
	if executor.Format() == helpers.OutputFormatJSON {
		rendered, err = result.JSON()
	} else {
		rendered, err = result.YAML()
	}
	if err != nil {
		return err
	}
	return out.WriteRaw(rendered)
}

// formatScalar renders leaf values bare so --select output can feed shell scripts.
func formatScalar(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "null", true
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// watchAndCompose composes once, then reloads the search path and composes
// again after every change until interrupted.
func watchAndCompose(ctx context.Context, executor *cmd.CommandExecutor, run func(context.Context) error) error {
	log := logger.FromContext(ctx)
	root := executor.Config().Store.SearchPath
	if root == "" {
		return helpers.NewCliError("WATCH_UNAVAILABLE", "--watch needs a search path (--search-path)")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error("Composition failed", "error", err)
	}

	watcher, err := store.NewWatcher(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()
	changes := make(chan string, 1)
	watcher.OnChange(func(path string) {
		select {
		case changes <- path:
		default:
		}
	})
	if err := watcher.Watch(ctx, root); err != nil {
		return err
	}
	log.Info("Watching for config changes", "root", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changes:
			log.Info("Config file changed, recomposing", "file", path)
			// TODO: unregister entries whose files were deleted; they stay in the store until restart.
			if _, err := executor.Discover(ctx); err != nil {
				log.Error("Failed to reload search path", "error", err)
				continue
			}
			if err := run(ctx); err != nil {
				log.Error("Composition failed", "error", err)
			}
		}
	}
}
