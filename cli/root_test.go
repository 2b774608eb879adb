package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/trainconf/cli/helpers"
	"github.com/compozy/trainconf/engine/core"
	_ "github.com/compozy/trainconf/engine/textclf"
	"github.com/compozy/trainconf/pkg/logger"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := RootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config=", "--env-file="}, args...))
	ctx := logger.ContextWithLogger(context.Background(), logger.NewForTests())
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// row returns the whitespace separated cells of the table line starting with key.
func row(out, key string) []string {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == key {
			return fields
		}
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should layer the config file, environment and flags", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := writeFile(t, dir, "trainconf.yaml", "compose:\n  primary: pytext_config\nstore:\n  strict: true\n")
		t.Setenv("TRAINCONF_LOG_LEVEL", "warn")

		out, _, err := execute(t, "config", "show", "--sources", "--format", "table", "--config", cfgPath)
		require.NoError(t, err)
		assert.Equal(t, []string{"compose.primary", "pytext_config", "yaml"}, row(out, "compose.primary"))
		assert.Equal(t, []string{"store.strict", "true", "yaml"}, row(out, "store.strict"))
		assert.Equal(t, []string{"runtime.log_level", "warn", "env"}, row(out, "runtime.log_level"))
		assert.Equal(t, []string{"cli.format", "table", "cli"}, row(out, "cli.format"))
		assert.Equal(t, []string{"compose.resolve_targets", "true", "default"}, row(out, "compose.resolve_targets"))
	})

	t.Run("Should fail on invalid settings", func(t *testing.T) {
		_, _, err := execute(t, "config", "show", "--format", "toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})

	t.Run("Should reject env files outside the working directory", func(t *testing.T) {
		_, _, err := execute(t, "config", "show", "--env-file", "../../outside.env")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside the project directory")
	})
}

func TestComposeCommand(t *testing.T) {
	t.Run("Should compose the default primary as JSON", func(t *testing.T) {
		out, _, err := execute(t, "compose", "data.train_path=/data/sst2/train.tsv", "--format", "json")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		data, ok := doc["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/data/sst2/train.tsv", data["train_path"])
		assert.NotContains(t, doc, "defaults")
	})

	t.Run("Should print a selected value", func(t *testing.T) {
		out, _, err := execute(t,
			"compose", "config", "data.train_path=/data/train.tsv", "trainer=gpu",
			"--select", "trainer.precision",
		)
		require.NoError(t, err)
		assert.Equal(t, "16\n", out)
	})

	t.Run("Should report missing values with their code", func(t *testing.T) {
		_, stderr, err := execute(t, "compose", "config")
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeMissingValue))
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, core.ErrCodeMissingValue, cliErr.Code)
		assert.Equal(t, []string{"data.train_path"}, cliErr.Context["paths"])
		assert.Contains(t, stderr, "MISSING_VALUE")
	})

	t.Run("Should report errors as JSON when asked", func(t *testing.T) {
		_, stderr, err := execute(t, "compose", "config", "optim=lamb", "--format", "json")
		require.Error(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(stderr), &body))
		assert.Equal(t, core.ErrCodeEntryNotFound, body["code"])
	})

	t.Run("Should keep integers whole when selecting a subtree", func(t *testing.T) {
		out, _, err := execute(t, "compose", "config", "data.train_path=/x", "--select", "trainer")
		require.NoError(t, err)
		assert.Contains(t, out, "accumulate_grad_batches: 1\n")
		assert.Contains(t, out, "gpus: 0\n")
		assert.NotContains(t, out, "gpus: 0.0")
	})

	t.Run("Should fail when a selected path does not exist", func(t *testing.T) {
		_, _, err := execute(t, "compose", "config", "data.train_path=/x", "--select", "trainer.nope")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "PATH_NOT_FOUND", cliErr.Code)
	})

	t.Run("Should compose a primary found on the search path", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "cli_quick.yaml", "defaults:\n  - optim: fairseq_adam\n  - trainer: gpu\nexperiment: quick\n")

		out, _, err := execute(t, "compose", "cli_quick", "optim.lr=0.01", "--search-path", dir, "--format", "json")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "quick", doc["experiment"])
		assert.InDelta(t, 0.01, doc["optim"].(map[string]any)["lr"], 1e-12)
		assert.InDelta(t, 16, doc["trainer"].(map[string]any)["precision"], 0)
	})

	t.Run("Should print a stable fingerprint", func(t *testing.T) {
		first, _, err := execute(t, "compose", "config", "data.train_path=/data/train.tsv", "--hash")
		require.NoError(t, err)
		second, _, err := execute(t, "compose", "config", "data.train_path=/data/train.tsv", "--hash")
		require.NoError(t, err)
		other, _, err := execute(t, "compose", "config", "data.train_path=/data/other.tsv", "--hash")
		require.NoError(t, err)
		assert.Len(t, strings.TrimSpace(first), 64)
		assert.Equal(t, first, second)
		assert.NotEqual(t, first, other)
	})

	t.Run("Should refuse to watch without a search path", func(t *testing.T) {
		_, _, err := execute(t, "compose", "config", "data.train_path=/x", "--watch")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "WATCH_UNAVAILABLE", cliErr.Code)
	})
}

func TestStoreCommands(t *testing.T) {
	t.Run("Should list the records of a group", func(t *testing.T) {
		out, _, err := execute(t, "store", "list", "trainer", "--format", "table")
		require.NoError(t, err)
		assert.Equal(t, []string{"trainer", "cpu", "trainer.Conf", "builtin"}, row(out, "trainer"))
		assert.Contains(t, out, "gpu")
		assert.NotContains(t, out, "fairseq_adam")
	})

	t.Run("Should fail for unknown groups", func(t *testing.T) {
		_, _, err := execute(t, "store", "list", "nope")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "GROUP_NOT_FOUND", cliErr.Code)
	})

	t.Run("Should show a record", func(t *testing.T) {
		out, _, err := execute(t, "store", "show", "trainer/gpu", "--format", "json")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.InDelta(t, 16, doc["precision"], 0)
		assert.Equal(t, "pytorch_lightning.Trainer", doc["_target_"])
	})

	t.Run("Should mark unset required fields of a record", func(t *testing.T) {
		out, _, err := execute(t, "store", "show", "task/model/doc_model_dummy", "--format", "json")
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "???", doc["embedding_dim"])
		assert.Equal(t, "???", doc["pretrained_embeddings_path"])
		assert.Equal(t, "pytext.contrib.pytext_lib.models.DocModel", doc["_target_"])
	})

	t.Run("Should fail for unknown records", func(t *testing.T) {
		_, _, err := execute(t, "store", "show", "optim/nope")
		assert.True(t, core.HasCode(err, core.ErrCodeEntryNotFound))
	})

	t.Run("Should pass the parity check for built-in records", func(t *testing.T) {
		_, _, err := execute(t, "store", "parity")
		assert.NoError(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	t.Run("Should print build information", func(t *testing.T) {
		out, _, err := execute(t, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "trainconf version dev\n")
		assert.Contains(t, out, "commit: unknown\n")
	})
}

func TestSchemaExportCommand(t *testing.T) {
	t.Run("Should write one schema per record type", func(t *testing.T) {
		dir := t.TempDir()
		out, _, err := execute(t, "schema", "export", "--out", dir, "--format", "table")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "DataConf.json"))
		assert.FileExists(t, filepath.Join(dir, "Conf.json"))
		assert.Contains(t, out, filepath.Join(dir, "OptimConf.json"))
	})
}

func TestConfigValidateCommand(t *testing.T) {
	t.Run("Should accept valid settings", func(t *testing.T) {
		out, _, err := execute(t, "config", "validate", "--search-path", t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "Configuration is valid\n", out)
	})

	t.Run("Should reject a missing search path", func(t *testing.T) {
		_, _, err := execute(t, "config", "validate", "--search-path", filepath.Join(t.TempDir(), "missing"))
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "INVALID_CONFIG", cliErr.Code)
	})
}
