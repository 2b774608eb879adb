package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Run("Should accept known levels regardless of case and spacing", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel("debug"))
		assert.Equal(t, InfoLevel, ParseLevel(" INFO "))
		assert.Equal(t, WarnLevel, ParseLevel("Warn"))
		assert.Equal(t, ErrorLevel, ParseLevel("error"))
		assert.Equal(t, DisabledLevel, ParseLevel("disabled"))
	})
	t.Run("Should fall back to info for unknown levels", func(t *testing.T) {
		assert.Equal(t, InfoLevel, ParseLevel("verbose"))
		assert.Equal(t, InfoLevel, ParseLevel(""))
	})
	t.Run("Should map disabled above every charm level", func(t *testing.T) {
		level := DisabledLevel
		assert.Greater(t, level.ToCharmlogLevel(), charmlog.FatalLevel)
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("Should drop messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := setupLogger(&buf, "warn", false, false)
		log.Debug("registering record")
		log.Info("composed config")
		log.Warn("skipping invalid config file", "file", "data/bad.yaml")
		out := buf.String()
		assert.NotContains(t, out, "registering record")
		assert.NotContains(t, out, "composed config")
		assert.Contains(t, out, "skipping invalid config file")
		assert.Contains(t, out, "data/bad.yaml")
	})
	t.Run("Should emit one JSON object per line with --log-json", func(t *testing.T) {
		var buf bytes.Buffer
		log := setupLogger(&buf, "debug", true, false)
		log.With("primary", "config").Debug("Composed config", "selections", 5)
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "Composed config", entry["msg"])
		assert.Equal(t, "config", entry["primary"])
		assert.EqualValues(t, 5, entry["selections"])
	})
	t.Run("Should stay silent when disabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := setupLogger(&buf, "disabled", false, false)
		log.Error("overwriting registered config")
		assert.Empty(t, buf.String())
	})
	t.Run("Should return a usable stderr logger", func(t *testing.T) {
		log := SetupLogger("info", false, false)
		require.NotNil(t, log)
		assert.NotNil(t, log.With("component", "cli"))
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the logger attached to the context", func(t *testing.T) {
		var buf bytes.Buffer
		log := setupLogger(&buf, "info", false, false)
		ctx := ContextWithLogger(context.Background(), log)
		FromContext(ctx).Info("from context")
		assert.Contains(t, buf.String(), "from context")
	})
	t.Run("Should fall back to the test logger without one", func(t *testing.T) {
		assert.True(t, IsTestEnvironment())
		fallback := FromContext(context.Background())
		require.NotNil(t, fallback)
		assert.Same(t, fallback, FromContext(context.TODO()))
	})
	t.Run("Should ignore values of the wrong type under the logger key", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerCtxKey, "not a logger")
		assert.Same(t, FromContext(context.Background()), FromContext(ctx))
	})
}

func TestNewForTests(t *testing.T) {
	t.Run("Should discard output at every level", func(t *testing.T) {
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		log := NewForTests()
		require.NotNil(t, log)
		assert.NotPanics(t, func() {
			log.Error("discarded", "key", "value")
			log.With("group", "data").Debug("discarded")
		})
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should use the default config when none is given", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, InfoLevel, cfg.Level)
		assert.False(t, cfg.JSON)
		assert.NotNil(t, NewLogger(nil))
	})
	t.Run("Should carry With fields into every message", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DebugLevel, Output: &buf}).With("group", "task/model")
		log.Debug("Registered config", "name", "doc_model")
		out := buf.String()
		assert.Contains(t, out, "group=task/model")
		assert.Contains(t, out, "name=doc_model")
	})
}
