package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	data       map[string]any
	sourceType SourceType
	err        error
}

func (m *mockSource) Load() (map[string]any, error) {
	return m.data, m.err
}

func (m *mockSource) Watch(_ context.Context, _ func()) error {
	return nil
}

func (m *mockSource) Type() SourceType {
	return m.sourceType
}

func (m *mockSource) Close() error {
	return nil
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		cfg, err := NewService().Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "config", cfg.Compose.Primary)
		assert.True(t, cfg.Compose.ResolveTargets)
		assert.Equal(t, []string{"**/*.yaml", "**/*.yml"}, cfg.Store.Include)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
		assert.Equal(t, "yaml", cfg.CLI.Format)
	})
	t.Run("Should apply sources in precedence order", func(t *testing.T) {
		service := NewService()
		yamlSrc := &mockSource{
			sourceType: SourceYAML,
			data: map[string]any{
				"store":   map[string]any{"search_path": "/etc/trainconf", "strict": true},
				"compose": map[string]any{"primary": "pytext_config"},
			},
		}
		cliSrc := &mockSource{
			sourceType: SourceCLI,
			data:       map[string]any{"store": map[string]any{"search_path": "./conf"}},
		}
		cfg, err := service.Load(context.Background(), yamlSrc, cliSrc)
		require.NoError(t, err)
		assert.Equal(t, "./conf", cfg.Store.SearchPath)
		assert.True(t, cfg.Store.Strict)
		assert.Equal(t, "pytext_config", cfg.Compose.Primary)
		assert.Equal(t, SourceCLI, service.GetSource("store.search_path"))
		assert.Equal(t, SourceYAML, service.GetSource("store.strict"))
		assert.Equal(t, SourceDefault, service.GetSource("runtime.log_level"))
	})
	t.Run("Should let environment variables win over files", func(t *testing.T) {
		t.Setenv("TRAINCONF_SEARCH_PATH", "/from/env")
		t.Setenv("TRAINCONF_STORE_EXCLUDE", "drafts/**,tmp/*.yaml")
		t.Setenv("TRAINCONF_LOG_JSON", "true")
		service := NewService()
		cfg, err := service.Load(context.Background(), &mockSource{
			sourceType: SourceYAML,
			data:       map[string]any{"store": map[string]any{"search_path": "/from/file"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.Store.SearchPath)
		assert.Equal(t, []string{"drafts/**", "tmp/*.yaml"}, cfg.Store.Exclude)
		assert.True(t, cfg.Runtime.LogJSON)
		assert.Equal(t, SourceEnv, service.GetSource("store.search_path"))
	})
	t.Run("Should let CLI flags win over environment variables", func(t *testing.T) {
		t.Setenv("TRAINCONF_PRIMARY", "pytext_config")
		service := NewService()
		cfg, err := service.Load(context.Background(), &mockSource{
			sourceType: SourceCLI,
			data:       map[string]any{"compose": map[string]any{"primary": "config"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "config", cfg.Compose.Primary)
		assert.Equal(t, SourceCLI, service.GetSource("compose.primary"))
	})
	t.Run("Should reject invalid settings", func(t *testing.T) {
		cases := map[string]map[string]any{
			"log level":      {"runtime": map[string]any{"log_level": "verbose"}},
			"format":         {"cli": map[string]any{"format": "toml"}},
			"empty primary":  {"compose": map[string]any{"primary": ""}},
			"bad glob":       {"store": map[string]any{"include": []any{"[a-"}}},
			"escaping glob":  {"store": map[string]any{"exclude": []any{"../secrets/*.yaml"}}},
			"absolute glob":  {"store": map[string]any{"include": []any{"/etc/*.yaml"}}},
			"empty includes": {"store": map[string]any{"include": []any{}}},
		}
		for name, data := range cases {
			_, err := NewService().Load(context.Background(), &mockSource{sourceType: SourceCLI, data: data})
			assert.Error(t, err, name)
		}
	})
	t.Run("Should surface source errors", func(t *testing.T) {
		_, err := NewService().Load(context.Background(), &mockSource{
			sourceType: SourceYAML,
			err:        assert.AnError,
		})
		assert.ErrorIs(t, err, assert.AnError)
	})
	t.Run("Should notify watch callbacks after a load", func(t *testing.T) {
		service := NewService()
		var got *Config
		require.NoError(t, service.Watch(context.Background(), func(c *Config) { got = c }))
		cfg, err := service.Load(context.Background())
		require.NoError(t, err)
		assert.Same(t, cfg, got)
		assert.Error(t, service.Watch(context.Background(), nil))
	})
}

func TestTransformEnvKey(t *testing.T) {
	t.Run("Should map prefixed names to config paths", func(t *testing.T) {
		assert.Equal(t, "store.search_path", transformEnvKey("TRAINCONF_STORE_SEARCH_PATH"))
		assert.Equal(t, "compose.primary", transformEnvKey("TRAINCONF_COMPOSE__PRIMARY"))
		assert.Equal(t, "runtime", transformEnvKey("TRAINCONF_RUNTIME"))
		assert.Equal(t, "", transformEnvKey("TRAINCONF_"))
	})
}

func TestEnvMappings(t *testing.T) {
	t.Run("Should expose every setting under its registry env var", func(t *testing.T) {
		envs := GenerateEnvToConfigMap()
		assert.Equal(t, "store.search_path", envs["TRAINCONF_SEARCH_PATH"])
		assert.Equal(t, "compose.resolve_targets", envs["TRAINCONF_RESOLVE_TARGETS"])
		assert.Equal(t, "TRAINCONF_FORMAT", GetEnvVarForConfigPath("cli.format"))
		assert.Empty(t, GetEnvVarForConfigPath("cli.unknown"))
	})
}
