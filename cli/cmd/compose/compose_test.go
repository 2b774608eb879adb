package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitArgs(t *testing.T) {
	t.Run("Should use the default primary without arguments", func(t *testing.T) {
		primary, overrides := splitArgs(nil, "config")
		assert.Equal(t, "config", primary)
		assert.Empty(t, overrides)
	})
	t.Run("Should take the first argument as primary", func(t *testing.T) {
		primary, overrides := splitArgs([]string{"pytext_config", "use_mock=true"}, "config")
		assert.Equal(t, "pytext_config", primary)
		assert.Equal(t, []string{"use_mock=true"}, overrides)
	})
	t.Run("Should treat a leading override as an override", func(t *testing.T) {
		for _, first := range []string{"optim.lr=0.1", "~trainer", "+task/optim=adamw", "++seed=1"} {
			primary, overrides := splitArgs([]string{first}, "config")
			assert.Equal(t, "config", primary, first)
			assert.Equal(t, []string{first}, overrides, first)
		}
	})
}

func TestFormatScalar(t *testing.T) {
	t.Run("Should render leaf values bare", func(t *testing.T) {
		cases := map[string]any{
			"16":      16,
			"16.5":    16.5,
			"0.0001":  0.0001,
			"true":    true,
			"null":    nil,
			"/data/x": "/data/x",
		}
		for want, value := range cases {
			got, ok := formatScalar(value)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		}
	})
	t.Run("Should leave collections to the output writer", func(t *testing.T) {
		_, ok := formatScalar([]any{0.9, 0.999})
		assert.False(t, ok)
		_, ok = formatScalar(map[string]any{"lr": 0.1})
		assert.False(t, ok)
	})
}
