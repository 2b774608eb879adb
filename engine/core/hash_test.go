package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	t.Run("Should ignore key order", func(t *testing.T) {
		a, err := Fingerprint(Node{"lr": 0.1, "betas": []any{0.9, 0.999}, "nested": Node{"a": 1, "b": 2}})
		require.NoError(t, err)
		b, err := Fingerprint(map[string]any{"nested": map[string]int{"b": 2, "a": 1}, "betas": []float64{0.9, 0.999}, "lr": 0.1})
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})
	t.Run("Should change with any value", func(t *testing.T) {
		a, err := Fingerprint(Node{"lr": 0.1})
		require.NoError(t, err)
		b, err := Fingerprint(Node{"lr": 0.2})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
	t.Run("Should hash typed records like their maps", func(t *testing.T) {
		type record struct {
			Target Target `koanf:"_target_" json:"_target_"`
		}
		a, err := Fingerprint(Node{"_target_": "torch.optim.AdamW"})
		require.NoError(t, err)
		b, err := Fingerprint(record{Target: "torch.optim.AdamW"})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
