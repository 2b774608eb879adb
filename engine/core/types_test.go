package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Target(t *testing.T) {
	t.Run("Should accept dotted identifiers", func(t *testing.T) {
		assert.True(t, Target("torch.optim.AdamW").Valid())
		assert.True(t, Target("pytext.contrib.pytext_lib.models.RobertaModel").Valid())
	})
	t.Run("Should reject malformed identifiers", func(t *testing.T) {
		cases := []string{"", "AdamW", "torch..AdamW", ".torch", "torch.", "torch.optim.1Adam", "torch optim"}
		for _, in := range cases {
			t.Run(in, func(t *testing.T) { assert.False(t, Target(in).Valid()) })
		}
	})
	t.Run("Should split module and name", func(t *testing.T) {
		target := Target("torch.optim.AdamW")
		assert.Equal(t, "torch.optim", target.Module())
		assert.Equal(t, "AdamW", target.Name())
		assert.Equal(t, "", Target("AdamW").Module())
		assert.Equal(t, "AdamW", Target("AdamW").Name())
	})
	t.Run("Should read target from node", func(t *testing.T) {
		target, ok := TargetOf(Node{TargetKey: "torch.optim.AdamW"})
		assert.True(t, ok)
		assert.Equal(t, Target("torch.optim.AdamW"), target)
		_, ok = TargetOf(Node{"lr": 0.1})
		assert.False(t, ok)
		_, ok = TargetOf(nil)
		assert.False(t, ok)
	})
}

func Test_IsMissing(t *testing.T) {
	assert.True(t, IsMissing("???"))
	assert.False(t, IsMissing("??"))
	assert.False(t, IsMissing(nil))
	assert.False(t, IsMissing(3))
}
