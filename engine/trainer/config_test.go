package trainer

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/engine/schema"
	"github.com/compozy/trainconf/engine/store"
)

func TestRegister(t *testing.T) {
	t.Run("Should register cpu and gpu variants", func(t *testing.T) {
		s := store.New()
		require.NoError(t, Register(s))
		assert.Equal(t, []string{"cpu", "gpu"}, s.Names(Group))
		v, err := s.Instantiate(Group, "gpu")
		require.NoError(t, err)
		conf, ok := v.(Conf)
		require.True(t, ok)
		assert.Equal(t, 1, conf.Gpus)
		assert.Equal(t, 16, conf.Precision)
		typ, ok := s.TypeForTarget(Target)
		require.True(t, ok)
		assert.Equal(t, reflect.TypeOf(Conf{}), typ)
	})
	t.Run("Should populate the process-wide store on import", func(t *testing.T) {
		assert.True(t, store.Instance().Has(Group, "cpu"))
	})
}

func TestConf_Validate(t *testing.T) {
	v := schema.NewValidator(nil)
	t.Run("Should accept the registered variants", func(t *testing.T) {
		for _, conf := range []Conf{CPU(), GPU()} {
			node, err := core.AsMap(conf)
			require.NoError(t, err)
			assert.NoError(t, v.Check(node, reflect.TypeOf(Conf{})))
		}
	})
	t.Run("Should reject inconsistent epoch bounds", func(t *testing.T) {
		conf := Default()
		conf.MinEpochs = 5
		conf.MaxEpochs = 2
		node, err := core.AsMap(conf)
		require.NoError(t, err)
		err = v.Check(node, reflect.TypeOf(Conf{}))
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeConstraint))
	})
}
