package schema

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/engine/store"
)

type BaseTransform struct {
	LabelNames []string `koanf:"label_names"`
}

type docTransform struct {
	BaseTransform `koanf:",squash,flatten"`
	Target        core.Target `koanf:"_target_"  validate:"target"`
	VocabPath     *string     `koanf:"vocab_path"`
}

type pairTransform struct {
	BaseTransform  `koanf:",squash,flatten"`
	Target         core.Target `koanf:"_target_"        validate:"target"`
	TransformLeft  core.Node   `koanf:"transform_left"  validate:"required"`
	TransformRight core.Node   `koanf:"transform_right"`
}

type modelRecord struct {
	Target       core.Target `koanf:"_target_"      validate:"target"`
	EmbeddingDim int         `koanf:"embedding_dim" validate:"required"`
	Dropout      float64     `koanf:"dropout"       validate:"gte=0,lte=1"`
}

type dataRecord struct {
	TrainPath string   `koanf:"train_path" validate:"required"`
	ValPath   *string  `koanf:"val_path"`
	Columns   []string `koanf:"columns"`
}

type runRecord struct {
	Data      dataRecord `koanf:"data"`
	Transform core.Node  `koanf:"transform" validate:"required"`
	Model     core.Node  `koanf:"model"     validate:"required"`
	UseMock   bool       `koanf:"use_mock"`
}

type resolverMap map[core.Target]reflect.Type

func (r resolverMap) TypeForTarget(t core.Target) (reflect.Type, bool) {
	typ, ok := r[t]
	return typ, ok
}

var testResolver = resolverMap{
	"pkg.transforms.Doc":  reflect.TypeOf(docTransform{}),
	"pkg.transforms.Pair": reflect.TypeOf(pairTransform{}),
	"pkg.models.Model":    reflect.TypeOf(modelRecord{}),
}

func TestFields(t *testing.T) {
	t.Run("Should squash embedded records into the field set", func(t *testing.T) {
		assert.Equal(t, []string{"_target_", "label_names", "vocab_path"}, Fields(reflect.TypeOf(docTransform{})))
		assert.Equal(t, Fields(reflect.TypeOf(docTransform{})), Fields(reflect.TypeOf(&docTransform{})))
	})
	t.Run("Should list node keys", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, NodeFields(core.Node{"b": 1, "a": 2}))
	})
}

func TestMissingFields(t *testing.T) {
	t.Run("Should flag exactly the required fields left unset", func(t *testing.T) {
		missing := MissingFields(runRecord{Transform: core.Node{"_target_": "pkg.transforms.Doc"}})
		assert.Equal(t, []string{"data.train_path", "model"}, missing)
	})
	t.Run("Should flag sentinel values in strings and nodes", func(t *testing.T) {
		missing := MissingFields(runRecord{
			Data:      dataRecord{TrainPath: core.Missing},
			Transform: core.Node{"vocab_path": core.Missing},
			Model:     core.Node{"nested": core.Node{"x": core.Missing}},
		})
		assert.Equal(t, []string{"data.train_path", "model.nested.x", "transform.vocab_path"}, missing)
	})
	t.Run("Should return nothing for complete records", func(t *testing.T) {
		assert.Empty(t, MissingFields(modelRecord{EmbeddingDim: 32}))
		assert.Empty(t, MissingFields(nil))
	})
	t.Run("Should mark unset paths with the sentinel", func(t *testing.T) {
		marked, err := MarkMissing(core.Node{"_target_": "pkg.models.Model", "embedding_dim": 0}, reflect.TypeOf(modelRecord{}))
		require.NoError(t, err)
		assert.Equal(t, core.Missing, marked["embedding_dim"])
	})
}

func TestValidator_Check(t *testing.T) {
	v := NewValidator(testResolver)
	valid := func() core.Node {
		return core.Node{
			"data":      core.Node{"train_path": "/train.tsv", "val_path": nil, "columns": []any{"text", "label"}},
			"transform": core.Node{"_target_": "pkg.transforms.Doc", "label_names": []any{"a"}, "vocab_path": nil},
			"model":     core.Node{"_target_": "pkg.models.Model", "embedding_dim": 32, "dropout": 0.4},
			"use_mock":  false,
		}
	}
	runType := reflect.TypeOf(runRecord{})

	t.Run("Should accept a complete document", func(t *testing.T) {
		require.NoError(t, v.Check(valid(), runType))
	})
	t.Run("Should list every missing path", func(t *testing.T) {
		doc := valid()
		doc["data"].(core.Node)["train_path"] = core.Missing
		doc["model"].(core.Node)["embedding_dim"] = core.Missing
		delete(doc, "transform")
		err := v.Check(doc, runType)
		require.Error(t, err)
		coreErr, ok := core.AsError(err)
		require.True(t, ok)
		assert.Equal(t, core.ErrCodeMissingValue, coreErr.Code)
		assert.Equal(t, []string{"data.train_path", "model.embedding_dim", "transform"}, coreErr.Details["paths"])
	})
	t.Run("Should recurse into nested polymorphic slots", func(t *testing.T) {
		doc := valid()
		doc["transform"] = core.Node{"_target_": "pkg.transforms.Pair", "transform_left": nil}
		report, err := v.Inspect(doc, runType)
		require.NoError(t, err)
		assert.Equal(t, []string{"transform.transform_left"}, report.Missing)

		doc["transform"] = core.Node{
			"_target_":       "pkg.transforms.Pair",
			"transform_left": core.Node{"_target_": "pkg.transforms.Doc", "vocab_path": core.Missing},
		}
		report, err = v.Inspect(doc, runType)
		require.NoError(t, err)
		assert.Equal(t, []string{"transform.transform_left.vocab_path"}, report.Missing)
	})
	t.Run("Should reject unknown keys at any depth", func(t *testing.T) {
		doc := valid()
		doc["epochs"] = 3
		doc["model"].(core.Node)["hidden"] = 8
		err := v.Check(doc, runType)
		require.Error(t, err)
		coreErr, ok := core.AsError(err)
		require.True(t, ok)
		assert.Equal(t, core.ErrCodeUnknownKey, coreErr.Code)
		assert.Equal(t, []string{"epochs", "model.hidden"}, coreErr.Details["paths"])
	})
	t.Run("Should report constraint violations with record paths", func(t *testing.T) {
		doc := valid()
		doc["model"].(core.Node)["dropout"] = 1.5
		doc["transform"].(core.Node)["_target_"] = "not a target"
		report, err := v.Inspect(doc, runType)
		require.NoError(t, err)
		require.Len(t, report.Violations, 1)
		assert.Equal(t, "model.dropout", report.Violations[0].Path)
		assert.Equal(t, "lte", report.Violations[0].Tag)
		assert.True(t, core.HasCode(report.Err(), core.ErrCodeConstraint))
	})
	t.Run("Should fail to decode mistyped values", func(t *testing.T) {
		doc := valid()
		doc["data"].(core.Node)["columns"] = core.Node{"a": 1}
		_, err := v.Inspect(doc, runType)
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeDecodeFailed))
	})
	t.Run("Should only scan untyped slots without a resolver", func(t *testing.T) {
		doc := valid()
		doc["model"].(core.Node)["hidden"] = 8
		require.NoError(t, NewValidator(nil).Check(doc, runType))
	})
}

func TestCheckParity(t *testing.T) {
	t.Run("Should accept schema entries matching a group entry", func(t *testing.T) {
		s := store.New()
		require.NoError(t, s.Register("schema/task/transform", "doc_transform", docTransform{Target: "pkg.transforms.Doc"}))
		require.NoError(t, s.Register("task/transform", "doc_transform", docTransform{Target: "pkg.transforms.Doc"}))
		require.NoError(t, s.Register("schema/task/model", "xlmr", modelRecord{}))
		require.NoError(t, s.Register("task/model", "xlmr_base", modelRecord{EmbeddingDim: 32}))
		require.NoError(t, s.Register("task/model", "custom", core.Node{"x": 1}))
		assert.Empty(t, CheckParity(s))
	})
	t.Run("Should report mismatched field sets", func(t *testing.T) {
		s := store.New()
		require.NoError(t, s.Register("schema/task/model", "xlmr", modelRecord{}))
		require.NoError(t, s.Register("task/model", "xlmr", docTransform{}))
		require.NoError(t, s.Register("schema/task/optim", "adamw", modelRecord{}))
		issues := CheckParity(s)
		require.Len(t, issues, 2)
		assert.Equal(t, "schema/task/model/xlmr", issues[0].SchemaKey)
		assert.Equal(t, "task/model/xlmr", issues[0].Compared)
		assert.Equal(t, []string{"dropout", "embedding_dim"}, issues[0].Missing)
		assert.Equal(t, []string{"label_names", "vocab_path"}, issues[0].Extra)
		assert.Equal(t, "schema/task/optim/adamw", issues[1].SchemaKey)
		assert.NotEmpty(t, issues[1].Reason)
	})
}

func TestJSONSchema(t *testing.T) {
	t.Run("Should reflect koanf field names and flatten embedded records", func(t *testing.T) {
		s, err := JSONSchema(reflect.TypeOf(docTransform{}))
		require.NoError(t, err)
		props, ok := s["properties"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, props, "_target_")
		assert.Contains(t, props, "label_names")
		assert.Contains(t, props, "vocab_path")
		assert.Equal(t, draft07, s["$schema"])
	})
	t.Run("Should validate documents by type", func(t *testing.T) {
		typ := reflect.TypeOf(modelRecord{})
		ctx := context.Background()
		require.NoError(t, ValidateDocument(ctx, core.Node{"_target_": "pkg.models.Model", "embedding_dim": 32, "dropout": 0.1}, typ))
		require.NoError(t, ValidateDocument(ctx, core.Node{"embedding_dim": core.Missing}, typ))
		err := ValidateDocument(ctx, core.Node{"embedding_dim": "wide"}, typ)
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeConstraint))
		err = ValidateDocument(ctx, core.Node{"layers": 2}, typ)
		assert.Error(t, err)
	})
	t.Run("Should export one file per record type", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		written, err := Export(context.Background(), fs, "/out", map[string]reflect.Type{
			"modelRecord": reflect.TypeOf(modelRecord{}),
			"dataRecord":  reflect.TypeOf(dataRecord{}),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join("/out", "dataRecord.json"), filepath.Join("/out", "modelRecord.json")}, written)
		data, err := afero.ReadFile(fs, filepath.Join("/out", "modelRecord.json"))
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "modelRecord", doc["title"])
	})
}
